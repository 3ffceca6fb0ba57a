package transport

import (
	"context"
	"errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/infra/storage/memory"
)

func graphQLOp(name string) *domain.Operation {
	return domain.NewOperation(name, GraphQLRequest{Query: "query { " + name + " { id } }"})
}

func TestHTTPTransport_AttachesStoredCredential(t *testing.T) {
	var gotAuth string
	var gotBody GraphQLRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"data":{"storeOrders":[{"id":"1"}]}}`))
	}))
	defer server.Close()

	store := memory.NewCredentialStore()
	require.NoError(t, store.SetTokens(context.Background(), "access-1", "refresh-1"))
	tr := NewHTTPTransport(server.URL, store, 5*time.Second)

	result, err := tr.Forward(context.Background(), graphQLOp("storeOrders"))
	require.NoError(t, err)

	assert.Equal(t, "Bearer access-1", gotAuth)
	assert.Equal(t, "storeOrders", gotBody.OperationName)
	assert.JSONEq(t, `{"storeOrders":[{"id":"1"}]}`, string(result.(json.RawMessage)))
}

func TestHTTPTransport_KeepsOperationCredential(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	store := memory.NewCredentialStore()
	require.NoError(t, store.SetTokens(context.Background(), "stored", "refresh"))
	tr := NewHTTPTransport(server.URL, store, 5*time.Second)

	op := graphQLOp("cartItems")
	op.SetBearer("replayed")
	_, err := tr.Forward(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, "Bearer replayed", gotAuth)
}

func TestHTTPTransport_GraphQLErrorsBecomeSignals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"data": {"cartItems": null},
			"errors": [
				{"message": "access token expired", "path": ["cartItems", 0], "extensions": {"code": "M2003"}},
				{"message": "numeric", "extensions": {"code": 4009}}
			]
		}`))
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, nil, 5*time.Second)
	_, err := tr.Forward(context.Background(), graphQLOp("cartItems"))

	var opErr *domain.OperationError
	require.ErrorAs(t, err, &opErr)
	require.Len(t, opErr.Signals, 2)

	first := opErr.Signals[0]
	assert.Equal(t, "M2003", first.Code())
	assert.Equal(t, []string{"cartItems", "0"}, first.Path)
	assert.Equal(t, "access token expired", first.Message)
	assert.False(t, first.IsTransportLevel)

	assert.Equal(t, "4009", opErr.Signals[1].Code())
	assert.NotNil(t, opErr.Data)
}

func TestHTTPTransport_StatusSignals(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"forbidden", http.StatusForbidden},
		{"bad gateway", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			tr := NewHTTPTransport(server.URL, nil, 5*time.Second)
			_, err := tr.Forward(context.Background(), graphQLOp("storeMenus"))

			var opErr *domain.OperationError
			require.ErrorAs(t, err, &opErr)
			require.Len(t, opErr.Signals, 1)
			assert.True(t, opErr.Signals[0].IsTransportLevel)
			assert.Equal(t, tt.status, opErr.Signals[0].TransportStatus)
			assert.Equal(t, "storeMenus", opErr.Signals[0].Operation)
		})
	}
}

func TestHTTPTransport_RefusedConnectionIsConnectivity(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	tr := NewHTTPTransport(url, nil, time.Second)
	_, err := tr.Forward(context.Background(), graphQLOp("storeOrders"))

	var connErr *domain.ConnectivityError
	assert.ErrorAs(t, err, &connErr)
}

func TestHTTPTransport_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	tr := NewHTTPTransport(server.URL, nil, 5*time.Second)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := tr.Forward(ctx, graphQLOp("storeOrders"))
	assert.ErrorIs(t, err, context.Canceled)

	var connErr *domain.ConnectivityError
	assert.False(t, errors.As(err, &connErr))
}

func TestHTTPTransport_RejectsUnknownPayload(t *testing.T) {
	tr := NewHTTPTransport("http://127.0.0.1:0", nil, time.Second)
	_, err := tr.Forward(context.Background(), domain.NewOperation("x", 42))
	assert.ErrorContains(t, err, "unsupported payload")
}
