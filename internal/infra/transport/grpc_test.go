package transport

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/infra/storage/memory"
)

// guardedHealth answers Check according to the requested service name and
// the caller's authorization metadata.
type guardedHealth struct {
	healthpb.UnimplementedHealthServer
}

func (guardedHealth) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	auth := md.Get("authorization")

	switch req.GetService() {
	case "forbidden":
		return nil, status.Error(codes.PermissionDenied, "not your store")
	case "unavailable":
		return nil, status.Error(codes.Unavailable, "backend down")
	case "conflict":
		st, err := status.New(codes.FailedPrecondition, "cart holds another store").
			WithDetails(&errdetails.ErrorInfo{Reason: "CART_DIFFERENT_STORE", Domain: "cart"})
		if err != nil {
			return nil, err
		}
		return nil, st.Err()
	}

	if len(auth) == 0 || auth[0] != "Bearer good" {
		return nil, status.Error(codes.Unauthenticated, "token expired")
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

func newBufconnTransport(t *testing.T, tokens TokenSource) *GRPCTransport {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, guardedHealth{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	tr, err := DialGRPC("passthrough:///bufnet", tokens,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func healthOp(service string) *domain.Operation {
	return domain.NewOperation("healthCheck", GRPCCall(func(ctx context.Context, conn grpc.ClientConnInterface) (any, error) {
		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return nil, err
		}
		return resp.GetStatus(), nil
	}))
}

func TestGRPCTransport_SendsCredentialAsMetadata(t *testing.T) {
	store := memory.NewCredentialStore()
	require.NoError(t, store.SetTokens(context.Background(), "good", "refresh"))
	tr := newBufconnTransport(t, store)

	result, err := tr.Forward(context.Background(), healthOp(""))
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, result)
}

func TestGRPCTransport_UnauthenticatedIsTransportLevel(t *testing.T) {
	store := memory.NewCredentialStore()
	require.NoError(t, store.SetTokens(context.Background(), "stale", "refresh"))
	tr := newBufconnTransport(t, store)

	_, err := tr.Forward(context.Background(), healthOp(""))

	var opErr *domain.OperationError
	require.ErrorAs(t, err, &opErr)
	require.Len(t, opErr.Signals, 1)
	assert.True(t, opErr.Signals[0].IsTransportLevel)
	assert.Equal(t, 401, opErr.Signals[0].TransportStatus)
}

func TestGRPCTransport_StatusMapping(t *testing.T) {
	tr := newBufconnTransport(t, nil)

	t.Run("permission denied", func(t *testing.T) {
		_, err := tr.Forward(context.Background(), healthOp("forbidden"))
		var opErr *domain.OperationError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, 403, opErr.Signals[0].TransportStatus)
	})

	t.Run("unavailable", func(t *testing.T) {
		_, err := tr.Forward(context.Background(), healthOp("unavailable"))
		var connErr *domain.ConnectivityError
		assert.ErrorAs(t, err, &connErr)
	})

	t.Run("error info reason", func(t *testing.T) {
		_, err := tr.Forward(context.Background(), healthOp("conflict"))
		var opErr *domain.OperationError
		require.ErrorAs(t, err, &opErr)
		sig := opErr.Signals[0]
		assert.Equal(t, "CART_DIFFERENT_STORE", sig.Code())
		assert.Equal(t, "healthCheck", sig.FirstPath())
		assert.False(t, sig.IsTransportLevel)
	})
}

func TestGRPCTransport_RejectsUnknownPayload(t *testing.T) {
	tr := newBufconnTransport(t, nil)
	_, err := tr.Forward(context.Background(), domain.NewOperation("x", "payload"))
	assert.ErrorContains(t, err, "unsupported payload")
}
