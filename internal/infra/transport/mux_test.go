package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/vietddude/sessionguard/internal/core/domain"
)

func TestMux_RoutesByPayload(t *testing.T) {
	graphQL := &scriptedTransport{}
	grpcT := &scriptedTransport{}
	m := NewMux(graphQL, grpcT)

	_, err := m.Forward(context.Background(), domain.NewOperation("a", GraphQLRequest{Query: "{a}"}))
	require.NoError(t, err)
	_, err = m.Forward(context.Background(), domain.NewOperation("b", &GraphQLRequest{Query: "{b}"}))
	require.NoError(t, err)
	_, err = m.Forward(context.Background(), domain.NewOperation("c", GRPCCall(func(ctx context.Context, conn grpc.ClientConnInterface) (any, error) {
		return nil, nil
	})))
	require.NoError(t, err)

	assert.Equal(t, int32(2), graphQL.calls.Load())
	assert.Equal(t, int32(1), grpcT.calls.Load())
}

func TestMux_MissingTransport(t *testing.T) {
	m := NewMux(&scriptedTransport{}, nil)
	_, err := m.Forward(context.Background(), domain.NewOperation("c", GRPCCall(nil)))
	assert.ErrorContains(t, err, "no transport")

	_, err = m.Forward(context.Background(), domain.NewOperation("d", 7))
	assert.ErrorContains(t, err, "no transport")
}
