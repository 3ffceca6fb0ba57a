package transport

import (
	"context"
	"fmt"

	"github.com/vietddude/sessionguard/internal/core/domain"
)

// Mux routes an operation to the transport that understands its payload, so
// HTTP and gRPC operations share one session.
type Mux struct {
	graphQL Transport
	grpc    Transport
}

// NewMux creates a mux. Either transport may be nil.
func NewMux(graphQL, grpc Transport) *Mux {
	return &Mux{graphQL: graphQL, grpc: grpc}
}

func (m *Mux) Forward(ctx context.Context, op *domain.Operation) (any, error) {
	var next Transport
	switch op.Payload.(type) {
	case GraphQLRequest, *GraphQLRequest:
		next = m.graphQL
	case GRPCCall:
		next = m.grpc
	}
	if next == nil {
		return nil, fmt.Errorf("operation %s: no transport for payload %T", op.Name, op.Payload)
	}
	return next.Forward(ctx, op)
}
