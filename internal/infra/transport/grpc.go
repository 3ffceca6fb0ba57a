package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vietddude/sessionguard/internal/core/domain"
)

// GRPCCall is the payload GRPCTransport expects: one call made with a
// generated client over conn.
type GRPCCall func(ctx context.Context, conn grpc.ClientConnInterface) (any, error)

// GRPCTransport runs GRPCCall payloads over a shared connection.
// Operation headers are sent as outgoing metadata.
type GRPCTransport struct {
	conn   grpc.ClientConnInterface
	closer io.Closer
	tokens TokenSource
}

// NewGRPCTransport wraps an existing connection.
func NewGRPCTransport(conn grpc.ClientConnInterface, tokens TokenSource) *GRPCTransport {
	t := &GRPCTransport{conn: conn, tokens: tokens}
	if c, ok := conn.(io.Closer); ok {
		t.closer = c
	}
	return t
}

// DialGRPC connects to target. https:// targets and :443 ports use TLS.
func DialGRPC(target string, tokens TokenSource, extra ...grpc.DialOption) (*GRPCTransport, error) {
	var opts []grpc.DialOption

	if strings.HasPrefix(target, "https://") || strings.HasSuffix(target, ":443") {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}
	return NewGRPCTransport(conn, tokens), nil
}

// Forward runs the operation's GRPCCall.
func (t *GRPCTransport) Forward(ctx context.Context, op *domain.Operation) (result any, err error) {
	start := time.Now()
	defer func() { observe("grpc", op, start, err) }()

	call, ok := op.Payload.(GRPCCall)
	if !ok || call == nil {
		return nil, fmt.Errorf("operation %s: unsupported payload %T", op.Name, op.Payload)
	}
	if err := attachCredential(ctx, t.tokens, op); err != nil {
		return nil, err
	}

	pairs := make([]string, 0, 2*len(op.Headers))
	for k, v := range op.Headers {
		pairs = append(pairs, strings.ToLower(k), v)
	}
	callCtx := metadata.AppendToOutgoingContext(ctx, pairs...)

	result, err = call(callCtx, t.conn)
	if err != nil {
		return nil, t.failure(ctx, op, err)
	}
	return result, nil
}

// Close releases the connection when the transport owns one.
func (t *GRPCTransport) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

func (t *GRPCTransport) failure(ctx context.Context, op *domain.Operation, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	st, ok := status.FromError(err)
	if !ok {
		return networkFailure(ctx, op, err)
	}

	switch st.Code() {
	case codes.Canceled:
		return context.Canceled
	case codes.Unavailable, codes.DeadlineExceeded:
		return &domain.ConnectivityError{Operation: op.Name, Err: err}
	case codes.Unauthenticated:
		return transportSignal(op, st, 401)
	case codes.PermissionDenied:
		return transportSignal(op, st, 403)
	}

	sig := domain.FailureSignal{
		Message:   st.Message(),
		Path:      []string{op.Name},
		Operation: op.Name,
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetReason() != "" {
			sig.RawCode = info.GetReason()
			break
		}
	}
	return &domain.OperationError{Operation: op.Name, Signals: []domain.FailureSignal{sig}}
}

func transportSignal(op *domain.Operation, st *status.Status, httpStatus int) error {
	return &domain.OperationError{
		Operation: op.Name,
		Signals: []domain.FailureSignal{{
			Message:          st.Message(),
			TransportStatus:  httpStatus,
			IsTransportLevel: true,
			Operation:        op.Name,
		}},
	}
}
