package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/sessionguard/internal/core/domain"
)

// maxErrorBody bounds how much of a failed response body ends up in a signal.
const maxErrorBody = 512

// GraphQLRequest is the payload HTTPTransport expects.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// HTTPTransport sends GraphQL operations over HTTP POST.
type HTTPTransport struct {
	endpoint   string
	tokens     TokenSource
	httpClient *http.Client
}

// NewHTTPTransport creates a GraphQL transport. tokens may be nil when
// operations always carry their own credential.
func NewHTTPTransport(endpoint string, tokens TokenSource, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		endpoint: endpoint,
		tokens:   tokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Forward posts op and returns the raw "data" member on success.
func (t *HTTPTransport) Forward(ctx context.Context, op *domain.Operation) (result any, err error) {
	start := time.Now()
	defer func() { observe("http", op, start, err) }()

	gql, err := graphQLPayload(op)
	if err != nil {
		return nil, err
	}
	if err := attachCredential(ctx, t.tokens, op); err != nil {
		return nil, err
	}

	body, err := json.Marshal(gql)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range op.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, networkFailure(ctx, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkFailure(ctx, op, fmt.Errorf("read response: %w", err))
	}

	// Auth rejections and server faults are judged on status alone
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode >= http.StatusInternalServerError {
		return nil, &domain.OperationError{
			Operation: op.Name,
			Signals: []domain.FailureSignal{{
				Message:          truncate(strings.TrimSpace(string(raw))),
				TransportStatus:  resp.StatusCode,
				IsTransportLevel: true,
				Operation:        op.Name,
			}},
		}
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(raw, &gqlResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &domain.OperationError{
				Operation: op.Name,
				Signals: []domain.FailureSignal{{
					Message:   fmt.Sprintf("http %d: %s", resp.StatusCode, truncate(string(raw))),
					Operation: op.Name,
				}},
			}
		}
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, &domain.OperationError{
			Operation: op.Name,
			Signals:   signalsFromGraphQL(op.Name, gqlResp.Errors),
			Data:      gqlResp.Data,
		}
	}

	return gqlResp.Data, nil
}

func graphQLPayload(op *domain.Operation) (GraphQLRequest, error) {
	var gql GraphQLRequest
	switch p := op.Payload.(type) {
	case GraphQLRequest:
		gql = p
	case *GraphQLRequest:
		if p == nil {
			return gql, fmt.Errorf("operation %s: nil graphql payload", op.Name)
		}
		gql = *p
	default:
		return gql, fmt.Errorf("operation %s: unsupported payload %T", op.Name, op.Payload)
	}
	if gql.OperationName == "" {
		gql.OperationName = op.Name
	}
	return gql, nil
}

func signalsFromGraphQL(operation string, errs []graphQLError) []domain.FailureSignal {
	signals := make([]domain.FailureSignal, 0, len(errs))
	for _, e := range errs {
		sig := domain.FailureSignal{
			Message:   e.Message,
			Operation: operation,
		}
		if code, ok := e.Extensions["code"]; ok {
			sig.RawCode = code
		}
		for _, p := range e.Path {
			sig.Path = append(sig.Path, pathElement(p))
		}
		signals = append(signals, sig)
	}
	return signals
}

func pathElement(p any) string {
	if f, ok := p.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(p)
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
