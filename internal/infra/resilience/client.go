package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/infra/resilience/classify"
	"github.com/vietddude/sessionguard/internal/infra/resilience/dispatch"
	"github.com/vietddude/sessionguard/internal/infra/resilience/ledger"
	"github.com/vietddude/sessionguard/internal/infra/resilience/refresh"
	"github.com/vietddude/sessionguard/internal/infra/resilience/session"
)

// Options configures a Client. Transport, Store and Endpoint are required.
type Options struct {
	Transport  dispatch.Transport
	Store      domain.CredentialStore
	Endpoint   refresh.Endpoint
	Classifier *classify.Classifier

	// Caches are purged and Notifiers told when the session ends.
	Caches    []session.CacheResetter
	Notifiers []session.Notifier

	RefreshTimeout time.Duration
	Logger         *slog.Logger
}

// Status is a point-in-time view of the session.
type Status struct {
	Authenticated     bool `json:"authenticated"`
	RefreshInFlight   bool `json:"refresh_in_flight"`
	PendingRecoveries int  `json:"pending_recoveries"`
}

// Client runs operations and recovers from authentication failures.
// One Client serves one session; it is safe for concurrent use.
type Client struct {
	transport   dispatch.Transport
	store       domain.CredentialStore
	ledger      *ledger.Ledger
	coordinator *refresh.Coordinator
	terminator  *session.Terminator
	dispatcher  *dispatch.Dispatcher
	log         *slog.Logger
}

// New wires the recovery stack around opts.Transport.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = classify.Default()
	}

	l := ledger.New()
	term := session.NewTerminator(opts.Store, opts.Caches, opts.Notifiers, logger)
	coord := refresh.NewCoordinator(opts.Store, opts.Endpoint, term,
		refresh.Config{Timeout: opts.RefreshTimeout}, logger)

	return &Client{
		transport:   opts.Transport,
		store:       opts.Store,
		ledger:      l,
		coordinator: coord,
		terminator:  term,
		dispatcher:  dispatch.New(opts.Transport, classifier, l, coord, term, logger),
		log:         logger,
	}
}

// Do forwards op and recovers on failure. The result is the transport's
// result, possibly from a replay. A nil result with a nil error means the
// failure was absorbed. An op built without NewOperation is given an ID so
// its recovery is tracked apart from every other call.
func (c *Client) Do(ctx context.Context, op *domain.Operation) (any, error) {
	if op == nil {
		return nil, errors.New("nil operation")
	}
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := c.transport.Forward(ctx, op)
	if err == nil {
		c.ledger.Forget(op)
		return result, nil
	}
	return c.dispatcher.Recover(ctx, op, err)
}

// Login stores a freshly issued credential pair.
func (c *Client) Login(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		return domain.ErrEmptyToken
	}
	if err := c.store.SetTokens(ctx, accessToken, refreshToken); err != nil {
		return err
	}
	c.log.Info("Session started")
	return nil
}

// Logout ends the session the same way a failed recovery does.
func (c *Client) Logout(ctx context.Context) {
	c.terminator.Terminate(ctx, session.ReasonUserLogout)
}

// Status reports whether an access token is stored and whether recovery is
// in progress.
func (c *Client) Status(ctx context.Context) (Status, error) {
	st := Status{
		RefreshInFlight:   c.coordinator.InFlight(),
		PendingRecoveries: c.ledger.Len(),
	}
	token, err := c.store.AccessToken(ctx)
	switch {
	case errors.Is(err, domain.ErrTokenNotFound):
	case err != nil:
		return st, err
	default:
		st.Authenticated = token != ""
	}
	return st, nil
}
