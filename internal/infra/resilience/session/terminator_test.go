package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/infra/storage/memory"
)

type failingCache struct {
	panics bool
	calls  int
}

func (c *failingCache) Reset(ctx context.Context) error {
	c.calls++
	if c.panics {
		panic("cache corrupted")
	}
	return errors.New("cache unavailable")
}

type failingStore struct {
	*memory.CredentialStore
}

func (failingStore) ClearTokens(ctx context.Context) error {
	return errors.New("keychain locked")
}

func TestTerminator_ClearsTokensDespiteCacheFailures(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCredentialStore()
	require.NoError(t, store.SetTokens(ctx, "access", "refresh"))

	errCache := &failingCache{}
	panicCache := &failingCache{panics: true}
	b := NewBroadcaster()
	events, cancel := b.Subscribe(1)
	defer cancel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	term := NewTerminator(store, []CacheResetter{errCache, panicCache}, []Notifier{b}, logger)
	term.Terminate(ctx, ReasonRefreshFailed)

	_, err := store.AccessToken(ctx)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
	_, err = store.RefreshToken(ctx)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)

	assert.Equal(t, 1, errCache.calls)
	assert.Equal(t, 1, panicCache.calls)
	assert.Contains(t, buf.String(), "cache reset panicked")

	select {
	case ev := <-events:
		assert.Equal(t, ReasonRefreshFailed, ev.Reason)
	case <-time.After(time.Second):
		t.Fatal("expected session-ended event")
	}
}

func TestTerminator_NotifiesEvenWhenClearFails(t *testing.T) {
	store := failingStore{memory.NewCredentialStore()}
	b := NewBroadcaster()
	events, cancel := b.Subscribe(1)
	defer cancel()

	term := NewTerminator(store, nil, []Notifier{b}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	term.Terminate(context.Background(), ReasonLoginRequired)

	select {
	case ev := <-events:
		assert.Equal(t, ReasonLoginRequired, ev.Reason)
	default:
		t.Fatal("expected session-ended event after clear failure")
	}
}

func TestBroadcaster_DoesNotBlockOnFullSubscriber(t *testing.T) {
	b := NewBroadcaster()
	slow, cancelSlow := b.Subscribe(1)
	defer cancelSlow()
	fast, cancelFast := b.Subscribe(4)
	defer cancelFast()

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Notify(context.Background(), Event{Reason: "r"}))
	}

	assert.Len(t, slow, 1)
	assert.Len(t, fast, 3)
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(1)
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	require.NoError(t, b.Notify(context.Background(), Event{Reason: "after"}))
}

func TestTerminator_CommitRejectsStaleEpoch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCredentialStore()
	term := NewTerminator(store, nil, nil, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	epoch := term.Epoch()
	ran, err := term.Commit(epoch, func() error { return store.SetTokens(ctx, "a1", "r1") })
	require.NoError(t, err)
	assert.True(t, ran)

	term.Terminate(ctx, ReasonUserLogout)
	assert.Equal(t, epoch+1, term.Epoch())

	ran, err = term.Commit(epoch, func() error { return store.SetTokens(ctx, "a2", "r2") })
	require.NoError(t, err)
	assert.False(t, ran)
	_, err = store.AccessToken(ctx)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)

	wantErr := errors.New("disk full")
	ran, err = term.Commit(term.Epoch(), func() error { return wantErr })
	assert.True(t, ran)
	assert.ErrorIs(t, err, wantErr)
}
