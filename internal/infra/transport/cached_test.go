package transport

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/infra/cache"
)

func TestCached_ServesRepeatedKeyFromCache(t *testing.T) {
	c, err := cache.NewIdentityCache(8)
	require.NoError(t, err)
	next := &scriptedTransport{}
	tr := NewCached(next, c)

	for i := 0; i < 3; i++ {
		op := domain.NewOperation("myProfile", nil)
		op.CacheKey = "profile"
		result, err := tr.Forward(context.Background(), op)
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
	}
	assert.Equal(t, int32(1), next.calls.Load())

	require.NoError(t, c.Reset(context.Background()))
	op := domain.NewOperation("myProfile", nil)
	op.CacheKey = "profile"
	_, err = tr.Forward(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCached_DoesNotStoreFailures(t *testing.T) {
	c, err := cache.NewIdentityCache(8)
	require.NoError(t, err)
	next := &scriptedTransport{errs: []error{errors.New("boom")}}
	tr := NewCached(next, c)

	op := domain.NewOperation("myProfile", nil)
	op.CacheKey = "profile"
	_, err = tr.Forward(context.Background(), op)
	require.Error(t, err)
	assert.Zero(t, c.Len())

	_, err = tr.Forward(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestCached_BypassesOperationsWithoutKey(t *testing.T) {
	c, err := cache.NewIdentityCache(8)
	require.NoError(t, err)
	next := &scriptedTransport{}
	tr := NewCached(next, c)

	for i := 0; i < 2; i++ {
		_, err := tr.Forward(context.Background(), domain.NewOperation("storeOrders", nil))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), next.calls.Load())
	assert.Zero(t, c.Len())
}

// gatedTransport holds its first call until release is closed, answering for
// alice; later calls answer for bob.
type gatedTransport struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (g *gatedTransport) Forward(ctx context.Context, op *domain.Operation) (any, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
		<-g.release
		return "alice-orders", nil
	}
	return "bob-orders", nil
}

func TestCached_DropsResultThatOutlivedReset(t *testing.T) {
	c, err := cache.NewIdentityCache(8)
	require.NoError(t, err)
	next := &gatedTransport{started: make(chan struct{}), release: make(chan struct{})}
	tr := NewCached(next, c)

	done := make(chan any, 1)
	go func() {
		op := domain.NewOperation("storeOrders", nil)
		op.CacheKey = "orders"
		result, _ := tr.Forward(context.Background(), op)
		done <- result
	}()

	<-next.started
	require.NoError(t, c.Reset(context.Background()))
	close(next.release)
	assert.Equal(t, "alice-orders", <-done)
	assert.Zero(t, c.Len())

	op := domain.NewOperation("storeOrders", nil)
	op.CacheKey = "orders"
	result, err := tr.Forward(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, "bob-orders", result)
	assert.Equal(t, int32(2), next.calls.Load())
}
