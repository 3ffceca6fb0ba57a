package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewIdentityCache(2)
	require.NoError(t, err)

	c.Add("a", 1)
	c.Add("b", 2)
	_, _ = c.Get("a")
	c.Add("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestIdentityCache_ResetPurges(t *testing.T) {
	c, err := NewIdentityCache(0)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		c.Add(fmt.Sprintf("k%d", i), i)
	}
	require.NoError(t, c.Reset(context.Background()))
	assert.Zero(t, c.Len())
}

func TestIdentityCache_RefusesWritesFromBeforeReset(t *testing.T) {
	c, err := NewIdentityCache(4)
	require.NoError(t, err)

	gen := c.Generation()
	assert.True(t, c.AddIfGeneration(gen, "orders", "alice"))

	require.NoError(t, c.Reset(context.Background()))
	assert.False(t, c.AddIfGeneration(gen, "orders", "alice"))
	_, ok := c.Get("orders")
	assert.False(t, ok)

	assert.True(t, c.AddIfGeneration(c.Generation(), "orders", "bob"))
	v, _ := c.Get("orders")
	assert.Equal(t, "bob", v)
}
