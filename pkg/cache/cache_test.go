package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemory_RoundTripAndPrefixDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	require.NoError(t, c.Set(ctx, "facility:1", item{"PHC", 3}, time.Minute))
	require.NoError(t, c.Set(ctx, "facility:list:NCR", []item{{"A", 1}}, time.Minute))
	require.NoError(t, c.Set(ctx, "content:9", item{"x", 0}, time.Minute))

	var got item
	hit, err := c.Get(ctx, "facility:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, item{"PHC", 3}, got)

	require.NoError(t, c.DeletePrefix(ctx, "facility:"))
	hit, err = c.Get(ctx, "facility:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, c.Len())
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	require.NoError(t, c.Set(ctx, "k", 1, time.Nanosecond))
	time.Sleep(time.Millisecond)

	var v int
	hit, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNoop_AlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Cache = Noop{}
	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var v int
	hit, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, hit)
}
