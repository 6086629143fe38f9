package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "test")
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newRedisStore(t)

	raw, err := s.Get(ctx, CollectionConductRecords)
	require.NoError(t, err)
	assert.Nil(t, raw)

	require.NoError(t, s.Set(ctx, CollectionConductRecords, []byte(`[{"week":3}]`)))

	raw, err = s.Get(ctx, CollectionConductRecords)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"week":3}]`, string(raw))
}

func TestRedisCollectionsAreNamespaced(t *testing.T) {
	ctx := context.Background()
	s := newRedisStore(t)

	require.NoError(t, s.Set(ctx, CollectionStudents, []byte(`["a"]`)))

	raw, err := s.Get(ctx, CollectionPendingOrders)
	require.NoError(t, err)
	assert.Nil(t, raw)
}
