package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/triage/pkg/adapters/redis"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunAuditStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_Retention(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "bundle-ttl", []byte(`{"id":"bundle-ttl"}`)))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "bundle-ttl")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "bundle-ttl")
	assert.ErrorIs(t, err, domain.ErrBundleNotFound)

	// The index is pruned against wall-clock time.
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:audit:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "b1", []byte(`{}`)))

	assert.True(t, mr.Exists("custom:audit:b1"))
	assert.True(t, mr.Exists("custom:audit:index"))
	assert.NoError(t, store.Ping(ctx))
}
