//go:build redistest

package rcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ValentinKolb/dODM/lib/cache"
	"github.com/ValentinKolb/dODM/lib/cache/cachetest"
	"github.com/orlangure/gnomock"
	redispreset "github.com/orlangure/gnomock/preset/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// Test runs the cache conformance suite against a disposable Redis container.
// Run with: go test -tags redistest ./lib/cache/rcache/...
func Test(t *testing.T) {
	container, err := gnomock.Start(redispreset.Preset(redispreset.WithVersion("7.2")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gnomock.Stop(container) })

	url := fmt.Sprintf("redis://%s/0", container.DefaultAddress())

	cachetest.RunCacheStoreTests(t, "RedisStore", func(t *testing.T) (cache.ICacheStore, func(time.Duration)) {
		ctx := context.Background()

		// every subtest starts from an empty database
		client := redis.NewClient(&redis.Options{Addr: container.DefaultAddress()})
		require.NoError(t, client.FlushDB(ctx).Err())
		require.NoError(t, client.Close())

		store, err := NewRedisStore(ctx, Options{URL: url, PollInterval: 200 * time.Millisecond})
		require.NoError(t, err)
		return store, nil
	})
}
