package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)

	var dest map[string]string
	err := repo.Get(context.Background(), "wms:run:run-1", &dest)
	require.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	require.NoError(t, repo.Set(context.Background(), "wms:run:run-1", map[string]string{"a": "b"}, time.Minute))
	require.Error(t, repo.Ping(context.Background()))
	require.NoError(t, repo.Close())
}

func TestCacheRepositoryUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	repo := NewCacheRepository(client, nil)
	defer repo.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var dest map[string]string
	err := repo.Get(ctx, "wms:run:run-1", &dest)
	require.Error(t, err)
	require.False(t, errors.Is(err, appErrors.ErrCacheMiss))
	require.Error(t, repo.Ping(ctx))
}
