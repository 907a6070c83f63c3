package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wms-imagery/internal/models"
	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
)

type jsonCacheStub struct {
	values map[string][]byte
	ttls   map[string]time.Duration
	err    error
}

func newJSONCacheStub() *jsonCacheStub {
	return &jsonCacheStub{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *jsonCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	if s.err != nil {
		return s.err
	}
	raw, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *jsonCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.values[key] = raw
	s.ttls[key] = ttl
	return nil
}

func sampleRun() *models.Run {
	return &models.Run{
		ID:        "run-1",
		Start:     "20240915",
		End:       "20240915",
		Status:    models.RunStatusFinished,
		Total:     2,
		Saved:     1,
		Failed:    1,
		CreatedAt: time.Date(2024, 9, 15, 0, 40, 0, 0, time.UTC),
		Items: []models.TileOutcome{
			{Date: "20240915", Label: "0015", Status: models.TileStatusSaved, HTTPStatus: 200, File: "wms_image_20240915_0015.png"},
			{Date: "20240915", Label: "0045", Status: models.TileStatusFailed, HTTPStatus: 404},
		},
	}
}

func TestCachedRunRepositorySaveAndGet(t *testing.T) {
	cache := newJSONCacheStub()
	repo := NewCachedRunRepository(cache, time.Hour)

	require.NoError(t, repo.Save(context.Background(), sampleRun()))
	require.Equal(t, time.Hour, cache.ttls["wms:run:run-1"])

	run, err := repo.Get(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, sampleRun(), run)
}

func TestCachedRunRepositoryMissIsNotFound(t *testing.T) {
	repo := NewCachedRunRepository(newJSONCacheStub(), 0)
	_, err := repo.Get(context.Background(), "missing")
	require.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCachedRunRepositoryPropagatesBackendErrors(t *testing.T) {
	cache := newJSONCacheStub()
	cache.err = errors.New("redis down")
	_, err := NewCachedRunRepository(cache, 0).Get(context.Background(), "run-1")
	require.Error(t, err)
	require.False(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMemoryRunRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRunRepository()
	run := sampleRun()
	require.NoError(t, repo.Save(context.Background(), run))

	run.Status = models.RunStatusFailed
	stored, err := repo.Get(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, models.RunStatusFinished, stored.Status)

	_, err = repo.Get(context.Background(), "other")
	require.True(t, errors.Is(err, appErrors.ErrNotFound))
	require.Error(t, repo.Save(context.Background(), &models.Run{}))
}
