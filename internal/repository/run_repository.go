package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/wms-imagery/internal/models"
	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
)

const runKeyPrefix = "wms:run:"

type jsonCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedRunRepository keeps run snapshots in a JSON cache (Redis in production).
type CachedRunRepository struct {
	cache jsonCache
	ttl   time.Duration
}

// NewCachedRunRepository constructs a cache-backed run store.
func NewCachedRunRepository(cache jsonCache, ttl time.Duration) *CachedRunRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedRunRepository{cache: cache, ttl: ttl}
}

// Save overwrites the snapshot for run.ID.
func (r *CachedRunRepository) Save(ctx context.Context, run *models.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id required")
	}
	return r.cache.Set(ctx, runKeyPrefix+run.ID, run, r.ttl)
}

// Get loads a snapshot, mapping cache misses to ErrNotFound.
func (r *CachedRunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	if err := r.cache.Get(ctx, runKeyPrefix+id, &run); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// MemoryRunRepository is the process-local run store used when Redis is off.
type MemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

// NewMemoryRunRepository constructs an empty store.
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: map[string][]byte{}}
}

// Save stores a deep copy of run.
func (r *MemoryRunRepository) Save(ctx context.Context, run *models.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id required")
	}
	raw, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", run.ID, err)
	}
	r.mu.Lock()
	r.runs[run.ID] = raw
	r.mu.Unlock()
	return nil
}

// Get returns a copy of the stored run.
func (r *MemoryRunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	r.mu.RLock()
	raw, ok := r.runs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	var run models.Run
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", id, err)
	}
	return &run, nil
}
