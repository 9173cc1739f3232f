package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pbhms/pbhms/internal/store"
	"github.com/pbhms/pbhms/pkg/logging"
	"github.com/redis/go-redis/v9"
)

// Directory lists the provider catalog. The scan-backed implementation only
// holds up at small table sizes; the interface exists so callers never learn
// which strategy is behind it.
type Directory interface {
	List(ctx context.Context) ([]Profile, error)
	Invalidate(ctx context.Context)
}

// ScanDirectory lists providers by scanning the table on userType.
type ScanDirectory struct {
	table *store.Table
}

// NewScanDirectory builds the scan-backed directory.
func NewScanDirectory(table *store.Table) *ScanDirectory {
	if table == nil {
		panic("providers: table cannot be nil")
	}
	return &ScanDirectory{table: table}
}

// List scans for all provider metadata items.
func (d *ScanDirectory) List(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	if err := d.table.ScanFilter(ctx, "userType", store.UserTypeProvider, &profiles); err != nil {
		return nil, fmt.Errorf("providers: list directory: %w", err)
	}
	return profiles, nil
}

// Invalidate is a no-op; the scan has no state to drop.
func (d *ScanDirectory) Invalidate(ctx context.Context) {}

const directoryCacheKey = "providers:directory"

// CachedDirectory decorates a Directory with a Redis cache on the full
// listing. Cache failures degrade to the inner directory, never to errors.
type CachedDirectory struct {
	inner  Directory
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedDirectory wraps the inner directory with a Redis cache. Returns
// the inner directory unchanged when client is nil.
func NewCachedDirectory(inner Directory, client *redis.Client, ttl time.Duration, logger *logging.Logger) Directory {
	if client == nil {
		return inner
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedDirectory{inner: inner, client: client, ttl: ttl, logger: logger}
}

// List serves the listing from cache when present, falling through to the
// inner directory on a miss and repopulating the cache best-effort.
func (d *CachedDirectory) List(ctx context.Context) ([]Profile, error) {
	data, err := d.client.Get(ctx, directoryCacheKey).Bytes()
	if err == nil {
		var profiles []Profile
		if jsonErr := json.Unmarshal(data, &profiles); jsonErr == nil {
			return profiles, nil
		}
		// Corrupt entry; drop it and fall through.
		d.client.Del(ctx, directoryCacheKey)
	} else if err != redis.Nil {
		d.logger.Warn("provider directory cache read failed", "error", err)
	}

	profiles, err := d.inner.List(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(profiles); err == nil {
		if err := d.client.Set(ctx, directoryCacheKey, data, d.ttl).Err(); err != nil {
			d.logger.Warn("provider directory cache write failed", "error", err)
		}
	}
	return profiles, nil
}

// Invalidate drops the cached listing so the next read sees fresh data.
func (d *CachedDirectory) Invalidate(ctx context.Context) {
	if err := d.client.Del(ctx, directoryCacheKey).Err(); err != nil {
		d.logger.Warn("provider directory cache invalidation failed", "error", err)
	}
	d.inner.Invalidate(ctx)
}
