package earthdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/horkydorky/Earth-Pulse/common"
	"github.com/horkydorky/Earth-Pulse/common/model"
	"github.com/horkydorky/Earth-Pulse/modules/cache"
)

// EarthDataService is the read-through cached view of EarthDataClient.
//
// The four indicator reads and the summary are cached under
// "{op}_{year}_{region}"; every other method passes straight through to the
// client. Failed fetches are never cached. Cached reads return a fresh deep
// copy on every call, so callers may modify what they receive.
type EarthDataService interface {
	EarthDataClient

	// GetIndicatorData dispatches to the cached accessor for indicator.
	GetIndicatorData(ctx context.Context, indicator model.Indicator, year int, region model.Region) (any, error)
	// PrefetchIndicators loads all four indicators concurrently. The first
	// failure cancels the remaining fetches.
	PrefetchIndicators(ctx context.Context, year int, region model.Region) (map[model.Indicator]any, error)

	BuildCacheKey(op string, year int, region model.Region) string
	RemoveCacheEntry(cacheKey string)
	// InvalidateCache drops the single entry for op, year and region.
	InvalidateCache(op string, year int, region model.Region)
	ClearCache()
	GetCacheStatus() CacheStatus
}

// Cache operation names, the first segment of every cache key.
const (
	OpNDVI        = string(model.IndicatorNDVI)
	OpGlacier     = string(model.IndicatorGlacier)
	OpUrban       = string(model.IndicatorUrban)
	OpTemperature = string(model.IndicatorTemperature)
	OpSummary     = "summary"
)

var ErrUnknownIndicator = errors.New("unknown indicator")

// CacheStatus is a diagnostic snapshot of the live cache entries.
type CacheStatus struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

type earthDataService struct {
	EarthDataClient
	cache    common.CacheRepository
	ttl      time.Duration
	inflight *singleflight.Group
	logger   *slog.Logger
}

// ServiceOption configures an EarthDataService.
type ServiceOption func(*earthDataService)

// WithCacheRepository replaces the service's own ExpiringCache.
func WithCacheRepository(repo common.CacheRepository) ServiceOption {
	return func(s *earthDataService) {
		s.cache = repo
	}
}

// WithCacheTTL sets the TTL used for every cached read.
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *earthDataService) {
		s.ttl = ttl
	}
}

// WithInflightDedup collapses concurrent misses for the same key into one
// client call. The shared call runs with the first caller's context.
func WithInflightDedup() ServiceOption {
	return func(s *earthDataService) {
		s.inflight = &singleflight.Group{}
	}
}

func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *earthDataService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewEarthDataService constructs an EarthDataService. Unless a repository is
// supplied, the service owns a fresh ExpiringCache; instances never share state.
func NewEarthDataService(client EarthDataClient, opts ...ServiceOption) EarthDataService {
	s := &earthDataService{
		EarthDataClient: client,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.NewExpiringCache(s.ttl)
	}
	return s
}

// BuildCacheKey composes "{op}_{year}_{region}", e.g. "ndvi_2020_nepal_himalayas".
func (s *earthDataService) BuildCacheKey(op string, year int, region model.Region) string {
	return fmt.Sprintf("%s_%d_%s", op, year, region.OrDefault())
}

// RemoveCacheEntry forcibly removes a specific cached entry.
func (s *earthDataService) RemoveCacheEntry(cacheKey string) {
	s.cache.Delete(cacheKey)
}

func (s *earthDataService) InvalidateCache(op string, year int, region model.Region) {
	s.RemoveCacheEntry(s.BuildCacheKey(op, year, region))
}

func (s *earthDataService) ClearCache() {
	s.cache.Clear()
	s.logger.Debug("earthdata cache cleared")
}

// GetCacheStatus prunes expired entries and reports what is left. Pruning
// only drops entries Get would already treat as absent.
func (s *earthDataService) GetCacheStatus() CacheStatus {
	keys := s.cache.Keys()
	return CacheStatus{Size: len(keys), Keys: keys}
}

func (s *earthDataService) GetNDVIData(ctx context.Context, year int, region model.Region) (*model.NDVIData, error) {
	return readThrough(ctx, s, s.BuildCacheKey(OpNDVI, year, region), func(ctx context.Context) (*model.NDVIData, error) {
		return s.EarthDataClient.GetNDVIData(ctx, year, region.OrDefault())
	})
}

func (s *earthDataService) GetGlacierData(ctx context.Context, year int, region model.Region) (*model.GlacierData, error) {
	return readThrough(ctx, s, s.BuildCacheKey(OpGlacier, year, region), func(ctx context.Context) (*model.GlacierData, error) {
		return s.EarthDataClient.GetGlacierData(ctx, year, region.OrDefault())
	})
}

func (s *earthDataService) GetUrbanData(ctx context.Context, year int, region model.Region) (*model.UrbanData, error) {
	return readThrough(ctx, s, s.BuildCacheKey(OpUrban, year, region), func(ctx context.Context) (*model.UrbanData, error) {
		return s.EarthDataClient.GetUrbanData(ctx, year, region.OrDefault())
	})
}

func (s *earthDataService) GetTemperatureData(ctx context.Context, year int, region model.Region) (*model.TemperatureData, error) {
	return readThrough(ctx, s, s.BuildCacheKey(OpTemperature, year, region), func(ctx context.Context) (*model.TemperatureData, error) {
		return s.EarthDataClient.GetTemperatureData(ctx, year, region.OrDefault())
	})
}

func (s *earthDataService) GetEnvironmentalSummary(ctx context.Context, year int, region model.Region) (*model.EnvironmentalSummary, error) {
	return readThrough(ctx, s, s.BuildCacheKey(OpSummary, year, region), func(ctx context.Context) (*model.EnvironmentalSummary, error) {
		return s.EarthDataClient.GetEnvironmentalSummary(ctx, year, region.OrDefault())
	})
}

// cloner is a record that can hand out independent copies of itself.
type cloner[T any] interface {
	Clone() T
}

// readThrough returns a copy of the cached value for key, or calls fetch and
// caches its result. The cached record is never handed out directly. Errors
// from fetch are returned as-is and leave the key unset.
func readThrough[T cloner[T]](ctx context.Context, s *earthDataService, key string, fetch func(context.Context) (T, error)) (T, error) {
	if cached, found := s.cache.Get(key); found {
		if v, ok := cached.(T); ok {
			s.logger.Debug("earthdata cache hit", "key", key)
			return v.Clone(), nil
		}
	}
	s.logger.Debug("earthdata cache miss", "key", key)

	load := func() (interface{}, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, v, s.ttl)
		return v, nil
	}

	var (
		v   interface{}
		err error
	)
	if s.inflight != nil {
		v, err, _ = s.inflight.Do(key, load)
	} else {
		v, err = load()
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T).Clone(), nil
}

type indicatorAccessor func(s *earthDataService, ctx context.Context, year int, region model.Region) (any, error)

func accessor[T any](get func(*earthDataService, context.Context, int, model.Region) (T, error)) indicatorAccessor {
	return func(s *earthDataService, ctx context.Context, year int, region model.Region) (any, error) {
		v, err := get(s, ctx, year, region)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

var indicatorAccessors = map[model.Indicator]indicatorAccessor{
	model.IndicatorNDVI:        accessor((*earthDataService).GetNDVIData),
	model.IndicatorGlacier:     accessor((*earthDataService).GetGlacierData),
	model.IndicatorUrban:       accessor((*earthDataService).GetUrbanData),
	model.IndicatorTemperature: accessor((*earthDataService).GetTemperatureData),
}

func (s *earthDataService) GetIndicatorData(ctx context.Context, indicator model.Indicator, year int, region model.Region) (any, error) {
	get, ok := indicatorAccessors[indicator]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIndicator, indicator)
	}
	return get(s, ctx, year, region)
}

func (s *earthDataService) PrefetchIndicators(ctx context.Context, year int, region model.Region) (map[model.Indicator]any, error) {
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	out := make(map[model.Indicator]any, len(model.Indicators))
	for _, indicator := range model.Indicators {
		g.Go(func() error {
			v, err := s.GetIndicatorData(gctx, indicator, year, region)
			if err != nil {
				return fmt.Errorf("prefetch %s: %w", indicator, err)
			}
			mu.Lock()
			out[indicator] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
