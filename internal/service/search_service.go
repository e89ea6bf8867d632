package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pricepulse/internal/aggregate"
	"pricepulse/internal/cache"
	"pricepulse/internal/domain"
	"pricepulse/internal/merge"
	"pricepulse/internal/provider"
	"pricepulse/internal/repository"

	"go.uber.org/zap"
)

const (
	// DefaultFetchTimeout bounds a single provider call. Browser
	// automation has no intrinsic bound, so the wall clock is the
	// only thing standing between a stuck page and a stuck caller.
	DefaultFetchTimeout = 60 * time.Second

	// popularTTLCeiling caps the popular-listing cache lifetime:
	// popularity shifts faster than its recompute cost justifies.
	popularTTLCeiling = time.Hour
)

// SearchService is the aggregation pipeline's public surface.
type SearchService interface {
	Search(ctx context.Context, query string, useCache bool, limit int) (domain.SearchResult, error)
	Popular(ctx context.Context, category string, limit int, useCache bool) (domain.SearchResult, error)
	ClearCache(ctx context.Context, pattern string) int
	CacheStats(ctx context.Context) cache.Stats
}

// Options tunes the service; zero values fall back to defaults.
type Options struct {
	SearchTTL    time.Duration
	PopularTTL   time.Duration
	FetchTimeout time.Duration
}

type searchService struct {
	providers    []provider.Provider
	store        *cache.Store
	urls         *cache.URLCache
	catalog      repository.CatalogRepository
	searchTTL    time.Duration
	popularTTL   time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger
}

// NewSearchService wires the fallback chain. Providers are tried in
// the given order; the first non-empty result wins.
func NewSearchService(
	providers []provider.Provider,
	store *cache.Store,
	urls *cache.URLCache,
	catalog repository.CatalogRepository,
	opts Options,
	logger *zap.Logger,
) SearchService {
	if opts.SearchTTL <= 0 {
		opts.SearchTTL = 3 * time.Hour
	}
	if opts.PopularTTL <= 0 || opts.PopularTTL > popularTTLCeiling {
		opts.PopularTTL = popularTTLCeiling
	}
	if opts.PopularTTL > opts.SearchTTL {
		opts.PopularTTL = opts.SearchTTL
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}

	return &searchService{
		providers:    providers,
		store:        store,
		urls:         urls,
		catalog:      catalog,
		searchTTL:    opts.SearchTTL,
		popularTTL:   opts.PopularTTL,
		fetchTimeout: opts.FetchTimeout,
		logger:       logger,
	}
}

// Search locates offers for a query across the provider chain and the
// local catalog and returns one deduplicated, price-sorted, merged
// list. Provider and cache failures degrade to fewer results; an
// all-empty chain is a valid empty result, not an error.
func (s *searchService) Search(ctx context.Context, query string, useCache bool, limit int) (domain.SearchResult, error) {
	key := cache.SearchKey(query)

	var items []domain.RawItem
	cached := false

	if useCache {
		if payload, ok := s.store.Get(ctx, key); ok {
			if err := json.Unmarshal([]byte(payload), &items); err != nil {
				s.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
				items = nil
			} else {
				cached = true
				s.logger.Info("Search served from cache", zap.String("query", query))
			}
		}
	}

	if !cached {
		items = s.fetchChain(ctx, query, limit, func(ctx context.Context, p provider.Provider) ([]domain.RawItem, error) {
			return p.Search(ctx, query, limit)
		})
		if len(items) > 0 {
			s.writeBack(ctx, key, items, s.searchTTL)
		}
	}

	groups := aggregate.Aggregate(items)
	s.resolveURLs(ctx, groups)

	catalogGroups := s.catalogSearch(ctx, query, limit)

	merged := merge.Interleave(groups, catalogGroups, nil)
	return domain.SearchResult{Results: merged, Total: len(merged)}, nil
}

// Popular returns the popular listing for a category. The static
// provider terminates the chain with a fixed non-empty list, so the
// operation never yields empty.
func (s *searchService) Popular(ctx context.Context, category string, limit int, useCache bool) (domain.SearchResult, error) {
	key := cache.PopularKey(category, limit)

	if useCache {
		if payload, ok := s.store.Get(ctx, key); ok {
			var groups []domain.ProductGroup
			if err := json.Unmarshal([]byte(payload), &groups); err == nil {
				s.logger.Info("Popular listing served from cache", zap.String("category", category))
				return domain.SearchResult{Results: groups, Total: len(groups)}, nil
			}
			s.logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
		}
	}

	items := s.fetchChain(ctx, category, limit, func(ctx context.Context, p provider.Provider) ([]domain.RawItem, error) {
		return p.Popular(ctx, category, limit)
	})

	groups := aggregate.Aggregate(items)
	s.resolveURLs(ctx, groups)

	catalogGroups := s.catalogPopular(ctx, limit)
	merged := merge.Interleave(groups, catalogGroups, nil)

	if len(merged) > 0 {
		s.writeBack(ctx, key, merged, s.popularTTL)
	}

	return domain.SearchResult{Results: merged, Total: len(merged)}, nil
}

// ClearCache removes cache entries matching the glob pattern.
func (s *searchService) ClearCache(ctx context.Context, pattern string) int {
	return s.store.DeleteMatching(ctx, pattern)
}

// CacheStats reports the cache store's basic counters.
func (s *searchService) CacheStats(ctx context.Context) cache.Stats {
	return s.store.Stats(ctx)
}

type fetchOp func(ctx context.Context, p provider.Provider) ([]domain.RawItem, error)

// fetchChain walks the provider priority order and returns the first
// non-empty result. A provider that errors, panics or times out is
// treated as empty and logged; it never halts the chain.
func (s *searchService) fetchChain(ctx context.Context, query string, limit int, op fetchOp) []domain.RawItem {
	for _, p := range s.providers {
		items := s.callProvider(ctx, p, op)

		usable, dropped := provider.FilterUsable(items)
		if dropped > 0 {
			s.logger.Debug("Dropped unusable items",
				zap.String("provider", p.Name()),
				zap.Int("dropped", dropped),
			)
		}

		if len(usable) > 0 {
			s.logger.Info("Provider answered",
				zap.String("provider", p.Name()),
				zap.String("query", query),
				zap.Int("items", len(usable)),
			)
			return usable
		}
	}

	s.logger.Info("All providers returned empty", zap.String("query", query))
	return nil
}

// callProvider runs one provider call on its own goroutine under the
// fetch timeout, so a blocking provider cannot stall the caller. On
// timeout the call is abandoned (its context is cancelled, releasing
// any browser resources) and the chain advances.
func (s *searchService) callProvider(ctx context.Context, p provider.Provider, op fetchOp) []domain.RawItem {
	callCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	type outcome struct {
		items []domain.RawItem
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("provider panicked: %v", r)}
			}
		}()
		items, err := op(callCtx, p)
		done <- outcome{items: items, err: err}
	}()

	select {
	case <-callCtx.Done():
		s.logger.Warn("Provider timed out",
			zap.String("provider", p.Name()),
			zap.Duration("timeout", s.fetchTimeout),
		)
		return nil
	case out := <-done:
		if out.err != nil {
			s.logger.Warn("Provider failed",
				zap.String("provider", p.Name()),
				zap.Error(out.err),
			)
			return nil
		}
		return out.items
	}
}

// resolveURLs backfills a clickable purchase URL on every price entry
// and opportunistically saves genuinely resolved URLs for later.
func (s *searchService) resolveURLs(ctx context.Context, groups []domain.ProductGroup) {
	for gi := range groups {
		g := &groups[gi]
		for pi := range g.Prices {
			entry := &g.Prices[pi]
			if cache.ValidURL(entry.URL) {
				s.urls.Save(ctx, entry.URL, g.Brand, g.Model, g.Title)
				continue
			}
			entry.URL = s.urls.Resolve(ctx, g.Brand, g.Model, g.Title, entry.URL)
		}
	}
}

func (s *searchService) catalogSearch(ctx context.Context, query string, limit int) []domain.ProductGroup {
	if s.catalog == nil {
		return nil
	}
	groups, _, err := s.catalog.Search(ctx, query, limit)
	if err != nil {
		s.logger.Warn("Catalog search failed", zap.Error(err))
		return nil
	}
	return groups
}

func (s *searchService) catalogPopular(ctx context.Context, limit int) []domain.ProductGroup {
	if s.catalog == nil {
		return nil
	}
	groups, err := s.catalog.Popular(ctx, limit)
	if err != nil {
		s.logger.Warn("Catalog listing failed", zap.Error(err))
		return nil
	}
	return groups
}

func (s *searchService) writeBack(ctx context.Context, key string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("Failed to serialize cache payload", zap.String("key", key), zap.Error(err))
		return
	}
	s.store.Set(ctx, key, string(payload), ttl)
}
