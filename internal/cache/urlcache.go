package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// genericValues are placeholder brand/model values emitted by
// providers when extraction failed; they carry no identity and must
// not become part of a cache key.
var genericValues = map[string]struct{}{
	"":           {},
	"не указан":  {},
	"не указана": {},
	"unknown":    {},
	"n/a":        {},
}

// deniedPathFragments mark URLs that point at error or placeholder
// pages rather than a product.
var deniedPathFragments = []string{
	"/proc", "/error", "/404", "/common", "/Common", "/NotFound",
}

// URLCache resolves and backfills canonical purchase URLs so that a
// clickable link does not require a fresh scrape. Entries live much
// longer than search results.
type URLCache struct {
	store     *Store
	searchURL string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewURLCache builds a URL cache on top of an existing Store.
// searchBase is the marketplace search page used for synthetic links.
func NewURLCache(store *Store, searchBase string, ttl time.Duration, logger *zap.Logger) *URLCache {
	return &URLCache{
		store:     store,
		searchURL: strings.TrimRight(searchBase, "/") + "/search",
		ttl:       ttl,
		logger:    logger,
	}
}

// Resolve returns the best available URL for a product, in priority
// order: a valid existingURL, a cached URL, then a synthesized search
// link. Synthetic links are never written back, so only genuinely
// resolved URLs get cemented.
func (c *URLCache) Resolve(ctx context.Context, brand, model, title, existingURL string) string {
	if u := strings.TrimSpace(existingURL); u != "" && ValidURL(u) {
		return u
	}

	if key := cacheKey(brand, model, title); key != "" {
		if cached, ok := c.store.Get(ctx, key); ok && ValidURL(cached) {
			return cached
		}
	}

	return c.buildSearchURL(brand, model, title)
}

// Save stores a resolved URL under the brand/model (or title-hash) key.
// Called opportunistically whenever aggregation observes a real URL.
func (c *URLCache) Save(ctx context.Context, rawURL, brand, model, title string) {
	u := strings.TrimSpace(rawURL)
	if u == "" || !ValidURL(u) {
		return
	}

	key := cacheKey(brand, model, title)
	if key == "" {
		return
	}

	c.store.Set(ctx, key, u, c.ttl)
	c.logger.Debug("Saved product URL", zap.String("key", key))
}

// ValidURL reports whether u looks like a usable absolute product
// link: http(s), long enough, and not a known error/placeholder path.
func ValidURL(u string) bool {
	if len(u) < 10 {
		return false
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return false
	}
	for _, fragment := range deniedPathFragments {
		if strings.Contains(u, fragment) {
			return false
		}
	}
	return true
}

// cacheKey prefers brand+model when both carry real values, falls back
// to a short digest of the normalized title, and returns "" when
// nothing usable is available.
func cacheKey(brand, model, title string) string {
	b := strings.ToLower(strings.TrimSpace(brand))
	m := strings.ToLower(strings.TrimSpace(model))

	_, genericBrand := genericValues[b]
	_, genericModel := genericValues[m]
	if !genericBrand && !genericModel {
		return "url:" + b + ":" + m
	}

	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return ""
	}

	// md5 is used only as a short stable digest, not for security.
	sum := md5.Sum([]byte(t))
	return "url:title:" + hex.EncodeToString(sum[:])[:12]
}

func (c *URLCache) buildSearchURL(brand, model, title string) string {
	query := searchQuery(brand, model, title)

	params := url.Values{}
	if query != "" {
		params.Set("text", query)
	}
	if b := strings.TrimSpace(brand); b != "" {
		if _, generic := genericValues[strings.ToLower(b)]; !generic {
			params.Set("vendor", b)
		}
	}
	params.Set("how", "aprice")

	return c.searchURL + "?" + params.Encode()
}

// searchQuery prefers brand+model over the bare title.
func searchQuery(brand, model, title string) string {
	b := strings.TrimSpace(brand)
	m := strings.TrimSpace(model)

	_, genericBrand := genericValues[strings.ToLower(b)]
	_, genericModel := genericValues[strings.ToLower(m)]
	if !genericBrand && !genericModel {
		return b + " " + m
	}

	return strings.TrimSpace(title)
}
