package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestURLCache(t *testing.T) (*URLCache, *Store) {
	t.Helper()

	store, _ := newTestStore(t)
	logger, _ := zap.NewDevelopment()
	return NewURLCache(store, "https://market.example.com", 7*24*time.Hour, logger), store
}

func TestURLCache_ExistingURLWinsWhenValid(t *testing.T) {
	urls, _ := newTestURLCache(t)

	got := urls.Resolve(context.Background(), "Apple", "iPhone 15", "Apple iPhone 15", "https://shop.example.com/iphone15")
	assert.Equal(t, "https://shop.example.com/iphone15", got)
}

func TestURLCache_InvalidExistingURLFallsThrough(t *testing.T) {
	urls, _ := newTestURLCache(t)
	ctx := context.Background()

	urls.Save(ctx, "https://shop.example.com/real-product", "Apple", "iPhone 15", "")

	got := urls.Resolve(ctx, "Apple", "iPhone 15", "Apple iPhone 15", "https://shop.example.com/error/404")
	assert.Equal(t, "https://shop.example.com/real-product", got)
}

func TestURLCache_SyntheticSearchURLWhenNothingCached(t *testing.T) {
	urls, _ := newTestURLCache(t)

	got := urls.Resolve(context.Background(), "Samsung", "Galaxy S23", "Samsung Galaxy S23", "")
	assert.Contains(t, got, "https://market.example.com/search?")
	assert.Contains(t, got, "Galaxy+S23")
}

func TestURLCache_SyntheticURLNotCached(t *testing.T) {
	urls, store := newTestURLCache(t)
	ctx := context.Background()

	first := urls.Resolve(ctx, "Samsung", "Galaxy S23", "", "")
	assert.Contains(t, first, "/search?")

	// The synthetic link must not have been written back.
	_, ok := store.Get(ctx, "url:samsung:galaxy s23")
	assert.False(t, ok)
}

func TestURLCache_ResolveIsIdempotent(t *testing.T) {
	urls, _ := newTestURLCache(t)
	ctx := context.Background()

	first := urls.Resolve(ctx, "Xiaomi", "13", "Xiaomi 13", "")
	second := urls.Resolve(ctx, "Xiaomi", "13", "Xiaomi 13", "")
	assert.Equal(t, first, second)
}

func TestURLCache_TitleHashKeyWhenBrandGeneric(t *testing.T) {
	urls, _ := newTestURLCache(t)
	ctx := context.Background()

	urls.Save(ctx, "https://shop.example.com/product/42", "Не указан", "", "Некий телефон 128GB")

	got := urls.Resolve(ctx, "Не указан", "", "Некий телефон 128GB", "")
	assert.Equal(t, "https://shop.example.com/product/42", got)
}

func TestURLCache_SaveIgnoresInvalidURLs(t *testing.T) {
	urls, store := newTestURLCache(t)
	ctx := context.Background()

	urls.Save(ctx, "not-a-url", "Apple", "iPhone 15", "")
	urls.Save(ctx, "https://x.example.com/NotFound", "Apple", "iPhone 15", "")

	_, ok := store.Get(ctx, "url:apple:iphone 15")
	require.False(t, ok)
}

func TestValidURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://shop.example.com/product/1", true},
		{"http://shop.example.com/product/1", true},
		{"ftp://shop.example.com/product/1", false},
		{"http://x", false}, // too short
		{"https://shop.example.com/error/page", false},
		{"https://shop.example.com/404", false},
		{"https://shop.example.com/NotFound", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidURL(tt.url), tt.url)
	}
}
