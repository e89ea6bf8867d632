package provider

import (
	"context"
	"strings"
	"time"

	"pricepulse/internal/domain"
)

// Static is the terminal link in the fallback chain. Popular always
// yields a fixed non-empty list, which guarantees the popular-items
// operation never comes back empty even when every upstream is down.
type Static struct{}

func NewStatic() *Static { return &Static{} }

func (s *Static) Name() string { return "static" }

func staticItems() []domain.RawItem {
	now := time.Now().UTC()
	return []domain.RawItem{
		{
			Title:       "Смартфон Apple iPhone 15 128GB",
			Brand:       "Apple",
			Model:       "iPhone 15",
			Price:       79990,
			ShopName:    "Mock Shop",
			URL:         "https://example.com/iphone15",
			Image:       "https://via.placeholder.com/400x400/000000/FFFFFF?text=iPhone+15",
			Description: "Смартфон Apple iPhone 15 с дисплеем 6.1 дюйма, процессором A16 Bionic и камерой 48 МП",
			ProductID:   "mock_iphone15",
			ObservedAt:  now,
		},
		{
			Title:       "Смартфон Samsung Galaxy S23 256GB",
			Brand:       "Samsung",
			Model:       "Galaxy S23",
			Price:       69990,
			ShopName:    "Mock Shop",
			URL:         "https://example.com/galaxy-s23",
			Image:       "https://via.placeholder.com/400x400/1428A0/FFFFFF?text=Galaxy+S23",
			Description: "Смартфон Samsung Galaxy S23 с камерой 50 МП, процессором Snapdragon 8 Gen 2",
			ProductID:   "mock_samsung_s23",
			ObservedAt:  now,
		},
		{
			Title:       "Смартфон Xiaomi 13 256GB",
			Brand:       "Xiaomi",
			Model:       "13",
			Price:       49990,
			ShopName:    "Mock Shop",
			URL:         "https://example.com/xiaomi13",
			Image:       "https://via.placeholder.com/400x400/FF6900/FFFFFF?text=Xiaomi+13",
			Description: "Смартфон Xiaomi 13 с процессором Snapdragon 8 Gen 2, камерой Leica 50 МП",
			ProductID:   "mock_xiaomi13",
			ObservedAt:  now,
		},
	}
}

// Search filters the static list by case-insensitive substring match
// against title, brand and model.
func (s *Static) Search(_ context.Context, query string, limit int) ([]domain.RawItem, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	var items []domain.RawItem
	for _, item := range staticItems() {
		if len(items) >= limit {
			break
		}
		haystack := strings.ToLower(item.Title + " " + item.Brand + " " + item.Model)
		if needle == "" || strings.Contains(haystack, needle) {
			items = append(items, item)
		}
	}
	return items, nil
}

// Popular returns the fixed list regardless of category; it is never
// empty for limit >= 1.
func (s *Static) Popular(_ context.Context, _ string, limit int) ([]domain.RawItem, error) {
	items := staticItems()
	if limit < len(items) && limit > 0 {
		items = items[:limit]
	}
	return items, nil
}
