package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawItem is one observed offer as returned by a single provider,
// before any grouping. Brand and model are free text and unreliable.
type RawItem struct {
	Title       string    `json:"title"`
	Brand       string    `json:"brand"`
	Model       string    `json:"model"`
	Price       float64   `json:"price"`
	ShopName    string    `json:"shop_name"`
	URL         string    `json:"url"`
	Image       string    `json:"image,omitempty"`
	Description string    `json:"description,omitempty"`
	ProductID   string    `json:"product_id,omitempty"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Usable reports whether the item carries enough data to be grouped.
// Items without a title or with a non-positive price are discarded.
func (r RawItem) Usable() bool {
	return strings.TrimSpace(r.Title) != "" && r.Price > 0
}

// PriceEntry is one shop's offer within a ProductGroup.
type PriceEntry struct {
	ShopName   string    `json:"shop_name"`
	Price      float64   `json:"price"`
	URL        string    `json:"url"`
	ObservedAt time.Time `json:"observed_at"`
}

// ProductGroup merges raw items judged to represent the same product.
// Representative fields come from the first item that created the group.
type ProductGroup struct {
	Key         string       `json:"-"`
	Title       string       `json:"title"`
	Brand       string       `json:"brand,omitempty"`
	Model       string       `json:"model,omitempty"`
	Image       string       `json:"image,omitempty"`
	Description string       `json:"description,omitempty"`
	Prices      []PriceEntry `json:"prices"`
	MinPrice    float64      `json:"min_price"`
	MaxPrice    float64      `json:"max_price"`
	ShopsCount  int          `json:"shops_count"`
}

// AddPrice appends an entry unless the shop already has one in this
// group. The first entry seen for a shop wins; later ones are dropped.
// Returns true if the entry was added.
func (g *ProductGroup) AddPrice(entry PriceEntry) bool {
	for _, p := range g.Prices {
		if p.ShopName == entry.ShopName {
			return false
		}
	}
	g.Prices = append(g.Prices, entry)
	g.Recalc()
	return true
}

// Recalc recomputes MinPrice, MaxPrice and ShopsCount from the current
// price entries. Must be called whenever the entry set changes.
func (g *ProductGroup) Recalc() {
	g.ShopsCount = len(g.Prices)
	if len(g.Prices) == 0 {
		g.MinPrice = 0
		g.MaxPrice = 0
		return
	}
	g.MinPrice = g.Prices[0].Price
	g.MaxPrice = g.Prices[0].Price
	for _, p := range g.Prices[1:] {
		if p.Price < g.MinPrice {
			g.MinPrice = p.Price
		}
		if p.Price > g.MaxPrice {
			g.MaxPrice = p.Price
		}
	}
}

// SearchResult is the merged, deduplicated output handed to transport.
// Total counts all groups before pagination.
type SearchResult struct {
	Results []ProductGroup `json:"results"`
	Total   int            `json:"total"`
}

// CatalogProduct is a product row from the local catalog database.
type CatalogProduct struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Image     string    `json:"image" db:"image"`
	Price     float64   `json:"price" db:"price"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Shop is a known retailer in the local catalog.
type Shop struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
