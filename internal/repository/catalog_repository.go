package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pricepulse/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// DefaultShopName labels catalog products that have a price but no
// listing row pointing at a real shop.
const DefaultShopName = "Каталог"

// CatalogRepository supplies the local-catalog side of the merge: the
// same canonical group shape, sourced from the relational store.
type CatalogRepository interface {
	Search(ctx context.Context, query string, limit int) ([]domain.ProductGroup, int, error)
	Popular(ctx context.Context, limit int) ([]domain.ProductGroup, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductGroup, error)
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// groupQuery selects catalog products with the latest price per
// listing. Products without listings still appear with NULL listing
// columns and fall back to their own price column.
const groupQuery = `
	SELECT p.id, p.title, p.image, p.price,
	       s.name, l.url, lp.price, lp.observed_at
	FROM products p
	LEFT JOIN listings l ON l.product_id = p.id
	LEFT JOIN shops s ON s.id = l.shop_id
	LEFT JOIN LATERAL (
		SELECT price, observed_at
		FROM prices
		WHERE listing_id = l.id
		ORDER BY observed_at DESC
		LIMIT 1
	) lp ON true
`

// Search retrieves catalog products whose title matches the query,
// mapped to product groups.
func (r *catalogRepository) Search(ctx context.Context, query string, limit int) ([]domain.ProductGroup, int, error) {
	if strings.TrimSpace(query) == "" {
		groups, err := r.Popular(ctx, limit)
		return groups, len(groups), err
	}

	pattern := "%" + query + "%"

	var total int
	countQuery := `SELECT COUNT(*) FROM products WHERE title ILIKE $1`
	if err := r.db.QueryRowContext(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count catalog products: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, groupQuery+`
		WHERE p.title ILIKE $1
		ORDER BY p.created_at DESC, p.id
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search catalog products: %w", err)
	}
	defer rows.Close()

	groups, err := scanGroups(rows)
	if err != nil {
		return nil, 0, err
	}

	return groups, total, nil
}

// Popular retrieves the newest catalog products.
func (r *catalogRepository) Popular(ctx context.Context, limit int) ([]domain.ProductGroup, error) {
	rows, err := r.db.QueryContext(ctx, groupQuery+`
		ORDER BY p.created_at DESC, p.id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog products: %w", err)
	}
	defer rows.Close()

	return scanGroups(rows)
}

// FindByID retrieves a single catalog product as a group.
func (r *catalogRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductGroup, error) {
	rows, err := r.db.QueryContext(ctx, groupQuery+`
		WHERE p.id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find catalog product: %w", err)
	}
	defer rows.Close()

	groups, err := scanGroups(rows)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrProductNotFound
	}

	return &groups[0], nil
}

// scanGroups folds the joined rows (one row per product-listing pair)
// into product groups, preserving row order across products.
func scanGroups(rows *sql.Rows) ([]domain.ProductGroup, error) {
	type productRow struct {
		group     *domain.ProductGroup
		ownPrice  sql.NullFloat64
		hasOffers bool
	}

	byID := make(map[uuid.UUID]*productRow)
	var order []uuid.UUID

	for rows.Next() {
		var (
			id         uuid.UUID
			title      string
			image      sql.NullString
			price      sql.NullFloat64
			shopName   sql.NullString
			listingURL sql.NullString
			shopPrice  sql.NullFloat64
			observedAt sql.NullTime
		)

		if err := rows.Scan(&id, &title, &image, &price, &shopName, &listingURL, &shopPrice, &observedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}

		row, exists := byID[id]
		if !exists {
			row = &productRow{
				group: &domain.ProductGroup{
					Key:   "catalog:" + id.String(),
					Title: title,
					Image: image.String,
				},
				ownPrice: price,
			}
			byID[id] = row
			order = append(order, id)
		}

		if shopName.Valid && shopPrice.Valid {
			row.hasOffers = true
			row.group.AddPrice(domain.PriceEntry{
				ShopName:   shopName.String,
				Price:      shopPrice.Float64,
				URL:        listingURL.String,
				ObservedAt: observedAt.Time,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog rows: %w", err)
	}

	groups := make([]domain.ProductGroup, 0, len(order))
	for _, id := range order {
		row := byID[id]
		if !row.hasOffers && row.ownPrice.Valid && row.ownPrice.Float64 > 0 {
			// No shop offers known; show the product's own price.
			row.group.AddPrice(domain.PriceEntry{
				ShopName: DefaultShopName,
				Price:    row.ownPrice.Float64,
			})
		}
		row.group.Recalc()
		groups = append(groups, *row.group)
	}

	return groups, nil
}
