package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (CatalogRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewCatalogRepository(db), mock
}

func groupRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "image", "price",
		"name", "url", "lp_price", "observed_at",
	})
}

func TestCatalogSearch_FoldsListingsIntoGroups(t *testing.T) {
	repo, mock := newMockRepo(t)

	withOffers := uuid.New()
	withoutOffers := uuid.New()
	observed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products`).
		WithArgs("%galaxy%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	mock.ExpectQuery(`SELECT p\.id, p\.title`).
		WithArgs("%galaxy%", 10).
		WillReturnRows(groupRows().
			AddRow(withOffers.String(), "Samsung Galaxy S23", "https://cdn.example/s23.jpg", 72000,
				"Shop A", "https://shopa.example/s23", 69990, observed).
			AddRow(withOffers.String(), "Samsung Galaxy S23", "https://cdn.example/s23.jpg", 72000,
				"Shop B", "https://shopb.example/s23", 71000, observed).
			AddRow(withoutOffers.String(), "Samsung Galaxy A54", nil, 34990,
				nil, nil, nil, nil))

	groups, total, err := repo.Search(context.Background(), "galaxy", 10)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 2, total)
	require.Len(t, groups, 2)

	s23 := groups[0]
	assert.Equal(t, "catalog:"+withOffers.String(), s23.Key)
	assert.Equal(t, 2, s23.ShopsCount)
	assert.Equal(t, 69990.0, s23.MinPrice)
	assert.Equal(t, 71000.0, s23.MaxPrice)

	a54 := groups[1]
	require.Len(t, a54.Prices, 1)
	assert.Equal(t, DefaultShopName, a54.Prices[0].ShopName, "a product with no listings falls back to its own price")
	assert.Equal(t, 34990.0, a54.MinPrice)
}

func TestCatalogSearch_BlankQueryListsNewest(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectQuery(`SELECT p\.id, p\.title`).
		WithArgs(5).
		WillReturnRows(groupRows().
			AddRow(id.String(), "iPhone 15", nil, 79990, nil, nil, nil, nil))

	groups, total, err := repo.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 1, total)
	require.Len(t, groups, 1)
	assert.Equal(t, "iPhone 15", groups[0].Title)
}

func TestCatalogSearch_CountError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products`).
		WithArgs("%x%").
		WillReturnError(sql.ErrConnDone)

	_, _, err := repo.Search(context.Background(), "x", 10)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestCatalogPopular_Empty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT p\.id, p\.title`).
		WithArgs(3).
		WillReturnRows(groupRows())

	groups, err := repo.Popular(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestCatalogFindByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	observed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT p\.id, p\.title`).
		WithArgs(id).
		WillReturnRows(groupRows().
			AddRow(id.String(), "Xiaomi 13", nil, nil,
				"Shop A", "https://shopa.example/mi13", 49990, observed))

	group, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "catalog:"+id.String(), group.Key)
	assert.Equal(t, 49990.0, group.MinPrice)
	assert.Equal(t, 1, group.ShopsCount)
}

func TestCatalogFindByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectQuery(`SELECT p\.id, p\.title`).
		WithArgs(id).
		WillReturnRows(groupRows())

	_, err := repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
