package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const searchPageFixture = `
<html><body>
	<div data-zone-name='productSnippet'>
		<a href="/product/111" title="Смартфон Apple iPhone 15 128GB"></a>
		<span class="snippet-price">79 990 ₽</span>
		<img src="https://cdn.example/iphone.jpg"/>
	</div>
	<div data-zone-name='productSnippet'>
		<a href="/product/222"><h3>Samsung Galaxy S23 256GB</h3></a>
		<div>цена: 69 990 руб</div>
	</div>
	<div data-zone-name='productSnippet'>
		<a href="/product/333" title="Товар без цены в карточке"></a>
	</div>
</body></html>`

func fixtureDoc(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(searchPageFixture))
	require.NoError(t, err)
	return doc
}

func TestParseSnippets(t *testing.T) {
	items := ParseSnippets(fixtureDoc(t), "https://market.example", "Тестовый магазин", 10)
	require.Len(t, items, 2, "the card without a price must be skipped")

	first := items[0]
	assert.Equal(t, "Смартфон Apple iPhone 15 128GB", first.Title)
	assert.Equal(t, "Apple", first.Brand)
	assert.Equal(t, 79990.0, first.Price)
	assert.Equal(t, "Тестовый магазин", first.ShopName)
	assert.Equal(t, "https://market.example/product/111", first.URL)
	assert.Equal(t, "111", first.ProductID)
	assert.Equal(t, "https://cdn.example/iphone.jpg", first.Image)

	second := items[1]
	assert.Equal(t, "Samsung Galaxy S23 256GB", second.Title)
	assert.Equal(t, 69990.0, second.Price, "price must be recoverable from the card text")
}

func TestParseSnippets_Limit(t *testing.T) {
	items := ParseSnippets(fixtureDoc(t), "https://market.example", "shop", 1)
	assert.Len(t, items, 1)
}

func TestParseSnippets_NoCards(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><p>ничего не найдено</p></body></html>"))
	require.NoError(t, err)

	assert.Empty(t, ParseSnippets(doc, "https://market.example", "shop", 10))
}

func TestHTMLScraperSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "iphone 15", r.URL.Query().Get("text"))
		w.Write([]byte(searchPageFixture))
	}))
	defer srv.Close()

	scraper := NewHTMLScraper(srv.URL, 5*time.Second, zap.NewNop())

	items, err := scraper.Search(context.Background(), "iphone 15", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Яндекс.Маркет", items[0].ShopName)
}

func TestHTMLScraperSearch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	scraper := NewHTMLScraper(srv.URL, 5*time.Second, zap.NewNop())

	_, err := scraper.Search(context.Background(), "iphone", 10)
	assert.Error(t, err)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"79 990 ₽", 79990},
		{"1 234,50 руб", 1234.5},
		{"49990", 49990},
		{"от 12 990 ₽", 12990},
		{"цена по запросу", 0},
		{"", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePrice(tt.text), "text: %q", tt.text)
	}
}

func TestAbsolutizeURL(t *testing.T) {
	base := "https://market.example"

	assert.Equal(t, "https://other.example/p/1", absolutizeURL("https://other.example/p/1", base))
	assert.Equal(t, "https://market.example/product/5", absolutizeURL("/product/5", base))
	assert.Equal(t, "https://market.example/product/5", absolutizeURL("product/5", base))
	assert.Equal(t, "", absolutizeURL("  ", base))
}
