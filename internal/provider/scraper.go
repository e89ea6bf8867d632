package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pricepulse/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// snippetSelectors are tried in order; marketplace markup changes
// often, so the primary data-attribute selector has class-based
// fallbacks.
var snippetSelectors = []string{
	"[data-zone-name='productSnippet']",
	"article",
	"[class*='product']",
	"[class*='snippet']",
}

// HTMLScraper is the second link in the fallback chain: it fetches the
// marketplace search page directly and parses the server-rendered
// product snippets.
type HTMLScraper struct {
	client   *http.Client
	baseURL  string
	shopName string
	logger   *zap.Logger
}

func NewHTMLScraper(baseURL string, timeout time.Duration, logger *zap.Logger) *HTMLScraper {
	return &HTMLScraper{
		client:   &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(baseURL, "/"),
		shopName: "Яндекс.Маркет",
		logger:   logger,
	}
}

func (s *HTMLScraper) Name() string { return "html_scraper" }

func (s *HTMLScraper) Search(ctx context.Context, query string, limit int) ([]domain.RawItem, error) {
	searchURL := fmt.Sprintf("%s/search?text=%s&local-offers-first=0", s.baseURL, url.QueryEscape(query))

	body, err := s.fetch(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search page: %w", err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("data cannot be parsed as HTML: %w", err)
	}

	items := ParseSnippets(doc, s.baseURL, s.shopName, limit)
	s.logger.Info("Scraped search page",
		zap.String("query", query),
		zap.Int("items", len(items)),
	)
	return items, nil
}

func (s *HTMLScraper) Popular(ctx context.Context, category string, limit int) ([]domain.RawItem, error) {
	return s.Search(ctx, category+" популярные", limit)
}

func (s *HTMLScraper) fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request %s: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", rawURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("status code error: [%d] %s", resp.StatusCode, resp.Status)
	}

	return resp.Body, nil
}

// ParseSnippets extracts raw items from a search results document.
// Shared by the HTML scraper and the browser-automation provider,
// which produce the same markup through different transports.
func ParseSnippets(doc *goquery.Document, baseURL, shopName string, limit int) []domain.RawItem {
	var cards *goquery.Selection
	for _, selector := range snippetSelectors {
		cards = doc.Find(selector)
		if cards.Length() > 0 {
			break
		}
	}
	if cards == nil || cards.Length() == 0 {
		return nil
	}

	var items []domain.RawItem
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if len(items) >= limit {
			return false
		}
		if item, ok := parseCard(card, baseURL, shopName); ok {
			items = append(items, item)
		}
		return true
	})

	return items
}

func parseCard(card *goquery.Selection, baseURL, shopName string) (domain.RawItem, bool) {
	link := card.Find("a[href*='/product/']").First()

	title := strings.TrimSpace(link.AttrOr("title", ""))
	if title == "" {
		title = strings.TrimSpace(link.Text())
	}
	if len([]rune(title)) < 5 {
		title = strings.TrimSpace(card.Find("h3, h4, [class*='title'], [class*='name']").First().Text())
	}
	if len([]rune(title)) < 5 {
		return domain.RawItem{}, false
	}

	price := findPrice(card)
	if price <= 0 {
		return domain.RawItem{}, false
	}

	productURL := absolutizeURL(link.AttrOr("href", ""), baseURL)

	img := card.Find("img").First()
	image := img.AttrOr("src", "")
	if image == "" {
		image = img.AttrOr("data-src", "")
	}

	brand, model := ExtractBrandModel(title)

	return domain.RawItem{
		Title:      title,
		Brand:      brand,
		Model:      model,
		Price:      price,
		ShopName:   shopName,
		URL:        productURL,
		Image:      image,
		ProductID:  ExtractProductID(productURL),
		ObservedAt: time.Now().UTC(),
	}, true
}

var roublePattern = regexp.MustCompile(`([\d\s ]+[.,]?\d*)\s*(?:₽|руб)`)

func findPrice(card *goquery.Selection) float64 {
	price := ParsePrice(card.Find("[class*='price']").First().Text())
	if price > 0 {
		return price
	}

	// Fall back to scanning the card text for a rouble amount.
	if match := roublePattern.FindStringSubmatch(card.Text()); match != nil {
		return ParsePrice(match[1])
	}
	return 0
}

var priceDigits = regexp.MustCompile(`[^\d.,]`)

// ParsePrice extracts a numeric price from free text such as
// "71 990 ₽". Spaces (including non-breaking) are thousand separators,
// a comma is a decimal point. Returns 0 when nothing parses.
func ParsePrice(text string) float64 {
	cleaned := strings.NewReplacer(" ", "", " ", "", " ", "", ",", ".").Replace(text)
	cleaned = priceDigits.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return 0
	}

	// Keep only the first decimal point so "1.234.5" does not fail.
	if first := strings.Index(cleaned, "."); first != -1 {
		cleaned = cleaned[:first+1] + strings.ReplaceAll(cleaned[first+1:], ".", "")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}

func absolutizeURL(href, baseURL string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return baseURL + href
	}
	return baseURL + "/" + href
}
