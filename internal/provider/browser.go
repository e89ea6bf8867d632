package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"pricepulse/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Browser drives a headless Chrome to render JavaScript-built search
// pages that the plain HTML scraper cannot see. It is the most
// expensive link in the fallback chain and always runs under an
// explicit wall-clock timeout; a fresh browser context is created and
// torn down per call so a timeout cannot leak a Chrome process.
type Browser struct {
	baseURL  string
	shopName string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewBrowser(baseURL string, timeout time.Duration, logger *zap.Logger) *Browser {
	return &Browser{
		baseURL:  strings.TrimRight(baseURL, "/"),
		shopName: "Яндекс.Маркет",
		timeout:  timeout,
		logger:   logger,
	}
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) Search(ctx context.Context, query string, limit int) ([]domain.RawItem, error) {
	searchURL := fmt.Sprintf("%s/search?text=%s", b.baseURL, url.QueryEscape(query))

	html, err := b.renderPage(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("failed to render search page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("rendered page cannot be parsed as HTML: %w", err)
	}

	items := ParseSnippets(doc, b.baseURL, b.shopName, limit)
	b.logger.Info("Browser scraped search page",
		zap.String("query", query),
		zap.Int("items", len(items)),
	)
	return items, nil
}

func (b *Browser) Popular(ctx context.Context, category string, limit int) ([]domain.RawItem, error) {
	return b.Search(ctx, category, limit)
}

// renderPage navigates to rawURL, waits for product snippets to
// appear and returns the fully rendered document. All chromedp
// contexts hang off the deadline context, so cancellation on any exit
// path shuts the browser down.
func (b *Browser) renderPage(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(rawURL),
		chromedp.Sleep(3*time.Second),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, selector := range snippetSelectors {
				var nodes []*cdp.Node
				if err := chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)).Do(ctx); err == nil && len(nodes) > 0 {
					return nil
				}
			}
			return fmt.Errorf("no product snippets found on page")
		}),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", err
	}

	return html, nil
}
