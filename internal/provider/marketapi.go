package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"pricepulse/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const marketAPIPageSize = 30 // partner API caps page size at 30

// MarketAPI is the structured-API provider. It talks to a marketplace
// partner API with an OAuth token and is the first link in the
// fallback chain.
type MarketAPI struct {
	client   *resty.Client
	shopName string
	logger   *zap.Logger

	// mu guards campaignID: discovery is lazy and Search runs on
	// per-call goroutines, so concurrent searches share this field.
	mu         sync.Mutex
	campaignID string
}

// offersResponse covers the response shapes the partner API is known
// to produce; only one of the lists is populated per endpoint.
type offersResponse struct {
	SearchResults struct {
		Items []offerPayload `json:"items"`
	} `json:"searchResults"`
	Offers []offerPayload `json:"offers"`
	Items  []offerPayload `json:"items"`
}

type offerPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Vendor      string  `json:"vendor"`
	Model       string  `json:"model"`
	Price       float64 `json:"price"`
	BasicPrice  float64 `json:"basicPrice"`
	URL         string  `json:"url"`
	Picture     string  `json:"picture"`
	Description string  `json:"description"`
}

type campaignsResponse struct {
	Campaigns []struct {
		ID int64 `json:"id"`
	} `json:"campaigns"`
}

// NewMarketAPI builds the provider. An empty token produces a client
// that reports itself unconfigured and always returns empty results.
func NewMarketAPI(baseURL, token, campaignID string, logger *zap.Logger) *MarketAPI {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		client.SetHeader("Authorization", "OAuth "+token)
	}

	return &MarketAPI{
		client:     client,
		campaignID: campaignID,
		shopName:   "Яндекс.Маркет",
		logger:     logger,
	}
}

func (m *MarketAPI) Name() string { return "market_api" }

// Search queries campaign offers. Authorization and availability
// problems are logged and surface as empty results, not errors, so
// the fallback chain can move on.
func (m *MarketAPI) Search(ctx context.Context, query string, limit int) ([]domain.RawItem, error) {
	if m.client.Header.Get("Authorization") == "" {
		m.logger.Debug("Market API token not configured, skipping")
		return nil, nil
	}

	campaignID, err := m.resolveCampaign(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve campaign: %w", err)
	}
	if campaignID == "" {
		m.logger.Warn("Market API has no campaigns available")
		return nil, nil
	}

	count := limit
	if count > marketAPIPageSize {
		count = marketAPIPageSize
	}

	var payload offersResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query": query,
			"count": strconv.Itoa(count),
			"page":  "1",
		}).
		SetResult(&payload).
		Get(fmt.Sprintf("/campaigns/%s/offers", campaignID))
	if err != nil {
		return nil, fmt.Errorf("market api request: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		m.logger.Warn("Market API rejected credentials", zap.Int("status", resp.StatusCode()))
		return nil, nil
	case http.StatusNotFound:
		m.logger.Warn("Market API endpoint not found")
		return nil, nil
	default:
		m.logger.Warn("Market API error response",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", truncate(resp.String(), 200)),
		)
		return nil, nil
	}

	items := m.mapOffers(payload, limit)
	m.logger.Info("Market API returned offers", zap.String("query", query), zap.Int("count", len(items)))
	return items, nil
}

// Popular maps a category listing onto a search for that category.
func (m *MarketAPI) Popular(ctx context.Context, category string, limit int) ([]domain.RawItem, error) {
	return m.Search(ctx, category, limit)
}

func (m *MarketAPI) resolveCampaign(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.campaignID != "" {
		return m.campaignID, nil
	}

	var payload campaignsResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetResult(&payload).
		Get("/campaigns")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK || len(payload.Campaigns) == 0 {
		return "", nil
	}

	m.campaignID = strconv.FormatInt(payload.Campaigns[0].ID, 10)
	m.logger.Info("Resolved market API campaign", zap.String("campaign_id", m.campaignID))
	return m.campaignID, nil
}

func (m *MarketAPI) mapOffers(payload offersResponse, limit int) []domain.RawItem {
	offers := payload.SearchResults.Items
	if len(offers) == 0 {
		offers = payload.Offers
	}
	if len(offers) == 0 {
		offers = payload.Items
	}

	items := make([]domain.RawItem, 0, len(offers))
	for _, offer := range offers {
		if len(items) >= limit {
			break
		}

		price := offer.Price
		if price == 0 {
			price = offer.BasicPrice
		}

		brand := offer.Vendor
		model := offer.Model
		if brand == "" || model == "" {
			inferredBrand, inferredModel := ExtractBrandModel(offer.Name)
			if brand == "" {
				brand = inferredBrand
			}
			if model == "" {
				model = inferredModel
			}
		}

		item := domain.RawItem{
			Title:       offer.Name,
			Brand:       brand,
			Model:       model,
			Price:       price,
			ShopName:    m.shopName,
			URL:         offer.URL,
			Image:       offer.Picture,
			Description: offer.Description,
			ProductID:   offer.ID,
			ObservedAt:  time.Now().UTC(),
		}
		if !item.Usable() {
			continue
		}
		items = append(items, item)
	}

	return items
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
