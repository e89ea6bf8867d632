package transport

import (
	"net/http"
	"strconv"
	"strings"

	"pricepulse/internal/domain"
	"pricepulse/internal/middleware"
	"pricepulse/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultLimit     = 50
	maxLimit         = 100
	defaultFetchSize = 50
	maxFetchSize     = 200
)

// SearchResponse is the paginated payload for search and popular
// endpoints.
type SearchResponse struct {
	Results []domain.ProductGroup `json:"results"`
	Total   int                   `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// ClearCacheRequest is the admin cache-clear payload
type ClearCacheRequest struct {
	Pattern string `json:"pattern" validate:"required,min=1"`
}

// ClearCacheResponse reports how many keys were removed
type ClearCacheResponse struct {
	Deleted int `json:"deleted"`
}

// SearchHandler handles HTTP requests for product search operations
type SearchHandler struct {
	searchService service.SearchService
	logger        *zap.Logger
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(searchService service.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// RegisterRoutes registers all search routes
func (h *SearchHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/search", h.Search)
		r.Get("/popular", h.Popular)
	})

	r.Route("/api/cache", func(r chi.Router) {
		r.Post("/clear", h.ClearCache)
		r.Get("/stats", h.CacheStats)
	})
}

// Search handles product search across external providers and the
// local catalog
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := queryInt(r, "limit", defaultLimit, maxLimit)
	offset := queryInt(r, "offset", 0, 1<<30)
	useCache := queryBool(r, "use_cache", true)

	result, err := h.searchService.Search(r.Context(), query, useCache, fetchSize(limit, offset))
	if err != nil {
		h.logger.Error("Search failed", zap.String("query", query), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "search failed")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, paginate(result, limit, offset))
}

// Popular handles the popular-products listing
func (h *SearchHandler) Popular(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		category = "смартфон"
	}

	limit := queryInt(r, "limit", 3, maxLimit)
	useCache := queryBool(r, "use_cache", true)

	result, err := h.searchService.Popular(r.Context(), category, limit, useCache)
	if err != nil {
		h.logger.Error("Popular listing failed", zap.String("category", category), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "popular listing failed")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, paginate(result, limit, 0))
}

// ClearCache handles administrative cache invalidation
func (h *SearchHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	var req ClearCacheRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Cache clear validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deleted := h.searchService.ClearCache(r.Context(), req.Pattern)
	middleware.RespondWithJSON(w, http.StatusOK, ClearCacheResponse{Deleted: deleted})
}

// CacheStats reports cache counters
func (h *SearchHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.searchService.CacheStats(r.Context()))
}

// fetchSize sizes the upstream fetch so the requested page can be
// filled from the external side. The floor keeps small pages sharing
// one cache entry; the ceiling bounds scrape cost for deep offsets.
func fetchSize(limit, offset int) int {
	size := offset + limit
	if size < defaultFetchSize {
		size = defaultFetchSize
	}
	if size > maxFetchSize {
		size = maxFetchSize
	}
	return size
}

// paginate slices the merged result list; the service returns the
// whole list because the merge order matters across page boundaries.
func paginate(result domain.SearchResult, limit, offset int) SearchResponse {
	results := result.Results
	if offset >= len(results) {
		results = []domain.ProductGroup{}
	} else {
		end := offset + limit
		if end > len(results) {
			end = len(results)
		}
		results = results[offset:end]
	}

	return SearchResponse{
		Results: results,
		Total:   result.Total,
		Limit:   limit,
		Offset:  offset,
	}
}

func queryInt(r *http.Request, name string, fallback, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func queryBool(r *http.Request, name string, fallback bool) bool {
	raw := strings.ToLower(r.URL.Query().Get(name))
	switch raw {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}
