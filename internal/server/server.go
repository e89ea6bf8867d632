package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"pricepulse/internal/cache"
	"pricepulse/internal/config"
	custommiddleware "pricepulse/internal/middleware"
	"pricepulse/internal/provider"
	"pricepulse/internal/repository"
	"pricepulse/internal/service"
	"pricepulse/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env != "production"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Shared Redis client: cache store, URL cache and rate limiting
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	store := cache.NewStore(redisClient, cfg.Redis.Enabled, logger)
	urls := cache.NewURLCache(store, cfg.Providers.ScraperBaseURL, cfg.Cache.URLTTL, logger)

	if store.Enabled() {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: 120,
			Window:            time.Minute,
			KeyPrefix:         "ratelimit",
		}, logger))
	}

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Provider fallback chain, in priority order
	providers := []provider.Provider{
		provider.NewMarketAPI(
			cfg.Providers.MarketAPIBaseURL,
			cfg.Providers.MarketAPIToken,
			cfg.Providers.MarketCampaignID,
			logger,
		),
		provider.NewHTMLScraper(cfg.Providers.ScraperBaseURL, cfg.Providers.ScraperTimeout, logger),
	}
	if cfg.Providers.BrowserEnabled {
		providers = append(providers, provider.NewBrowser(
			cfg.Providers.ScraperBaseURL,
			cfg.Providers.BrowserTimeout,
			logger,
		))
	}
	providers = append(providers, provider.NewStatic())

	// Initialize repositories
	catalogRepo := repository.NewCatalogRepository(db)

	// Initialize services
	searchService := service.NewSearchService(providers, store, urls, catalogRepo, service.Options{
		SearchTTL:    cfg.Cache.SearchTTL,
		PopularTTL:   cfg.Cache.PopularTTL,
		FetchTimeout: cfg.Providers.BrowserTimeout,
	}, logger)

	// Initialize handlers
	searchHandler := transport.NewSearchHandler(searchService, logger)

	// Register routes
	searchHandler.RegisterRoutes(router)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
