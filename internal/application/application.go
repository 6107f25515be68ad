package application

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/shipping-cost/internal/api"
	"github.com/eugenenazirov/shipping-cost/internal/calculator"
	"github.com/eugenenazirov/shipping-cost/internal/config"
	"github.com/eugenenazirov/shipping-cost/internal/geo"
	"github.com/eugenenazirov/shipping-cost/internal/quote"
	"github.com/eugenenazirov/shipping-cost/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	cache      storage.Storage
	calculator calculator.Calculator
	quoter     *quote.Service
	handler    *api.Handler
	router     http.Handler
	logger     *zap.Logger
	server     *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	calc := calculator.New()
	cache := storage.NewMemoryStorage(cfg.CacheMaxEntries)
	quoter := NewQuoteService(cfg, calc, cache, logger)

	handler := api.NewHandler(calc, quoter)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		cache:      cache,
		calculator: calc,
		quoter:     quoter,
		handler:    handler,
		router:     apiRouter,
		logger:     logger,
		server:     NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// NewQuoteService wires the geocoder and router described by cfg around calc.
// cache may be nil. The CLI shares this wiring with the HTTP server.
func NewQuoteService(cfg config.Config, calc calculator.Calculator, cache storage.Storage, logger *zap.Logger) *quote.Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}

	geocoder := geo.NewNominatimGeocoder(cfg.GeocoderURL,
		geo.WithHTTPClient(client),
		geo.WithUserAgent(cfg.UserAgent),
		geo.WithLogger(logger.Named("nominatim")),
		geo.WithRateLimit(cfg.GeocoderRPS, 1),
	)
	router := geo.NewOSRMRouter(cfg.RouterURL,
		geo.WithHTTPClient(client),
		geo.WithUserAgent(cfg.UserAgent),
		geo.WithLogger(logger.Named("osrm")),
	)

	return quote.NewService(calc, geocoder, router, cache, logger)
}

// BuildRootHandler mounts the API under /api/ and answers 404 everywhere else.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
