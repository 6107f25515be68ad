// Package quote turns two addresses and a parcel description into a shipment cost by
// geocoding both ends, asking the router for the driving distance and pricing the result.
package quote

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eugenenazirov/shipping-cost/internal/calculator"
	"github.com/eugenenazirov/shipping-cost/internal/geo"
	"github.com/eugenenazirov/shipping-cost/internal/logging"
	"github.com/eugenenazirov/shipping-cost/internal/storage"
)

// Parcel holds the size and weight of a shipment.
type Parcel struct {
	Width  float64
	Height float64
	Depth  float64
	Weight float64
	Strict bool
}

// Request asks for a quote between two free-text addresses.
type Request struct {
	From   string
	To     string
	Parcel Parcel
}

// Quote is the priced result of a Request.
type Quote struct {
	From           geo.Coordinates     `json:"from"`
	To             geo.Coordinates     `json:"to"`
	DistanceMeters float64             `json:"distanceMeters"`
	Estimate       calculator.Estimate `json:"estimate"`
}

// Service resolves addresses to a distance and prices it with a calculator.
type Service struct {
	calculator calculator.Calculator
	geocoder   geo.Geocoder
	router     geo.Router
	cache      storage.Storage
	logger     *zap.Logger
}

// NewService wires a quote Service. cache may be nil to disable memoization.
func NewService(calc calculator.Calculator, geocoder geo.Geocoder, router geo.Router, cache storage.Storage, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		calculator: calc,
		geocoder:   geocoder,
		router:     router,
		cache:      cache,
		logger:     logger,
	}
}

// Quote prices req. Parcel validation and strict tier lookup run before any network call.
func (s *Service) Quote(ctx context.Context, req Request) (_ Quote, err error) {
	defer logging.Time(ctx, s.logger, "quote.Quote")(&err)

	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" {
		return Quote{}, geo.ErrEmptyAddress
	}

	if _, err := s.calculator.Estimate(req.Parcel.request(0)); err != nil {
		return Quote{}, err
	}

	var from, to geo.Coordinates
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.coordinates(gctx, req.From)
		if err != nil {
			return fmt.Errorf("geocode origin: %w", err)
		}
		from = c
		return nil
	})
	g.Go(func() error {
		c, err := s.coordinates(gctx, req.To)
		if err != nil {
			return fmt.Errorf("geocode destination: %w", err)
		}
		to = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return Quote{}, err
	}

	distance, err := s.router.RouteDistance(ctx, from, to)
	if err != nil {
		return Quote{}, fmt.Errorf("route distance: %w", err)
	}

	est, err := s.calculator.Estimate(req.Parcel.request(distance))
	if err != nil {
		return Quote{}, err
	}

	s.logger.Info("quote computed",
		zap.Float64("distance_meters", distance),
		zap.String("mode", string(est.Mode)),
		zap.Float64("total", est.Total),
		zap.String("request_id", logging.RequestIDFromContext(ctx)),
	)

	return Quote{
		From:           from,
		To:             to,
		DistanceMeters: distance,
		Estimate:       est,
	}, nil
}

func (s *Service) coordinates(ctx context.Context, address string) (geo.Coordinates, error) {
	if s.cache != nil {
		if c, ok := s.cache.GetCoordinates(address); ok {
			return c, nil
		}
	}

	c, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		return geo.Coordinates{}, err
	}

	if s.cache != nil {
		s.cache.PutCoordinates(address, c)
	}
	return c, nil
}

func (p Parcel) request(distance float64) calculator.Request {
	return calculator.Request{
		Width:    p.Width,
		Height:   p.Height,
		Depth:    p.Depth,
		Weight:   p.Weight,
		Distance: distance,
		Strict:   p.Strict,
	}
}
