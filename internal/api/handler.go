package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eugenenazirov/shipping-cost/internal/calculator"
	"github.com/eugenenazirov/shipping-cost/internal/geo"
	"github.com/eugenenazirov/shipping-cost/internal/logging"
	"github.com/eugenenazirov/shipping-cost/internal/quote"
)

const maxRequestBody = 1 << 16

// Quoter prices a shipment between two addresses.
type Quoter interface {
	Quote(ctx context.Context, req quote.Request) (quote.Quote, error)
}

// Handler wires calculator and quote dependencies into HTTP handlers.
type Handler struct {
	calculator calculator.Calculator
	quoter     Quoter

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(calc calculator.Calculator, quoter Quoter, opts ...HandlerOption) *Handler {
	h := &Handler{
		calculator: calc,
		quoter:     quoter,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTiers(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := tiersResponse{
		BaseCost: calculator.BaseCost(),
		Tiers:    h.calculator.Tiers(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCost(w http.ResponseWriter, r *http.Request) {
	var req costRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	est, err := h.calculator.Estimate(calculator.Request{
		Width:    req.Width,
		Height:   req.Height,
		Depth:    req.Depth,
		Weight:   req.Weight,
		Distance: req.Distance,
		Strict:   req.Strict,
	})
	if err != nil {
		h.writeCalculatorError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, costResponse{Estimate: est})
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "from and to addresses are required")
		return
	}

	q, err := h.quoter.Quote(r.Context(), quote.Request{
		From: req.From,
		To:   req.To,
		Parcel: quote.Parcel{
			Width:  req.Width,
			Height: req.Height,
			Depth:  req.Depth,
			Weight: req.Weight,
			Strict: req.Strict,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, geo.ErrAddressNotFound):
			writeError(w, http.StatusNotFound, "Address not found", err.Error())
		case errors.Is(err, geo.ErrRouteNotFound):
			writeError(w, http.StatusNotFound, "Route not found", err.Error())
		case errors.Is(err, geo.ErrEmptyAddress):
			writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		case errors.Is(err, calculator.ErrInvalidInput),
			errors.Is(err, calculator.ErrTierNotFound),
			errors.Is(err, calculator.ErrNonFiniteCost):
			h.writeCalculatorError(w, err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "Upstream timeout", err.Error())
		default:
			writeError(w, http.StatusBadGateway, "Upstream error", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		From:           q.From,
		To:             q.To,
		DistanceMeters: q.DistanceMeters,
		Estimate:       q.Estimate,
	})
}

func (h *Handler) writeCalculatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calculator.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, calculator.ErrTierNotFound):
		writeError(w, http.StatusUnprocessableEntity, "No matching tier", err.Error(), h.strictSuggestion())
	case errors.Is(err, calculator.ErrNonFiniteCost):
		writeError(w, http.StatusUnprocessableEntity, "Cannot price parcel", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func (h *Handler) strictSuggestion() string {
	tiers := h.calculator.Tiers()
	sizes := make([]string, 0, len(tiers))
	for _, t := range tiers {
		sizes = append(sizes, fmt.Sprintf("%gx%gx%g up to %g", t.Width, t.Height, t.Depth, t.MaxWeight))
	}
	return "Use one of the strict sizes (" + strings.Join(sizes, ", ") + ") or disable strict mode"
}

func requestIDFromContext(ctx context.Context) string {
	return logging.RequestIDFromContext(ctx)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

type costRequest struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Depth    float64 `json:"depth"`
	Weight   float64 `json:"weight"`
	Distance float64 `json:"distance"`
	Strict   bool    `json:"strict"`
}

type quoteRequest struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
	Weight float64 `json:"weight"`
	Strict bool    `json:"strict"`
}

type costResponse struct {
	calculator.Estimate
}

type quoteResponse struct {
	From           geo.Coordinates     `json:"from"`
	To             geo.Coordinates     `json:"to"`
	DistanceMeters float64             `json:"distanceMeters"`
	Estimate       calculator.Estimate `json:"estimate"`
}

type tiersResponse struct {
	BaseCost float64               `json:"baseCost"`
	Tiers    []calculator.SizeTier `json:"tiers"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
