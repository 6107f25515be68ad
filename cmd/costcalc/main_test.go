package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eugenenazirov/shipping-cost/internal/calculator"
	"github.com/eugenenazirov/shipping-cost/internal/geo"
	"github.com/eugenenazirov/shipping-cost/internal/quote"
)

func TestRunCostText(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"--width=34", "--height=27", "--depth=2", "--weight=0.4", "--strict"}, &out)
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	for _, want := range []string{"mode:            strict", "base cost:       500", "distance coef:   1", "total:"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestRunCostJSON(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"cost", "--width=34", "--height=27", "--depth=2", "--weight=0.4", "--distance=10001", "--strict", "--json"}, &out)
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	var est calculator.Estimate
	if err := json.Unmarshal(out.Bytes(), &est); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if want := 577.5 * 1.005 * 1.005; math.Abs(est.Total-want) > 1e-9 {
		t.Fatalf("expected total %v, got %v", want, est.Total)
	}
}

func TestRunCostErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "StrictMiss", args: []string{"--width=34", "--height=27", "--depth=2", "--weight=0.6", "--strict"}, want: calculator.ErrTierNotFound},
		{name: "Negative", args: []string{"--width=-1", "--height=1", "--depth=1", "--weight=1"}, want: calculator.ErrInvalidInput},
		{name: "OnlyFrom", args: []string{"--width=1", "--height=1", "--depth=1", "--weight=1", "--from=Moscow"}, want: geo.ErrEmptyAddress},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(context.Background(), tc.args, &out); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRunRequiresDimensions(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"--width=1"}, &out); err == nil {
		t.Fatalf("expected error for missing flags")
	}
}

func TestRunTiers(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"tiers"}, &out); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(calculator.DefaultTiers())+1 {
		t.Fatalf("expected header and %d tiers, got:\n%s", len(calculator.DefaultTiers()), out.String())
	}
	if !strings.Contains(lines[1], "34") || !strings.Contains(lines[1], "1.05") {
		t.Fatalf("unexpected first tier row %q", lines[1])
	}

	out.Reset()
	if err := run(context.Background(), []string{"tiers", "--json"}, &out); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	var tiers []calculator.SizeTier
	if err := json.Unmarshal(out.Bytes(), &tiers); err != nil {
		t.Fatalf("failed to decode tiers: %v", err)
	}
	if tiers[5].MaxWeight != 20 {
		t.Fatalf("unexpected last tier %+v", tiers[5])
	}
}

func TestRunQuote(t *testing.T) {
	t.Setenv("GEOCODER_RPS", "0")

	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Moscow" {
			fmt.Fprint(w, `[{"lat":"55.75","lon":"37.61"}]`)
			return
		}
		fmt.Fprint(w, `[{"lat":"59.93","lon":"30.36"}]`)
	}))
	t.Cleanup(nominatim.Close)

	osrm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"code":"Ok","routes":[{"legs":[{"distance":705000}]}]}`)
	}))
	t.Cleanup(osrm.Close)

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"--width=34", "--height=27", "--depth=2", "--weight=0.4", "--strict", "--json",
		"--from=Moscow", "--to=Saint Petersburg",
		"--geocoder-url=" + nominatim.URL, "--router-url=" + osrm.URL,
	}, &out)
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	var q quote.Quote
	if err := json.Unmarshal(out.Bytes(), &q); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if q.DistanceMeters != 705000 || q.From.Lat != 55.75 || q.To.Lon != 30.36 {
		t.Fatalf("unexpected quote %+v", q)
	}
	if want := 577.5 * math.Pow(1.005, 71); math.Abs(q.Estimate.Total-want) > 1e-9 {
		t.Fatalf("expected total %v, got %v", want, q.Estimate.Total)
	}
}

func TestRunQuoteUpstreamStatus(t *testing.T) {
	t.Setenv("GEOCODER_RPS", "0")

	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(nominatim.Close)

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"--width=1", "--height=1", "--depth=1", "--weight=1",
		"--from=A", "--to=B", "--geocoder-url=" + nominatim.URL, "--router-url=" + nominatim.URL,
	}, &out)
	if err == nil || !strings.Contains(err.Error(), "nominatim returned HTTP 503") {
		t.Fatalf("expected upstream status error, got %v", err)
	}
}
