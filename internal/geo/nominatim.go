package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/eugenenazirov/shipping-cost/internal/logging"
)

// DefaultNominatimURL is the public OpenStreetMap geocoding endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NominatimGeocoder resolves addresses through the Nominatim search API.
// It is safe for concurrent use.
type NominatimGeocoder struct {
	baseURL string
	clientConfig
}

// NewNominatimGeocoder builds a geocoder for baseURL, falling back to DefaultNominatimURL when empty.
func NewNominatimGeocoder(baseURL string, opts ...Option) *NominatimGeocoder {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultNominatimURL
	}
	return &NominatimGeocoder{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientConfig: newClientConfig(opts),
	}
}

// Geocode returns the coordinates of the best match for address.
// Transport errors are returned as-is.
func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (_ Coordinates, err error) {
	defer logging.Time(ctx, g.logger, "nominatim.Geocode")(&err)

	address = strings.TrimSpace(address)
	if address == "" {
		return Coordinates{}, ErrEmptyAddress
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", address)
	req, err := g.newRequest(ctx, g.baseURL+"/search?"+q.Encode())
	if err != nil {
		return Coordinates{}, err
	}

	resp, err := g.do(req)
	if err != nil {
		return Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, readStatusError("nominatim", resp)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Coordinates{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(places) == 0 {
		return Coordinates{}, fmt.Errorf("%w: %q", ErrAddressNotFound, address)
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}

	return Coordinates{Lat: lat, Lon: lon}, nil
}
