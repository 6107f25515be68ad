package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/eugenenazirov/shipping-cost/internal/logging"
)

// DefaultOSRMURL is the public OSRM demo server.
const DefaultOSRMURL = "http://router.project-osrm.org"

const osrmNoRoute = "NoRoute"

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Legs     []struct {
			Distance float64 `json:"distance"`
		} `json:"legs"`
	} `json:"routes"`
}

// OSRMRouter fetches driving distances from an OSRM route service.
// It is safe for concurrent use.
type OSRMRouter struct {
	baseURL string
	profile string
	clientConfig
}

// NewOSRMRouter builds a router for baseURL, falling back to DefaultOSRMURL when empty.
func NewOSRMRouter(baseURL string, opts ...Option) *OSRMRouter {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOSRMURL
	}
	return &OSRMRouter{
		baseURL:      strings.TrimRight(baseURL, "/"),
		profile:      "driving",
		clientConfig: newClientConfig(opts),
	}
}

// RouteDistance returns the length in meters of the first leg of the first route from -> to.
// Transport errors are returned as-is.
func (r *OSRMRouter) RouteDistance(ctx context.Context, from, to Coordinates) (_ float64, err error) {
	defer logging.Time(ctx, r.logger, "osrm.RouteDistance")(&err)

	// OSRM expects lon,lat order.
	endpoint := fmt.Sprintf("%s/route/v1/%s/%s,%s;%s,%s?overview=false&geometries=geojson",
		r.baseURL, r.profile,
		formatDegrees(from.Lon), formatDegrees(from.Lat),
		formatDegrees(to.Lon), formatDegrees(to.Lat),
	)
	req, err := r.newRequest(ctx, endpoint)
	if err != nil {
		return 0, err
	}

	resp, err := r.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := readStatusError("osrm", resp)
		var body osrmResponse
		if json.Unmarshal([]byte(statusErr.Body), &body) == nil && body.Code == osrmNoRoute {
			return 0, fmt.Errorf("%w: %s", ErrRouteNotFound, body.Message)
		}
		return 0, statusErr
	}

	var decoded osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decode route response: %w", err)
	}
	if len(decoded.Routes) == 0 || len(decoded.Routes[0].Legs) == 0 {
		return 0, ErrRouteNotFound
	}

	return decoded.Routes[0].Legs[0].Distance, nil
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
