package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"kinderscout/internal/config"
	"kinderscout/internal/types"
)

// Transit estimation from driving time, tuned for Munich suburbs: transit
// typically takes 1.5-2.5x driving, plus waiting and transfer overhead.
const (
	transitMultiplier  = 1.8
	transitOverheadMin = 12
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Router resolves addresses and computes travel times from the configured
// home location, using Nominatim for geocoding and OSRM for routing. Both
// are public instances without API keys; Nominatim requests are rate
// limited to roughly one per second as its usage policy demands.
type Router struct {
	cfg     *config.GeoConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(cfg *config.Config, logger *slog.Logger) *Router {
	return &Router{
		cfg:     &cfg.Geo,
		client:  &http.Client{Timeout: cfg.Geo.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(0.9), 1),
		logger:  logger.With("component", "geo"),
	}
}

// TravelFromHome computes the commute from the home address to the
// destination: driving time and distance from OSRM, transit estimated from
// the driving time.
func (r *Router) TravelFromHome(ctx context.Context, destination string) (*types.TravelTime, error) {
	if destination == "" {
		return nil, fmt.Errorf("no destination address")
	}

	home, err := r.Geocode(ctx, r.cfg.HomeAddress)
	if err != nil {
		return nil, fmt.Errorf("geocode home: %w", err)
	}
	dest, err := r.Geocode(ctx, destination)
	if err != nil {
		return nil, fmt.Errorf("geocode destination: %w", err)
	}

	drivingMin, distanceKm, err := r.DrivingRoute(ctx, home, dest)
	if err != nil {
		return nil, err
	}

	return &types.TravelTime{
		DrivingMinutes: drivingMin,
		TransitMinutes: EstimateTransit(drivingMin),
		DistanceKm:     distanceKm,
	}, nil
}

// Geocode resolves an address to coordinates via Nominatim.
func (r *Router) Geocode(ctx context.Context, address string) (Coordinates, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Coordinates{}, err
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.NominatimURL+"?"+q.Encode(), nil)
	if err != nil {
		return Coordinates{}, err
	}
	// Nominatim requires an identifying User-Agent.
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("nominatim: unexpected status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Coordinates{}, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return Coordinates{}, fmt.Errorf("address not found: %s", address)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse longitude: %w", err)
	}
	return Coordinates{Lat: lat, Lon: lon}, nil
}

// DrivingRoute returns the driving duration in minutes and distance in km
// between two points via OSRM.
func (r *Router) DrivingRoute(ctx context.Context, origin, dest Coordinates) (int, float64, error) {
	// OSRM expects lon,lat pairs.
	routeURL := fmt.Sprintf("%s/driving/%f,%f;%f,%f?overview=false",
		r.cfg.OSRMURL, origin.Lon, origin.Lat, dest.Lon, dest.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, routeURL, nil)
	if err != nil {
		return 0, 0, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("osrm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("osrm: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Code   string `json:"code"`
		Routes []struct {
			Duration float64 `json:"duration"` // seconds
			Distance float64 `json:"distance"` // meters
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, 0, fmt.Errorf("decode osrm response: %w", err)
	}
	if result.Code != "Ok" || len(result.Routes) == 0 {
		return 0, 0, fmt.Errorf("osrm: no route found")
	}

	route := result.Routes[0]
	minutes := int(math.Round(route.Duration / 60))
	km := math.Round(route.Distance/1000*10) / 10
	return minutes, km, nil
}

// EstimateTransit derives a public transit estimate from driving minutes.
func EstimateTransit(drivingMinutes int) int {
	return int(math.Round(float64(drivingMinutes)*transitMultiplier + transitOverheadMin))
}

// FormatTravelTime renders minutes as "45 min", "2h", or "1h 20min".
func FormatTravelTime(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dmin", h, m)
}
