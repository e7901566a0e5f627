package geo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"kinderscout/internal/config"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestRouter(nominatimURL, osrmURL string) *Router {
	cfg := config.DefaultConfig()
	cfg.Geo.NominatimURL = nominatimURL
	cfg.Geo.OSRMURL = osrmURL
	cfg.Geo.RequestTimeout = 5 * time.Second
	r := NewRouter(cfg, discard)
	r.limiter = rate.NewLimiter(rate.Inf, 1) // no throttling in tests
	return r
}

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Marienplatz, München" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "1" {
			t.Errorf("limit = %q", got)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent, Nominatim requires one")
		}
		fmt.Fprint(w, `[{"lat": "48.1374", "lon": "11.5755"}]`)
	}))
	defer srv.Close()

	router := newTestRouter(srv.URL, "")
	got, err := router.Geocode(context.Background(), "Marienplatz, München")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if got.Lat != 48.1374 || got.Lon != 11.5755 {
		t.Errorf("got %+v", got)
	}
}

func TestGeocodeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	router := newTestRouter(srv.URL, "")
	if _, err := router.Geocode(context.Background(), "Nirgendwo 99"); err == nil {
		t.Fatal("expected an error for an unknown address")
	}
}

func TestDrivingRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// OSRM takes lon,lat pairs in the path.
		if want := "/driving/11.575500,48.137400;11.881800,48.105500"; r.URL.Path != want {
			t.Errorf("path = %q, want %q", r.URL.Path, want)
		}
		fmt.Fprint(w, `{"code": "Ok", "routes": [{"duration": 1530, "distance": 24460}]}`)
	}))
	defer srv.Close()

	router := newTestRouter("", srv.URL)
	minutes, km, err := router.DrivingRoute(context.Background(),
		Coordinates{Lat: 48.1374, Lon: 11.5755},
		Coordinates{Lat: 48.1055, Lon: 11.8818},
	)
	if err != nil {
		t.Fatalf("DrivingRoute: %v", err)
	}
	if minutes != 26 {
		t.Errorf("minutes = %d, want 26", minutes)
	}
	if km != 24.5 {
		t.Errorf("km = %v, want 24.5", km)
	}
}

func TestDrivingRouteNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code": "NoRoute", "routes": []}`)
	}))
	defer srv.Close()

	router := newTestRouter("", srv.URL)
	if _, _, err := router.DrivingRoute(context.Background(), Coordinates{}, Coordinates{}); err == nil {
		t.Fatal("expected an error when OSRM finds no route")
	}
}

func TestTravelFromHome(t *testing.T) {
	geocoder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"lat": "48.1", "lon": "11.6"}]`)
	}))
	defer geocoder.Close()
	osrm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code": "Ok", "routes": [{"duration": 1200, "distance": 18000}]}`)
	}))
	defer osrm.Close()

	router := newTestRouter(geocoder.URL, osrm.URL)
	tt, err := router.TravelFromHome(context.Background(), "Musterstraße 1, München")
	if err != nil {
		t.Fatalf("TravelFromHome: %v", err)
	}
	if tt.DrivingMinutes != 20 {
		t.Errorf("DrivingMinutes = %d, want 20", tt.DrivingMinutes)
	}
	if tt.TransitMinutes != 48 { // 20*1.8+12
		t.Errorf("TransitMinutes = %d, want 48", tt.TransitMinutes)
	}
	if tt.DistanceKm != 18.0 {
		t.Errorf("DistanceKm = %v, want 18.0", tt.DistanceKm)
	}
}

func TestTravelFromHomeEmptyAddress(t *testing.T) {
	router := newTestRouter("", "")
	if _, err := router.TravelFromHome(context.Background(), ""); err == nil {
		t.Fatal("expected an error for an empty address")
	}
}

func TestEstimateTransit(t *testing.T) {
	tests := []struct {
		driving int
		want    int
	}{
		{0, 12},
		{10, 30},
		{20, 48},
		{45, 93},
	}
	for _, tt := range tests {
		if got := EstimateTransit(tt.driving); got != tt.want {
			t.Errorf("EstimateTransit(%d) = %d, want %d", tt.driving, got, tt.want)
		}
	}
}

func TestFormatTravelTime(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{45, "45 min"},
		{60, "1h"},
		{80, "1h 20min"},
		{120, "2h"},
	}
	for _, tt := range tests {
		if got := FormatTravelTime(tt.minutes); got != tt.want {
			t.Errorf("FormatTravelTime(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}
