package bot

import (
	"reflect"
	"strings"
	"testing"

	"kinderscout/internal/types"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single url",
			text: "Schau mal: https://www.wildpark-poing.de",
			want: []string{"https://www.wildpark-poing.de"},
		},
		{
			name: "multiple urls",
			text: "https://a.de und http://b.de/seite?x=1",
			want: []string{"https://a.de", "http://b.de/seite?x=1"},
		},
		{
			name: "duplicates collapse",
			text: "https://a.de https://a.de",
			want: []string{"https://a.de"},
		},
		{
			name: "no urls",
			text: "Hallo, wie geht's?",
			want: []string{},
		},
		{
			name: "uppercase scheme",
			text: "HTTPS://EXAMPLE.DE",
			want: []string{"HTTPS://EXAMPLE.DE"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractURLs(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGoogleMapsURL(t *testing.T) {
	got := GoogleMapsURL("Musterstraße 1, 80331 München")
	if !strings.HasPrefix(got, "https://www.google.com/maps/search/?api=1&query=") {
		t.Errorf("got %q", got)
	}
	if strings.Contains(got, " ") {
		t.Errorf("address not escaped: %q", got)
	}
}

func TestHostShortName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.kindermuseum-muenchen.de/tickets", "kindermuseum-muenchen.de"},
		{"https://zoo.de", "zoo.de"},
		{"kein url", "kein url"},
	}
	for _, tt := range tests {
		if got := HostShortName(tt.in); got != tt.want {
			t.Errorf("HostShortName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatResultUnavailable(t *testing.T) {
	status := 503
	got := FormatResult(&types.ActivityResult{
		URL:        "https://tot.de",
		Available:  false,
		StatusCode: &status,
		Error:      "fetch https://tot.de: connection refused",
	})
	if !strings.Contains(got, "URL not available") {
		t.Errorf("missing unavailable header: %q", got)
	}
	if !strings.Contains(got, "503") {
		t.Errorf("missing status: %q", got)
	}
}

func TestFormatResultComplete(t *testing.T) {
	driving, transit, km := 25, 57, 18.5
	res := &types.ActivityResult{
		URL:       "https://kletterhalle.de",
		Available: true,
		Analysis: types.Analysis{
			ShortName:   "Kletterhalle",
			Category:    "climbing",
			Address:     "Musterstraße 1, München",
			OpenHours:   "Mon-Sun 10:00-22:00",
			Description: "Indoor climbing for kids.",
			Services:    []string{"a", "b", "c", "d", "e", "f", "g"},
			Prices:      []types.PriceInfo{{Service: "Tageskarte", Price: "9€"}},
		},
		DrivingMinutes: &driving,
		TransitMinutes: &transit,
		DistanceKm:     &km,
	}

	got := FormatResult(res)

	for _, want := range []string{
		"Analysis Complete",
		"*Name:* Kletterhalle",
		"*Category:* climbing",
		"*Hours:* Mon-Sun 10:00-22:00",
		"25 min driving, 57 min transit (18.5 km)",
		"Tageskarte: 9€",
		"google.com/maps",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}

	// Services are capped at five entries.
	if strings.Contains(got, "• f") || strings.Contains(got, "• g") {
		t.Errorf("services not capped at 5:\n%s", got)
	}
}
