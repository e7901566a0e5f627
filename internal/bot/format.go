package bot

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"kinderscout/internal/types"
)

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// ExtractURLs pulls all HTTP(S) URLs out of a message, deduplicated in
// order of first appearance.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		urls = append(urls, m)
	}
	return urls
}

// GoogleMapsURL builds a maps search link for an address.
func GoogleMapsURL(address string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(address)
}

// HostShortName derives a fallback display name from the URL's hostname.
func HostShortName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// FormatResult renders an analysis result as a Telegram Markdown message.
func FormatResult(res *types.ActivityResult) string {
	if !res.Available {
		status := "Unknown"
		if res.StatusCode != nil {
			status = fmt.Sprintf("%d", *res.StatusCode)
		}
		errText := res.Error
		if errText == "" {
			errText = "Page not accessible"
		}
		return fmt.Sprintf("❌ *URL not available*\n\n🔗 %s\nStatus: %s\nError: %s",
			res.URL, status, errText)
	}

	var b strings.Builder
	b.WriteString("✅ *Analysis Complete!*\n\n")

	if res.ShortName != "" {
		fmt.Fprintf(&b, "📛 *Name:* %s\n", res.ShortName)
	}
	fmt.Fprintf(&b, "🔗 *URL:* %s\n", res.URL)
	if res.Description != "" {
		fmt.Fprintf(&b, "📝 *Description:* %s\n", res.Description)
	}
	if res.Category != "" {
		fmt.Fprintf(&b, "🏷️ *Category:* %s\n", res.Category)
	}
	if res.Address != "" {
		fmt.Fprintf(&b, "📍 *Address:* [%s](%s)\n", res.Address, GoogleMapsURL(res.Address))
	}
	if res.OpenHours != "" {
		fmt.Fprintf(&b, "🕐 *Hours:* %s\n", res.OpenHours)
	}
	if res.DrivingMinutes != nil || res.TransitMinutes != nil {
		fmt.Fprintf(&b, "🚗 *Travel:* %s min driving, %s min transit (%s km)\n",
			orUnknown(res.DrivingMinutes), orUnknown(res.TransitMinutes), kmOrUnknown(res.DistanceKm))
	}

	if len(res.Services) > 0 {
		b.WriteString("\n🎯 *Services:*\n")
		for _, s := range firstN(res.Services, 5) {
			fmt.Fprintf(&b, "  • %s\n", s)
		}
	}
	if len(res.Prices) > 0 {
		b.WriteString("\n💰 *Prices:*\n")
		for _, p := range res.Prices[:min(len(res.Prices), 5)] {
			fmt.Fprintf(&b, "  • %s: %s\n", p.Service, p.Price)
		}
	}
	return b.String()
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func orUnknown(v *int) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *v)
}

func kmOrUnknown(v *float64) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%g", *v)
}
