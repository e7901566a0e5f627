package types

import "time"

// PageRecord is a single crawled page's extracted text plus metadata.
// Records are only emitted for pages whose extracted content clears the
// configured minimum-length threshold.
type PageRecord struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	IsMain  bool   `json:"is_main"`
}

// CrawlOutcome is the terminal record of one site traversal.
//
// Available reflects only the seed page's reachability: true when the seed
// responded with a status below 400, independent of whether any PageRecords
// were produced. StatusCode is nil when the seed never responded.
type CrawlOutcome struct {
	URL        string       `json:"url"`
	Available  bool         `json:"available"`
	StatusCode *int         `json:"status_code"`
	Error      string       `json:"error,omitempty"`
	Pages      []PageRecord `json:"pages"`
}

// PriceInfo is one labeled price extracted from a website.
type PriceInfo struct {
	Service string `json:"service"`
	Price   string `json:"price"`
}

// Analysis holds the structured attributes the LLM derives from crawled
// content. Empty strings and nil slices mean "not found on the website".
type Analysis struct {
	Category    string      `json:"category,omitempty"`
	OpenHours   string      `json:"openHours,omitempty"`
	Address     string      `json:"address,omitempty"`
	Prices      []PriceInfo `json:"prices,omitempty"`
	Services    []string    `json:"services,omitempty"`
	Description string      `json:"description,omitempty"`
	ShortName   string      `json:"shortName,omitempty"`
	AgeRange    string      `json:"ageRange,omitempty"`
}

// TravelTime is the commute estimate from the configured home location.
type TravelTime struct {
	DrivingMinutes int     `json:"drivingMinutes"`
	TransitMinutes int     `json:"transitMinutes"`
	DistanceKm     float64 `json:"distanceKm"`
}

// ActivityResult is the combined outcome of the full analyse pipeline for one
// URL: crawl status, LLM analysis, and commute estimate.
type ActivityResult struct {
	URL        string `json:"url"`
	Available  bool   `json:"available"`
	StatusCode *int   `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`

	Analysis

	DrivingMinutes *int     `json:"drivingMinutes,omitempty"`
	TransitMinutes *int     `json:"transitMinutes,omitempty"`
	DistanceKm     *float64 `json:"distanceKm,omitempty"`
}

// Activity is one catalogue entry as persisted in the activity store.
type Activity struct {
	URL         string `json:"url"         bson:"url"`
	ShortName   string `json:"shortName"   bson:"shortName"`
	Alive       bool   `json:"alive"       bson:"alive"`
	LastUpdated string `json:"lastUpdated" bson:"lastUpdated"`

	Category    string      `json:"category,omitempty"    bson:"category,omitempty"`
	OpenHours   string      `json:"openHours,omitempty"   bson:"openHours,omitempty"`
	Address     string      `json:"address,omitempty"     bson:"address,omitempty"`
	Prices      []PriceInfo `json:"prices,omitempty"      bson:"prices,omitempty"`
	Services    []string    `json:"services,omitempty"    bson:"services,omitempty"`
	Description string      `json:"description,omitempty" bson:"description,omitempty"`
	AgeRange    string      `json:"ageRange,omitempty"    bson:"ageRange,omitempty"`

	UserRating  int    `json:"userRating,omitempty"  bson:"userRating,omitempty"`
	UserComment string `json:"userComment,omitempty" bson:"userComment,omitempty"`
	UserRemoved bool   `json:"userRemoved,omitempty" bson:"userRemoved,omitempty"`

	DrivingMinutes *int     `json:"drivingMinutes,omitempty" bson:"drivingMinutes,omitempty"`
	TransitMinutes *int     `json:"transitMinutes,omitempty" bson:"transitMinutes,omitempty"`
	DistanceKm     *float64 `json:"distanceKm,omitempty"     bson:"distanceKm,omitempty"`
}

// URLEntry is one row of the URL registry: a candidate site discovered by
// search or submitted via the bot, plus its latest liveness check.
type URLEntry struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
	Source      string `json:"source,omitempty"`
	AddedAt     string `json:"addedAt,omitempty"`
	Visited     bool   `json:"visited"`
	Alive       *bool  `json:"alive,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// ActivityFromResult builds a catalogue entry from a pipeline result.
// The short name falls back to the bare hostname when the LLM produced none.
func ActivityFromResult(res *ActivityResult, hostFallback string) Activity {
	a := Activity{
		URL:         res.URL,
		ShortName:   res.ShortName,
		Alive:       res.Available,
		LastUpdated: time.Now().Format("2006-01-02"),

		Category:    res.Category,
		OpenHours:   res.OpenHours,
		Address:     res.Address,
		Prices:      res.Prices,
		Services:    res.Services,
		Description: res.Description,
		AgeRange:    res.AgeRange,

		DrivingMinutes: res.DrivingMinutes,
		TransitMinutes: res.TransitMinutes,
		DistanceKm:     res.DistanceKm,
	}
	if a.ShortName == "" {
		a.ShortName = hostFallback
	}
	return a
}
