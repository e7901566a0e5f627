package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"kinderscout/internal/config"
	"kinderscout/internal/types"
)

// headerRow defines the worksheet schema; column order is load-bearing.
var headerRow = []string{
	"url", "shortName", "alive", "lastUpdated", "category", "openHours",
	"address", "services", "description", "userRating", "drivingMinutes",
	"transitMinutes", "distanceKm", "userComment", "userRemoved", "ageRange",
}

const sheetRange = "A:P"

// SheetsStore persists the catalogue in a Google Sheets worksheet, one
// activity per row, authenticated via a service account.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	logger        *slog.Logger
}

// NewSheetsStore connects to the configured spreadsheet and makes sure the
// header row is in place.
func NewSheetsStore(ctx context.Context, cfg *config.StoreConfig, logger *slog.Logger) (*SheetsStore, error) {
	if cfg.SheetsID == "" || cfg.ServiceAccountEmail == "" || cfg.PrivateKey == "" {
		return nil, &types.StoreError{Backend: "sheets", Err: fmt.Errorf("missing sheets credentials")}
	}

	conf := &jwt.Config{
		Email:      cfg.ServiceAccountEmail,
		PrivateKey: []byte(cfg.PrivateKey),
		TokenURL:   google.JWTTokenURL,
		Scopes:     []string{sheets.SpreadsheetsScope},
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, &types.StoreError{Backend: "sheets", Err: err}
	}

	s := &SheetsStore{
		svc:           svc,
		spreadsheetID: cfg.SheetsID,
		logger:        logger.With("component", "store", "backend", "sheets"),
	}
	if err := s.ensureHeader(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SheetsStore) ensureHeader(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, "A1:P1").Context(ctx).Do()
	if err != nil {
		return &types.StoreError{Backend: "sheets", Err: err}
	}

	if len(resp.Values) == 1 && len(resp.Values[0]) == len(headerRow) {
		match := true
		for i, want := range headerRow {
			if got, ok := resp.Values[0][i].(string); !ok || got != want {
				match = false
				break
			}
		}
		if match {
			return nil
		}
	}

	row := make([]interface{}, len(headerRow))
	for i, h := range headerRow {
		row[i] = h
	}
	_, err = s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, "A1:P1", &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return &types.StoreError{Backend: "sheets", Err: err}
	}
	s.logger.Info("header row written")
	return nil
}

func (s *SheetsStore) Load(ctx context.Context) ([]types.Activity, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, "A2:P").Context(ctx).Do()
	if err != nil {
		return nil, &types.StoreError{Backend: "sheets", Err: err}
	}

	activities := make([]types.Activity, 0, len(resp.Values))
	for _, row := range resp.Values {
		a, ok := rowToActivity(row)
		if !ok || a.UserRemoved {
			continue
		}
		activities = append(activities, a)
	}
	return activities, nil
}

func (s *SheetsStore) Get(ctx context.Context, rawURL string) (*types.Activity, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, "A2:P").Context(ctx).Do()
	if err != nil {
		return nil, &types.StoreError{Backend: "sheets", Err: err}
	}

	key := NormalizeURL(rawURL)
	for _, row := range resp.Values {
		a, ok := rowToActivity(row)
		if ok && NormalizeURL(a.URL) == key {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *SheetsStore) Upsert(ctx context.Context, activity types.Activity) (bool, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, "A2:A").Context(ctx).Do()
	if err != nil {
		return false, &types.StoreError{Backend: "sheets", Err: err}
	}

	key := NormalizeURL(activity.URL)
	rowIndex := 0 // 1-based worksheet row, 0 = not found
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if u, ok := row[0].(string); ok && NormalizeURL(u) == key {
			rowIndex = i + 2
			break
		}
	}

	values := &sheets.ValueRange{Values: [][]interface{}{activityToRow(activity)}}

	if rowIndex > 0 {
		target := fmt.Sprintf("A%d:P%d", rowIndex, rowIndex)
		_, err = s.svc.Spreadsheets.Values.
			Update(s.spreadsheetID, target, values).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return false, &types.StoreError{Backend: "sheets", Err: err}
		}
		s.logger.Debug("activity updated", "url", activity.URL, "row", rowIndex)
		return true, nil
	}

	_, err = s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, sheetRange, values).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return false, &types.StoreError{Backend: "sheets", Err: err}
	}
	s.logger.Debug("activity appended", "url", activity.URL)
	return false, nil
}

func (s *SheetsStore) Close(ctx context.Context) error {
	return nil
}

func activityToRow(a types.Activity) []interface{} {
	row := make([]interface{}, len(headerRow))
	for i := range row {
		row[i] = ""
	}

	row[0] = a.URL
	row[1] = a.ShortName
	row[2] = strconv.FormatBool(a.Alive)
	row[3] = a.LastUpdated
	row[4] = a.Category
	row[5] = a.OpenHours
	row[6] = a.Address
	if len(a.Services) > 0 {
		if data, err := json.Marshal(a.Services); err == nil {
			row[7] = string(data)
		}
	}
	row[8] = a.Description
	if a.UserRating != 0 {
		row[9] = strconv.Itoa(a.UserRating)
	}
	if a.DrivingMinutes != nil {
		row[10] = strconv.Itoa(*a.DrivingMinutes)
	}
	if a.TransitMinutes != nil {
		row[11] = strconv.Itoa(*a.TransitMinutes)
	}
	if a.DistanceKm != nil {
		row[12] = strconv.FormatFloat(*a.DistanceKm, 'f', -1, 64)
	}
	row[13] = a.UserComment
	if a.UserRemoved {
		row[14] = "true"
	}
	row[15] = a.AgeRange
	return row
}

func rowToActivity(row []interface{}) (types.Activity, bool) {
	get := func(i int) string {
		if i >= len(row) {
			return ""
		}
		s, _ := row[i].(string)
		return s
	}

	if get(0) == "" {
		return types.Activity{}, false
	}

	a := types.Activity{
		URL:         get(0),
		ShortName:   get(1),
		Alive:       strings.EqualFold(get(2), "true"),
		LastUpdated: get(3),
		Category:    get(4),
		OpenHours:   get(5),
		Address:     get(6),
		Description: get(8),
		UserComment: get(13),
		UserRemoved: strings.EqualFold(get(14), "true"),
		AgeRange:    get(15),
	}

	if raw := get(7); raw != "" {
		var services []string
		if err := json.Unmarshal([]byte(raw), &services); err == nil {
			a.Services = services
		} else {
			for _, s := range strings.Split(raw, ",") {
				if s = strings.TrimSpace(s); s != "" {
					a.Services = append(a.Services, s)
				}
			}
		}
	}
	if v, err := strconv.Atoi(get(9)); err == nil {
		a.UserRating = v
	}
	if v, err := strconv.Atoi(get(10)); err == nil {
		a.DrivingMinutes = &v
	}
	if v, err := strconv.Atoi(get(11)); err == nil {
		a.TransitMinutes = &v
	}
	if v, err := strconv.ParseFloat(get(12), 64); err == nil {
		a.DistanceKm = &v
	}
	return a, true
}
