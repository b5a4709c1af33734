// Package scraper pulls draw results from the upstream provider and
// normalizes them into domain draws for the archive.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/drawsense/drawsense/internal/domain"
)

// RawDraw is one upstream result row before normalization.
type RawDraw struct {
	DrawType string `json:"drawType"`
	Date     string `json:"date"`
	Winning  string `json:"winning"`
	Machine  string `json:"machine,omitempty"`
}

// Fetcher retrieves upstream results. Implementations return the rows
// published since the given date, oldest first.
type Fetcher interface {
	Fetch(ctx context.Context, since time.Time) ([]RawDraw, error)
}

// ─── HTTP fetcher ───────────────────────────────────────────────────────────

// HTTPFetcher reads a JSON result feed.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher wires a fetcher against the feed base URL.
func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, since time.Time) ([]RawDraw, error) {
	url := fmt.Sprintf("%s/results?since=%s", f.baseURL, since.Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch results: upstream status %d", resp.StatusCode)
	}
	var rows []RawDraw
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return rows, nil
}

// ─── Normalization ──────────────────────────────────────────────────────────

// dateLayouts are tried in order when parsing upstream dates.
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "02/01/2006"}

// Normalize converts one raw row into a draw. It validates both number
// sets; an incomplete machine set is dropped rather than stored
// partially.
func Normalize(raw RawDraw, drawTypeID int64) (domain.Draw, error) {
	date, err := parseDate(raw.Date)
	if err != nil {
		return domain.Draw{}, err
	}
	winning, err := parseNumbers(raw.Winning)
	if err != nil {
		return domain.Draw{}, fmt.Errorf("winning set: %w", err)
	}

	d := domain.Draw{
		DrawTypeID: drawTypeID,
		Date:       date,
		DayOfWeek:  int(date.Weekday()),
		Winning:    winning,
	}
	if raw.Machine != "" {
		machine, err := parseNumbers(raw.Machine)
		if err == nil {
			d.Machine = machine
		}
	}
	return d, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable draw date %q", s)
}

// parseNumbers splits "7-15-23-42-71" (or comma/space separated) into
// a validated set of five.
func parseNumbers(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == ',' || r == ' ' || r == ';'
	})
	nums := make([]int, 0, domain.DrawSize)
	for _, f := range fields {
		var n int
		if _, err := fmt.Sscanf(f, "%d", &n); err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		nums = append(nums, n)
	}
	if err := domain.ValidateSet(nums); err != nil {
		return nil, err
	}
	return nums, nil
}
