package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oraculo-ai/oraculo/config"
	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// WikipediaAdapter runs the two-phase encyclopedia lookup: a title search
// for the top three candidates, then REST summaries for the first two until
// one yields a substantial extract.
type WikipediaAdapter struct {
	searchEndpoint  string
	summaryEndpoint string
	timeout         time.Duration
	client          *http.Client
}

func NewWikipedia(cfg config.WikipediaConfig, client *http.Client) *WikipediaAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &WikipediaAdapter{
		searchEndpoint:  cfg.SearchEndpoint,
		summaryEndpoint: strings.TrimRight(cfg.SummaryEndpoint, "/"),
		timeout:         cfg.Timeout,
		client:          client,
	}
}

func (w *WikipediaAdapter) Name() Name             { return Wikipedia }
func (w *WikipediaAdapter) Timeout() time.Duration { return w.timeout }

func (w *WikipediaAdapter) Fetch(ctx context.Context, query string) (string, error) {
	titles, err := w.search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(titles) > 2 {
		titles = titles[:2]
	}
	for _, title := range titles {
		extract, err := w.summary(ctx, title)
		if err != nil {
			continue // a broken candidate page should not kill the lookup
		}
		if len(extract) > 100 {
			return extract, nil
		}
	}
	return "", nil
}

func (w *WikipediaAdapter) search(ctx context.Context, query string) ([]string, error) {
	u := w.searchEndpoint + "?" + url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"3"},
		"format":   {"json"},
	}.Encode()
	body, err := getBody(ctx, w.client, Wikipedia, u)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	var titles []string
	for _, s := range raw.Query.Search {
		if s.Title != "" {
			titles = append(titles, s.Title)
		}
	}
	return titles, nil
}

func (w *WikipediaAdapter) summary(ctx context.Context, title string) (string, error) {
	u := w.summaryEndpoint + "/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	body, err := getBody(ctx, w.client, Wikipedia, u)
	if err != nil {
		return "", err
	}
	var raw struct {
		Extract string `json:"extract"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", err
	}
	return textutil.Clean(raw.Extract), nil
}
