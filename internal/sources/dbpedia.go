package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/oraculo-ai/oraculo/config"
	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// DBpediaAdapter resolves the query's main entity against the DBpedia
// structured-data endpoint and returns its English abstract. Works only for
// queries with a recognizable proper-noun subject.
type DBpediaAdapter struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

func NewDBpedia(cfg config.DBpediaConfig, client *http.Client) *DBpediaAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &DBpediaAdapter{endpoint: strings.TrimRight(cfg.Endpoint, "/"), timeout: cfg.Timeout, client: client}
}

func (d *DBpediaAdapter) Name() Name             { return DBpedia }
func (d *DBpediaAdapter) Timeout() time.Duration { return d.timeout }

func (d *DBpediaAdapter) Fetch(ctx context.Context, query string) (string, error) {
	entity := entityFromQuery(query)
	if entity == "" {
		return "", nil
	}
	u := d.endpoint + "/" + url.PathEscape(entity) + ".json"
	body, err := getBody(ctx, d.client, DBpedia, u)
	if err != nil {
		return "", err
	}

	var raw map[string]map[string][]struct {
		Value string `json:"value"`
		Lang  string `json:"lang"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", err
	}

	resource := "http://dbpedia.org/resource/" + entity
	for _, lang := range []string{"en", "pt"} {
		for _, abstract := range raw[resource]["http://dbpedia.org/ontology/abstract"] {
			if abstract.Lang != lang {
				continue
			}
			text := textutil.Clean(abstract.Value)
			if len(text) > 100 {
				return textutil.Truncate(text, 800), nil
			}
		}
	}
	return "", nil
}

// entityFromQuery guesses the DBpedia resource name: the longest run of
// capitalized words past the interrogative, underscore-joined. Returns ""
// when the query has no proper-noun subject to resolve.
func entityFromQuery(query string) string {
	words := strings.Fields(strings.TrimRight(query, "?!."))
	var best, run []string
	flush := func() {
		if len(run) > len(best) {
			best = run
		}
		run = nil
	}
	for i, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if i > 0 && len([]rune(trimmed)) > 2 && firstUpper(trimmed) {
			run = append(run, trimmed)
			continue
		}
		flush()
	}
	flush()
	return strings.Join(best, "_")
}

func firstUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
