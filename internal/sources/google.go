package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/oraculo-ai/oraculo/config"
	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// GoogleAdapter queries Google Custom Search and concatenates the top result
// snippets. When snippets alone are thin and fetch_top_link is enabled it
// downloads the first result page and extracts its readable text.
type GoogleAdapter struct {
	apiKey       string
	cx           string
	endpoint     string
	maxResults   int
	fetchTopLink bool
	timeout      time.Duration
	client       *http.Client
}

func NewGoogle(cfg config.GoogleConfig, client *http.Client) *GoogleAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}
	return &GoogleAdapter{
		apiKey:       cfg.APIKey,
		cx:           cfg.CX,
		endpoint:     cfg.Endpoint,
		maxResults:   maxResults,
		fetchTopLink: cfg.FetchTopLink,
		timeout:      cfg.Timeout,
		client:       client,
	}
}

func (g *GoogleAdapter) Name() Name             { return Google }
func (g *GoogleAdapter) Timeout() time.Duration { return g.timeout }
func (g *GoogleAdapter) Configured() bool       { return g.apiKey != "" && g.cx != "" }

func (g *GoogleAdapter) Fetch(ctx context.Context, query string) (string, error) {
	if !g.Configured() {
		return "", nil
	}
	u := g.endpoint + "?" + url.Values{
		"key": {g.apiKey},
		"cx":  {g.cx},
		"q":   {query},
		"num": {"5"},
	}.Encode()
	body, err := getBody(ctx, g.client, Google, u)
	if err != nil {
		return "", err
	}

	var raw struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", err
	}
	if len(raw.Items) == 0 {
		return "", nil
	}

	var parts []string
	for i, item := range raw.Items {
		if i >= g.maxResults {
			break
		}
		snippet := textutil.Clean(item.Snippet)
		if len(snippet) >= textutil.MinSentenceLen {
			parts = append(parts, snippet)
		}
	}
	answer := strings.Join(parts, " ")

	// Snippets are clipped mid-sentence; when thin, pull the top page and
	// let readability find the article body.
	if g.fetchTopLink && len(answer) < 200 && raw.Items[0].Link != "" {
		if page := g.readPage(ctx, raw.Items[0].Link); page != "" {
			answer = page
		}
	}
	if len(answer) < textutil.MinSentenceLen {
		return "", nil
	}
	return answer, nil
}

func (g *GoogleAdapter) readPage(ctx context.Context, link string) string {
	body, err := getBody(ctx, g.client, Google, link)
	if err != nil {
		return ""
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return ""
	}
	return textutil.Truncate(textutil.Clean(article.TextContent), 1000)
}
