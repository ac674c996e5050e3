package sources

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oraculo-ai/oraculo/config"
	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// ArxivAdapter searches the arXiv Atom API and joins the abstracts of the
// top two relevant papers. Useful for scientific questions only; the policy
// selects it accordingly.
type ArxivAdapter struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

func NewArxiv(cfg config.ArxivConfig, client *http.Client) *ArxivAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &ArxivAdapter{endpoint: cfg.Endpoint, timeout: cfg.Timeout, client: client}
}

func (a *ArxivAdapter) Name() Name             { return Arxiv }
func (a *ArxivAdapter) Timeout() time.Duration { return a.timeout }

func (a *ArxivAdapter) Fetch(ctx context.Context, query string) (string, error) {
	u := a.endpoint + "?" + url.Values{
		"search_query": {"all:" + query},
		"start":        {"0"},
		"max_results":  {"3"},
		"sortBy":       {"relevance"},
	}.Encode()
	body, err := getBody(ctx, a.client, Arxiv, u)
	if err != nil {
		return "", err
	}

	var feed struct {
		Entries []struct {
			Title   string `xml:"title"`
			Summary string `xml:"summary"`
		} `xml:"entry"`
	}
	if err := xml.Unmarshal(body, &feed); err != nil {
		return "", err
	}

	var parts []string
	for _, entry := range feed.Entries {
		summary := textutil.Clean(entry.Summary)
		if len(summary) > 100 {
			parts = append(parts, textutil.Truncate(summary, 400))
		}
		if len(parts) == 2 {
			break
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, " "), nil
}
