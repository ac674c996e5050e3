package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/oraculo-ai/oraculo/config"
	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// DuckDuckGoAdapter queries the instant-answer API. Preference order is
// AbstractText, then Definition, then the first related topic long enough to
// carry meaning. Needs no credentials.
type DuckDuckGoAdapter struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

func NewDuckDuckGo(cfg config.DuckDuckGoConfig, client *http.Client) *DuckDuckGoAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &DuckDuckGoAdapter{endpoint: cfg.Endpoint, timeout: cfg.Timeout, client: client}
}

func (d *DuckDuckGoAdapter) Name() Name             { return DuckDuckGo }
func (d *DuckDuckGoAdapter) Timeout() time.Duration { return d.timeout }

func (d *DuckDuckGoAdapter) Fetch(ctx context.Context, query string) (string, error) {
	u := d.endpoint + "?" + url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	}.Encode()
	body, err := getBody(ctx, d.client, DuckDuckGo, u)
	if err != nil {
		return "", err
	}

	var raw struct {
		AbstractText  string `json:"AbstractText"`
		Definition    string `json:"Definition"`
		RelatedTopics []struct {
			Text string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", err
	}

	for _, candidate := range []string{raw.AbstractText, raw.Definition} {
		if text := textutil.Clean(candidate); len(text) >= textutil.MinSentenceLen {
			return text, nil
		}
	}
	for _, topic := range raw.RelatedTopics {
		if text := textutil.Clean(topic.Text); len(text) > 50 {
			return text, nil
		}
	}
	return "", nil
}
