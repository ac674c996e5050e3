package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oraculo-ai/oraculo/config"
	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// YouTubeAdapter searches the Data API for the most relevant video and
// returns the opening segments of its caption track. Videos without captions
// yield nothing.
type YouTubeAdapter struct {
	apiKey             string
	searchEndpoint     string
	transcriptEndpoint string
	timeout            time.Duration
	client             *http.Client
}

const transcriptSegments = 20

func NewYouTube(cfg config.YouTubeConfig, client *http.Client) *YouTubeAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &YouTubeAdapter{
		apiKey:             cfg.APIKey,
		searchEndpoint:     cfg.SearchEndpoint,
		transcriptEndpoint: cfg.TranscriptEndpoint,
		timeout:            cfg.Timeout,
		client:             client,
	}
}

func (y *YouTubeAdapter) Name() Name             { return YouTube }
func (y *YouTubeAdapter) Timeout() time.Duration { return y.timeout }
func (y *YouTubeAdapter) Configured() bool       { return y.apiKey != "" }

func (y *YouTubeAdapter) Fetch(ctx context.Context, query string) (string, error) {
	if y.apiKey == "" {
		return "", nil
	}
	videoID, err := y.search(ctx, query)
	if err != nil {
		return "", err
	}
	if videoID == "" {
		return "", nil
	}
	for _, lang := range []string{"pt", "en"} {
		transcript, err := y.transcript(ctx, videoID, lang)
		if err != nil {
			return "", err
		}
		if len(transcript) > 100 {
			return transcript, nil
		}
	}
	return "", nil
}

func (y *YouTubeAdapter) search(ctx context.Context, query string) (string, error) {
	u := y.searchEndpoint + "?" + url.Values{
		"part":       {"id"},
		"q":          {query},
		"type":       {"video"},
		"maxResults": {"1"},
		"order":      {"relevance"},
		"key":        {y.apiKey},
	}.Encode()
	body, err := getBody(ctx, y.client, YouTube, u)
	if err != nil {
		return "", err
	}
	var raw struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", err
	}
	if len(raw.Items) == 0 {
		return "", nil
	}
	return raw.Items[0].ID.VideoID, nil
}

func (y *YouTubeAdapter) transcript(ctx context.Context, videoID, lang string) (string, error) {
	u := y.transcriptEndpoint + "?" + url.Values{
		"v":    {videoID},
		"lang": {lang},
	}.Encode()
	body, err := getBody(ctx, y.client, YouTube, u)
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", nil // no caption track in this language
	}
	var track struct {
		Texts []struct {
			Value string `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.Unmarshal(body, &track); err != nil {
		return "", nil // caption endpoint answers garbage for some videos
	}
	var parts []string
	for i, t := range track.Texts {
		if i >= transcriptSegments {
			break
		}
		segment := strings.TrimSpace(html.UnescapeString(t.Value))
		if segment != "" {
			parts = append(parts, segment)
		}
	}
	return textutil.Clean(strings.Join(parts, " ")), nil
}
