package sources

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oraculo-ai/oraculo/config"
	"github.com/oraculo-ai/oraculo/internal/textutil"
)

// WolframAdapter queries the Wolfram Alpha short-answer API: the plain
// /v1/result endpoint first, then /v1/spoken when the first answer is too
// terse to stand on its own.
type WolframAdapter struct {
	appID          string
	resultEndpoint string
	spokenEndpoint string
	timeout        time.Duration
	client         *http.Client
}

func NewWolfram(cfg config.WolframConfig, client *http.Client) *WolframAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &WolframAdapter{
		appID:          cfg.AppID,
		resultEndpoint: cfg.ResultEndpoint,
		spokenEndpoint: cfg.SpokenEndpoint,
		timeout:        cfg.Timeout,
		client:         client,
	}
}

func (w *WolframAdapter) Name() Name             { return Wolfram }
func (w *WolframAdapter) Timeout() time.Duration { return w.timeout }
func (w *WolframAdapter) Configured() bool       { return w.appID != "" }

func (w *WolframAdapter) Fetch(ctx context.Context, query string) (string, error) {
	if w.appID == "" {
		return "", nil
	}

	answer, err := w.ask(ctx, w.resultEndpoint, query)
	if err != nil {
		return "", err
	}
	if usable(answer) {
		return answer, nil
	}
	if w.spokenEndpoint == "" {
		return "", nil
	}
	answer, err = w.ask(ctx, w.spokenEndpoint, query)
	if err != nil {
		return "", err
	}
	if usable(answer) {
		return answer, nil
	}
	return "", nil
}

func (w *WolframAdapter) ask(ctx context.Context, endpoint, query string) (string, error) {
	u := endpoint + "?" + url.Values{
		"appid": {w.appID},
		"i":     {query},
		"units": {"metric"},
	}.Encode()
	body, err := getBody(ctx, w.client, Wolfram, u)
	if err != nil {
		// Wolfram answers "no result" with a 501; treat it as empty,
		// not as a failure.
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotImplemented {
			return "", nil
		}
		return "", err
	}
	return textutil.Clean(string(body)), nil
}

// usable rejects the short refusals Wolfram returns as 200s.
func usable(answer string) bool {
	if len(answer) < textutil.MinSentenceLen {
		return false
	}
	low := strings.ToLower(answer)
	return !strings.Contains(low, "did not understand") && !strings.Contains(low, "no short answer")
}
