package server

import (
	"time"

	"github.com/oraculo-ai/oraculo/internal/sources"
)

// AuthRequest is the signup/login payload.
type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AskRequest is the question payload. Sources, when given, restricts and
// orders the fan-out.
type AskRequest struct {
	Question string   `json:"question"`
	Sources  []string `json:"sources,omitempty"`
}

// AskResponse is the answered question.
type AskResponse struct {
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Label     string   `json:"label"`
	Sources   []string `json:"sources"`
	Strategy  string   `json:"strategy"`
	Quality   float64  `json:"quality"`
	LatencyMS int64    `json:"latency_ms"`
}

// SourceAnswer is one provider's raw answer on the diagnostic endpoint.
type SourceAnswer struct {
	Source string `json:"source"`
	Answer string `json:"answer"`
}

// HistoryEntry is one stored exchange.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Label     string    `json:"label"`
	Quality   float64   `json:"quality"`
	LatencyMS int64     `json:"latency_ms"`
	Helpful   *bool     `json:"helpful,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackRequest rates a stored exchange.
type FeedbackRequest struct {
	ExchangeID string `json:"exchange_id"`
	Helpful    bool   `json:"helpful"`
}

func toStrings(names []sources.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

func toSourceNames(raw []string) []sources.Name {
	out := make([]sources.Name, 0, len(raw))
	for _, r := range raw {
		out = append(out, sources.Name(r))
	}
	return out
}
