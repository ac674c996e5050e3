package sources

import (
	"net/http"

	"github.com/oraculo-ai/oraculo/config"
)

// FromConfig builds the full registry in canonical order. Adapters whose
// credentials are missing are still registered; they answer every query with
// nothing, and the selection policy learns to stop picking them.
func FromConfig(cfg config.SourcesConfig, client *http.Client) *Registry {
	return NewRegistry(
		NewWolfram(cfg.Wolfram, client),
		NewGoogle(cfg.Google, client),
		NewDuckDuckGo(cfg.DuckDuckGo, client),
		NewWikipedia(cfg.Wikipedia, client),
		NewArxiv(cfg.Arxiv, client),
		NewDBpedia(cfg.DBpedia, client),
		NewYouTube(cfg.YouTube, client),
	)
}
