package sources

import (
	"sort"
	"time"

	"github.com/mozawave/market-watch/internal/clock"
	"github.com/mozawave/market-watch/internal/config"
)

const (
	breakerFailures = 3
	breakerCooldown = 5 * time.Minute
)

// FromConfig builds a breaker-wrapped fetcher for every configured snapshot
// endpoint plus the news source, ordered by name
func FromConfig(cfg *config.Config, c clock.Clock) []Fetcher {
	names := make([]string, 0, len(cfg.SourceEndpoints))
	for name := range cfg.SourceEndpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	fetchers := make([]Fetcher, 0, len(names)+1)
	for _, name := range names {
		if name == NewsSourceName {
			continue
		}
		source := NewHTTPSnapshotSource(name, cfg.SourceEndpoints[name], cfg.SourceAPIKey)
		fetchers = append(fetchers, NewBreakerFetcher(source, breakerFailures, breakerCooldown))
	}

	news := NewNewsSource(cfg.NewsWindow, c)
	if endpoint, ok := cfg.SourceEndpoints[NewsSourceName]; ok {
		news.WithBaseURL(endpoint)
	}
	fetchers = append(fetchers, NewBreakerFetcher(news, breakerFailures, breakerCooldown))

	return fetchers
}
