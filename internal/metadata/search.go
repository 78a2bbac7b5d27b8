package metadata

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"mediatrack/pkg/models"
)

// MinQueryLength is the shortest query, in runes, that reaches the providers.
const MinQueryLength = 2

// Searcher fans a query out to every provider and merges the answers in
// provider registration order.
type Searcher struct {
	providers []Provider
	logger    *slog.Logger
}

func NewSearcher(logger *slog.Logger, providers ...Provider) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{providers: providers, logger: logger}
}

// Lookup returns the provider registered for source.
func (s *Searcher) Lookup(source models.Source) (Provider, bool) {
	for _, p := range s.providers {
		if p.Name() == source {
			return p, true
		}
	}
	return nil, false
}

func (s *Searcher) Search(ctx context.Context, query string, limit int) []models.Candidate {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []models.Candidate{}
	}
	limit = ClampLimit(limit)

	lists := make([][]models.Candidate, len(s.providers))
	var wg sync.WaitGroup
	for i, p := range s.providers {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			lists[i] = p.Search(ctx, query, limit)
		}()
	}
	wg.Wait()

	merged := Merge(lists...)
	s.logger.Debug("search merged", "query", query, "providers", len(s.providers), "results", len(merged))
	return merged
}
