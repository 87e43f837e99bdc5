// Package search is the CLI-facing layer over the store's FTS5 index:
// query sanitization, index-freshness checks, and filter plumbing.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lorehq/lore/internal/model"
	"github.com/lorehq/lore/internal/store"
)

// Options narrows a search by repo/tool location, recency, and role, per
// the store's search_messages filter set.
type Options struct {
	Limit            int
	WorkingDirPrefix string
	Since            *time.Time
	Role             model.MessageRole
}

// DefaultOptions returns a search with a sensible result cap and no
// filters.
func DefaultOptions() Options {
	return Options{Limit: 20}
}

// Searcher wraps a Store with query building and index-freshness
// bookkeeping, so every search through the CLI sees a consistent index
// without callers needing to remember to rebuild it themselves.
type Searcher struct {
	store *store.Store

	checkedThisProcess bool
}

// NewSearcher binds a Searcher to st.
func NewSearcher(st *store.Store) *Searcher {
	return &Searcher{store: st}
}

// Search runs query against the store, rebuilding the FTS index first if
// this is the first search this process has run and the index is stale
// (spec requirement: callers must check once per process).
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]model.SearchResult, error) {
	if err := s.ensureIndexFresh(ctx); err != nil {
		return nil, err
	}

	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	results, err := s.store.SearchMessages(ctx, ftsQuery, limit, opts.WorkingDirPrefix, opts.Since, opts.Role)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return results, nil
}

func (s *Searcher) ensureIndexFresh(ctx context.Context) error {
	if s.checkedThisProcess {
		return nil
	}
	s.checkedThisProcess = true

	needsRebuild, err := s.store.SearchIndexNeedsRebuild(ctx)
	if err != nil {
		return fmt.Errorf("check search index: %w", err)
	}
	if !needsRebuild {
		return nil
	}
	if _, err := s.store.RebuildSearchIndex(ctx); err != nil {
		return fmt.Errorf("rebuild search index: %w", err)
	}
	return nil
}

// buildFTSQuery turns free-form user input into an FTS5 prefix-match
// query, stripping characters that would otherwise break MATCH syntax.
func buildFTSQuery(query string) string {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return ""
	}

	var parts []string
	for _, word := range words {
		cleaned := strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				return r
			default:
				return -1
			}
		}, word)
		if cleaned != "" {
			parts = append(parts, cleaned+"*")
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ")
}
