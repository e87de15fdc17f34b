// Package index maintains an inverted index over record text.
//
// The index is a derived, best-effort structure: it observes record store
// mutations, degrades to reduced recall when out of date, and is never the
// source of truth. Maintenance failures are logged and skipped, not
// propagated to mutating callers.
package index

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/oneconcern/braid/pkg/model"
	"github.com/oneconcern/braid/pkg/store"
	"go.uber.org/zap"
)

// Index is an inverted index mapping tokens to posting lists of record ids,
// with per-record term frequencies for ranking. Safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	postings map[string]map[string]int // token -> id -> term frequency
	tokens   map[string][]string       // id -> tokens currently indexed
	l        *zap.Logger
}

// Option is a functor to configure the index
type Option func(*Index)

// Logger sets a zap logger for index maintenance
func Logger(l *zap.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.l = l
		}
	}
}

// New builds an empty index
func New(opts ...Option) *Index {
	ix := &Index{
		postings: make(map[string]map[string]int),
		tokens:   make(map[string][]string),
		l:        zap.NewNop(),
	}
	for _, apply := range opts {
		apply(ix)
	}
	return ix
}

// Observe wires the index to a record store: every subsequent mutation is
// applied incrementally, per record.
func (ix *Index) Observe(s *store.Store) {
	s.Subscribe(func(ev store.Event) {
		switch ev.Op {
		case store.OpPut:
			ix.Update(ev.Record)
		case store.OpDelete:
			ix.Remove(ev.ID)
		}
	})
}

// Rebuild repopulates the index with a full scan of the store. This is the
// cold-start path; afterwards the index stays current through Observe.
func (ix *Index) Rebuild(ctx context.Context, s *store.Store) {
	ix.mu.Lock()
	ix.postings = make(map[string]map[string]int)
	ix.tokens = make(map[string][]string)
	ix.mu.Unlock()

	err := s.ListApply(ctx, func(r model.Record) error {
		ix.Update(&r)
		return nil
	})
	if err != nil {
		// best effort: reduced recall, never a failed operation
		ix.l.Warn("search index rebuild incomplete", zap.Error(err))
	}
}

// Update (re)indexes one record
func (ix *Index) Update(r *model.Record) {
	if r == nil {
		return
	}
	freqs := termFrequencies(r)
	toks := make([]string, 0, len(freqs))
	for tok := range freqs {
		toks = append(toks, tok)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(r.ID)
	for tok, n := range freqs {
		posting := ix.postings[tok]
		if posting == nil {
			posting = make(map[string]int)
			ix.postings[tok] = posting
		}
		posting[r.ID] = n
	}
	ix.tokens[r.ID] = toks
}

// Remove drops one record from the index
func (ix *Index) Remove(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id)
}

func (ix *Index) removeLocked(id string) {
	for _, tok := range ix.tokens[id] {
		delete(ix.postings[tok], id)
		if len(ix.postings[tok]) == 0 {
			delete(ix.postings, tok)
		}
	}
	delete(ix.tokens, id)
}

// Hit is one ranked search result
type Hit struct {
	ID    string
	Score int
}

// Query returns the ids of records containing the term, ranked by term
// frequency across title, labels and body, ties broken by ascending id.
func (ix *Index) Query(term string) []Hit {
	toks := tokenize(term)
	if len(toks) == 0 {
		return nil
	}

	ix.mu.RLock()
	scores := make(map[string]int)
	for _, tok := range toks {
		for id, n := range ix.postings[tok] {
			scores[id] += n
		}
	}
	ix.mu.RUnlock()

	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, Hit{ID: id, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return model.CompareIDs(hits[i].ID, hits[j].ID) < 0
	})
	return hits
}

func termFrequencies(r *model.Record) map[string]int {
	freqs := make(map[string]int)
	for _, tok := range tokenize(r.Title) {
		freqs[tok]++
	}
	for _, label := range r.Labels {
		for _, tok := range tokenize(label) {
			freqs[tok]++
		}
	}
	for _, tok := range tokenize(r.Body) {
		freqs[tok]++
	}
	return freqs
}

// tokenize lowercases and splits on anything that is not a letter or digit
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
