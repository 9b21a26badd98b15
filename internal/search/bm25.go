package search

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/crawlab-team/bm25"

	"github.com/qlerdi098-png/chatbot-filkom/internal/kb"
	"github.com/qlerdi098-png/chatbot-filkom/internal/logger"
)

// BM25 parameters; k1=1.5, b=0.75 are the standard values.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// scored pairs a corpus document index with a retrieval score.
type scored struct {
	DocID int
	Score float64
}

// LexicalIndex ranks knowledge base documents with BM25 keyword matching.
type LexicalIndex struct {
	log *logger.Logger

	mu          sync.RWMutex
	okapi       *bm25.BM25Okapi
	corpus      []string
	initialized bool
}

// NewLexicalIndex creates an empty BM25 index.
func NewLexicalIndex(log *logger.Logger) *LexicalIndex {
	return &LexicalIndex{
		log: log.WithModule("search.bm25"),
	}
}

// Initialize builds the index over the document corpus. Each document is
// indexed as "title | content", matching the corpus the embeddings see.
func (idx *LexicalIndex) Initialize(docs []kb.Document) error {
	if idx == nil {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	corpus := make([]string, 0, len(docs))
	for _, d := range docs {
		corpus = append(corpus, d.Title+" | "+d.Content)
	}

	if len(corpus) == 0 {
		idx.corpus = nil
		idx.okapi = nil
		idx.initialized = true
		return nil
	}

	okapi, err := bm25.NewBM25Okapi(corpus, tokenize, bm25K1, bm25B, nil)
	if err != nil {
		return fmt.Errorf("failed to create BM25 index: %w", err)
	}

	idx.corpus = corpus
	idx.okapi = okapi
	idx.initialized = true

	idx.log.WithField("docs", len(corpus)).Info("BM25 index initialized")
	return nil
}

// IsEnabled reports whether the index has been initialized.
func (idx *LexicalIndex) IsEnabled() bool {
	if idx == nil {
		return false
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.initialized
}

// Count returns the number of indexed documents.
func (idx *LexicalIndex) Count() int {
	if idx == nil {
		return 0
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.corpus)
}

// Search returns up to topN documents with positive BM25 scores,
// sorted by score descending.
func (idx *LexicalIndex) Search(query string, topN int) ([]scored, error) {
	if idx == nil {
		return nil, nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.initialized || idx.okapi == nil {
		return nil, nil
	}

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	scores, err := idx.okapi.GetScores(tokens)
	if err != nil {
		return nil, fmt.Errorf("BM25 scoring failed: %w", err)
	}

	results := make([]scored, 0, len(scores))
	for docID, score := range scores {
		if score > 0 {
			results = append(results, scored{DocID: docID, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}

	return results, nil
}
