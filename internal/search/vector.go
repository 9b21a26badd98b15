package search

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/qlerdi098-png/chatbot-filkom/internal/kb"
	"github.com/qlerdi098-png/chatbot-filkom/internal/logger"
)

// CollectionName is the chromem collection holding the KB documents.
const CollectionName = "kb_documents"

// VectorIndex wraps chromem-go for semantic search over the KB corpus.
type VectorIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	embed      chromem.EmbeddingFunc
	log        *logger.Logger

	mu          sync.RWMutex
	docCount    int
	initialized bool
}

// NewVectorIndex creates a vector index using the given embedding function.
// persistDir is the base data directory; empty means in-memory only.
// Returns nil if embed is nil (semantic search disabled).
func NewVectorIndex(persistDir string, embed chromem.EmbeddingFunc, log *logger.Logger) (*VectorIndex, error) {
	if embed == nil {
		log.Info("Embedding function not configured, semantic search disabled")
		return nil, nil
	}

	var (
		db  *chromem.DB
		err error
	)
	if persistDir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(filepath.Join(persistDir, "chromem"), false)
		if err != nil {
			return nil, fmt.Errorf("failed to create chromem database: %w", err)
		}
	}

	return &VectorIndex{
		db:    db,
		embed: embed,
		log:   log.WithModule("search.vector"),
	}, nil
}

// Initialize embeds and stores the document corpus. Documents already
// persisted from a previous run are reused instead of re-embedded.
func (v *VectorIndex) Initialize(ctx context.Context, docs []kb.Document) error {
	if v == nil {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	collection, err := v.db.GetOrCreateCollection(CollectionName, nil, v.embed)
	if err != nil {
		return fmt.Errorf("failed to get/create collection: %w", err)
	}
	v.collection = collection

	if existing := collection.Count(); existing >= len(docs) && existing > 0 {
		v.docCount = existing
		v.initialized = true
		v.log.WithField("count", existing).Info("Loaded existing document embeddings")
		return nil
	}

	chromemDocs := make([]chromem.Document, 0, len(docs))
	for i, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		chromemDocs = append(chromemDocs, chromem.Document{
			ID:      strconv.Itoa(i),
			Content: d.Title + " | " + d.Content,
			Metadata: map[string]string{
				"doc_id":   strconv.Itoa(i),
				"judul":    d.Title,
				"kategori": d.Category,
				"source":   d.Source,
			},
		})
	}

	if len(chromemDocs) > 0 {
		// 4 concurrent embedding requests
		if err := collection.AddDocuments(ctx, chromemDocs, 4); err != nil {
			return fmt.Errorf("failed to add documents: %w", err)
		}
	}

	v.docCount = collection.Count()
	v.initialized = true
	v.log.WithField("count", v.docCount).Info("Indexed documents for semantic search")
	return nil
}

// IsEnabled reports whether the index is ready to serve queries.
func (v *VectorIndex) IsEnabled() bool {
	if v == nil {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.initialized
}

// Search returns up to topN documents by cosine similarity, descending.
// Scores come back in the 0-1 range.
func (v *VectorIndex) Search(ctx context.Context, query string, topN int) ([]scored, error) {
	if v == nil {
		return nil, nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.initialized || v.collection == nil {
		return nil, nil
	}

	count := v.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topN <= 0 || topN > count {
		topN = count
	}

	results, err := v.collection.Query(ctx, query, topN, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	out := make([]scored, 0, len(results))
	for _, r := range results {
		if r.Similarity <= 0 {
			continue
		}
		docID, err := strconv.Atoi(r.Metadata["doc_id"])
		if err != nil {
			continue
		}
		out = append(out, scored{DocID: docID, Score: float64(r.Similarity)})
	}

	return out, nil
}
