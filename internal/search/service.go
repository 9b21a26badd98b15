// Package search implements hybrid retrieval over the knowledge base
// corpus: BM25 keyword matching blended with vector similarity.
package search

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/qlerdi098-png/chatbot-filkom/internal/errors"
	"github.com/qlerdi098-png/chatbot-filkom/internal/kb"
	"github.com/qlerdi098-png/chatbot-filkom/internal/logger"
)

// Search modes accepted by Service.Search. Unknown modes fall back to hybrid.
const (
	ModeHybrid   = "hybrid"
	ModeBM25     = "bm25"
	ModeSemantic = "semantic"
)

// Default blend parameters. BM25 contributes 40%, vector similarity 60%,
// and hybrid results below the score threshold are dropped.
const (
	DefaultBM25Weight     = 0.4
	DefaultSemanticWeight = 0.6
	DefaultScoreThreshold = 0.3
	DefaultTopK           = 5
)

// Config tunes the hybrid blend.
type Config struct {
	BM25Weight     float64
	SemanticWeight float64
	ScoreThreshold float64
	TopK           int
}

// DefaultConfig returns the standard blend parameters.
func DefaultConfig() Config {
	return Config{
		BM25Weight:     DefaultBM25Weight,
		SemanticWeight: DefaultSemanticWeight,
		ScoreThreshold: DefaultScoreThreshold,
		TopK:           DefaultTopK,
	}
}

// Result is one retrieved document.
type Result struct {
	DocumentID int               `json:"document_id"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata"`
	Score      float64           `json:"score"`
	Confidence float64           `json:"confidence"`
}

// Response is the outcome of a search request.
type Response struct {
	Success    bool     `json:"success"`
	Query      string   `json:"query"`
	Mode       string   `json:"search_type"`
	Results    []Result `json:"results"`
	TotalFound int      `json:"total_found"`
}

// MetricsRecorder records search request outcomes.
type MetricsRecorder interface {
	RecordSearchRequest(mode, status string, duration float64)
}

// Service coordinates the lexical and vector indexes over a shared corpus.
type Service struct {
	lexical *LexicalIndex
	vector  *VectorIndex
	cfg     Config
	log     *logger.Logger

	mu   sync.RWMutex
	docs []kb.Document

	metrics MetricsRecorder
}

// NewService creates a search service. Either index may be nil; hybrid
// search degrades to the remaining source.
func NewService(lexical *LexicalIndex, vector *VectorIndex, cfg Config, log *logger.Logger) *Service {
	if cfg.BM25Weight <= 0 && cfg.SemanticWeight <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Service{
		lexical: lexical,
		vector:  vector,
		cfg:     cfg,
		log:     log.WithModule("search"),
	}
}

// SetMetrics attaches a metrics recorder.
func (s *Service) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// Initialize indexes the corpus in both sources.
func (s *Service) Initialize(ctx context.Context, docs []kb.Document) error {
	s.mu.Lock()
	s.docs = append([]kb.Document(nil), docs...)
	s.mu.Unlock()

	if s.lexical != nil {
		if err := s.lexical.Initialize(docs); err != nil {
			return err
		}
	}
	if s.vector != nil {
		if err := s.vector.Initialize(ctx, docs); err != nil {
			return err
		}
	}
	return nil
}

// IsLoaded reports whether at least one index is ready.
func (s *Service) IsLoaded() bool {
	if s == nil {
		return false
	}
	return s.lexical.IsEnabled() || s.vector.IsEnabled()
}

// Search retrieves up to topK documents for the query. mode selects the
// retrieval strategy; topK <= 0 uses the configured default.
func (s *Service) Search(ctx context.Context, query, mode string, topK int) (*Response, error) {
	start := time.Now()

	if !s.IsLoaded() {
		s.recordMetrics(mode, "error", start)
		return nil, apperrors.ErrSearchUnavailable
	}

	if topK <= 0 {
		topK = s.cfg.TopK
	}

	var (
		results []Result
		err     error
	)

	switch mode {
	case ModeBM25:
		results, err = s.searchBM25(query, topK)
	case ModeSemantic:
		results, err = s.searchSemantic(ctx, query, topK)
	default:
		mode = ModeHybrid
		results, err = s.searchHybrid(ctx, query, topK)
	}

	if err != nil {
		s.recordMetrics(mode, "error", start)
		return nil, err
	}

	status := "success"
	if len(results) == 0 {
		status = "empty"
	}
	s.recordMetrics(mode, status, start)

	return &Response{
		Success:    true,
		Query:      query,
		Mode:       mode,
		Results:    results,
		TotalFound: len(results),
	}, nil
}

func (s *Service) recordMetrics(mode, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordSearchRequest(mode, status, time.Since(start).Seconds())
	}
}

// searchBM25 runs keyword search only. BM25 scores are unbounded, so
// confidence divides by 10 and caps at 1.
func (s *Service) searchBM25(query string, topK int) ([]Result, error) {
	hits, err := s.lexical.Search(query, topK)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, s.toResult(h.DocID, h.Score, min(h.Score/10, 1.0)))
	}
	return results, nil
}

// searchSemantic runs vector search only. Cosine similarity is already 0-1.
func (s *Service) searchSemantic(ctx context.Context, query string, topK int) ([]Result, error) {
	hits, err := s.vector.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, s.toResult(h.DocID, h.Score, min(h.Score, 1.0)))
	}
	return results, nil
}

// searchHybrid runs both sources in parallel and blends them: each score
// set is max-normalized to 0-1, weighted, and summed per document. Blended
// scores below the threshold are dropped.
func (s *Service) searchHybrid(ctx context.Context, query string, topK int) ([]Result, error) {
	// Fetch more than topK from each source so the blend has overlap to work with.
	fetchN := topK * 3
	if fetchN < 10 {
		fetchN = 10
	}

	var (
		bm25Hits   []scored
		vectorHits []scored
		bm25Err    error
		vectorErr  error
		wg         sync.WaitGroup
	)

	if s.lexical.IsEnabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bm25Hits, bm25Err = s.lexical.Search(query, fetchN)
		}()
	}

	if s.vector.IsEnabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vectorHits, vectorErr = s.vector.Search(ctx, query, fetchN)
		}()
	}

	wg.Wait()

	// A single failed source degrades the blend, it does not fail the search.
	if bm25Err != nil {
		s.log.WithError(bm25Err).Warn("BM25 search failed")
	}
	if vectorErr != nil {
		s.log.WithError(vectorErr).Warn("Vector search failed")
	}
	if bm25Err != nil && vectorErr != nil {
		return nil, bm25Err
	}

	blended := make(map[int]float64)
	accumulate(blended, bm25Hits, s.cfg.BM25Weight)
	accumulate(blended, vectorHits, s.cfg.SemanticWeight)

	results := make([]Result, 0, len(blended))
	for docID, score := range blended {
		if score < s.cfg.ScoreThreshold {
			continue
		}
		results = append(results, s.toResult(docID, score, min(score, 1.0)))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentID < results[j].DocumentID
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// accumulate max-normalizes hits and adds their weighted scores to blended.
func accumulate(blended map[int]float64, hits []scored, weight float64) {
	if len(hits) == 0 {
		return
	}
	maxScore := hits[0].Score
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	if maxScore <= 0 {
		return
	}
	for _, h := range hits {
		blended[h.DocID] += (h.Score / maxScore) * weight
	}
}

func (s *Service) toResult(docID int, score, confidence float64) Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := Result{
		DocumentID: docID,
		Score:      score,
		Confidence: confidence,
		Metadata:   map[string]string{},
	}
	if docID >= 0 && docID < len(s.docs) {
		d := s.docs[docID]
		r.Text = d.Content
		r.Metadata["judul"] = d.Title
		r.Metadata["kategori"] = d.Category
		r.Metadata["source"] = d.Source
	}
	return r
}
