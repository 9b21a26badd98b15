package search

import (
	"context"
	"io"
	"math"
	"testing"

	chromem "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/qlerdi098-png/chatbot-filkom/internal/errors"
	"github.com/qlerdi098-png/chatbot-filkom/internal/kb"
	"github.com/qlerdi098-png/chatbot-filkom/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", io.Discard)
}

func testDocs() []kb.Document {
	return []kb.Document{
		{Title: "Panduan KRS", Content: "Panduan pengisian KRS dilakukan melalui portal akademik setiap awal semester.", Category: "PANDUAN", Source: "Panduan Akademik"},
		{Title: "Prosedur Cuti", Content: "Prosedur pengajuan cuti akademik dimulai dengan surat permohonan ke bagian akademik.", Category: "PROSEDUR", Source: "Panduan Akademik"},
		{Title: "Machine Learning", Content: "Mata kuliah machine learning membahas supervised learning dan neural network.", Category: "MATA_KULIAH", Source: "Katalog Mata Kuliah"},
	}
}

// letterEmbedding maps text to normalized letter frequencies. Deterministic
// and cheap, close enough to a real embedding for ranking tests.
func letterEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 26)
	for _, r := range text {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
		if r >= 'A' && r <= 'Z' {
			vec[r-'A']++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("Bagaimana cara mengisi KRS di semester ini?")
	assert.Equal(t, []string{"cara", "mengisi", "krs", "semester"}, tokens)

	assert.Empty(t, tokenize("apa yang di"))
	assert.Empty(t, tokenize("   "))
}

func TestLexicalIndexSearch(t *testing.T) {
	idx := NewLexicalIndex(testLogger())
	require.NoError(t, idx.Initialize(testDocs()))
	assert.True(t, idx.IsEnabled())
	assert.Equal(t, 3, idx.Count())

	hits, err := idx.Search("cara pengisian KRS", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, 0, hits[0].DocID)
	assert.Greater(t, hits[0].Score, 0.0)

	// Scores sorted descending
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestLexicalIndexEmptyQuery(t *testing.T) {
	idx := NewLexicalIndex(testLogger())
	require.NoError(t, idx.Initialize(testDocs()))

	hits, err := idx.Search("   ", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// All-stopword query tokenizes to nothing
	hits, err = idx.Search("apa yang di itu", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLexicalIndexUninitialized(t *testing.T) {
	idx := NewLexicalIndex(testLogger())
	assert.False(t, idx.IsEnabled())

	hits, err := idx.Search("krs", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLexicalIndexEmptyCorpus(t *testing.T) {
	idx := NewLexicalIndex(testLogger())
	require.NoError(t, idx.Initialize(nil))
	assert.True(t, idx.IsEnabled())
	assert.Equal(t, 0, idx.Count())

	hits, err := idx.Search("krs", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorIndexSearch(t *testing.T) {
	vec, err := NewVectorIndex("", chromem.EmbeddingFunc(letterEmbedding), testLogger())
	require.NoError(t, err)
	require.NotNil(t, vec)

	ctx := context.Background()
	require.NoError(t, vec.Initialize(ctx, testDocs()))
	assert.True(t, vec.IsEnabled())

	hits, err := vec.Search(ctx, "panduan pengisian KRS portal akademik", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0)
		assert.GreaterOrEqual(t, h.DocID, 0)
		assert.Less(t, h.DocID, 3)
	}
}

func TestVectorIndexDisabled(t *testing.T) {
	vec, err := NewVectorIndex("", nil, testLogger())
	require.NoError(t, err)
	assert.Nil(t, vec)
	assert.False(t, vec.IsEnabled())

	hits, err := vec.Search(context.Background(), "krs", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func newTestService(t *testing.T, withVector bool) *Service {
	t.Helper()

	lex := NewLexicalIndex(testLogger())
	var vec *VectorIndex
	if withVector {
		var err error
		vec, err = NewVectorIndex("", chromem.EmbeddingFunc(letterEmbedding), testLogger())
		require.NoError(t, err)
	}

	svc := NewService(lex, vec, DefaultConfig(), testLogger())
	require.NoError(t, svc.Initialize(context.Background(), testDocs()))
	return svc
}

func TestServiceNotLoaded(t *testing.T) {
	svc := NewService(NewLexicalIndex(testLogger()), nil, DefaultConfig(), testLogger())
	_, err := svc.Search(context.Background(), "krs", ModeHybrid, 3)
	assert.ErrorIs(t, err, apperrors.ErrSearchUnavailable)
	assert.False(t, svc.IsLoaded())
}

func TestServiceBM25Mode(t *testing.T) {
	svc := newTestService(t, false)
	resp, err := svc.Search(context.Background(), "prosedur pengajuan cuti", ModeBM25, 3)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, ModeBM25, resp.Mode)
	require.NotEmpty(t, resp.Results)
	top := resp.Results[0]
	assert.Equal(t, 1, top.DocumentID)
	assert.Contains(t, top.Text, "cuti akademik")
	assert.Equal(t, "Panduan Akademik", top.Metadata["source"])
	assert.LessOrEqual(t, top.Confidence, 1.0)
	assert.InDelta(t, min(top.Score/10, 1.0), top.Confidence, 1e-9)
}

func TestServiceHybridBM25Only(t *testing.T) {
	// Vector index absent: hybrid degrades to the weighted BM25 source.
	svc := newTestService(t, false)
	resp, err := svc.Search(context.Background(), "pengisian KRS", ModeHybrid, 3)
	require.NoError(t, err)

	assert.Equal(t, ModeHybrid, resp.Mode)
	require.NotEmpty(t, resp.Results)
	top := resp.Results[0]
	assert.Equal(t, 0, top.DocumentID)
	// Max-normalized top score times the BM25 weight
	assert.InDelta(t, DefaultBM25Weight, top.Score, 1e-9)
	// Everything below the 0.3 threshold is dropped
	for _, r := range resp.Results {
		assert.GreaterOrEqual(t, r.Score, DefaultScoreThreshold)
	}
}

func TestServiceHybridBlend(t *testing.T) {
	svc := newTestService(t, true)
	resp, err := svc.Search(context.Background(), "panduan pengisian KRS portal akademik", ModeHybrid, 3)
	require.NoError(t, err)

	require.NotEmpty(t, resp.Results)
	assert.Equal(t, 0, resp.Results[0].DocumentID)
	assert.Equal(t, len(resp.Results), resp.TotalFound)
	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
	}
	for _, r := range resp.Results {
		assert.LessOrEqual(t, r.Confidence, 1.0)
	}
}

func TestServiceUnknownModeFallsBackToHybrid(t *testing.T) {
	svc := newTestService(t, false)
	resp, err := svc.Search(context.Background(), "krs", "fulltext", 3)
	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, resp.Mode)
}

func TestServiceTopKDefault(t *testing.T) {
	svc := newTestService(t, false)
	resp, err := svc.Search(context.Background(), "akademik semester", ModeBM25, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Results), DefaultTopK)
}
