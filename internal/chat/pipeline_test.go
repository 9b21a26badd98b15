package chat

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlerdi098-png/chatbot-filkom/internal/config"
	apperrors "github.com/qlerdi098-png/chatbot-filkom/internal/errors"
	"github.com/qlerdi098-png/chatbot-filkom/internal/genai"
	"github.com/qlerdi098-png/chatbot-filkom/internal/logger"
	"github.com/qlerdi098-png/chatbot-filkom/internal/search"
)

type fakeClassifier struct {
	result genai.IntentResult
	err    error
	calls  int
}

func (f *fakeClassifier) Predict(_ context.Context, _ string) (genai.IntentResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeExtractor struct {
	entities genai.Entities
	err      error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (genai.Entities, error) {
	return f.entities, f.err
}

type fakeSearcher struct {
	loaded   bool
	resp     *search.Response
	err      error
	lastMode string
	lastTopK int
	calls    int
}

func (f *fakeSearcher) Search(_ context.Context, query, mode string, topK int) (*search.Response, error) {
	f.calls++
	f.lastMode = mode
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &search.Response{Success: true, Query: query, Mode: mode, Results: []search.Result{}}, nil
}

func (f *fakeSearcher) IsLoaded() bool { return f.loaded }

type fakeFiller struct {
	templates map[string]string
}

func (f *fakeFiller) Has(intent string) bool {
	_, ok := f.templates[intent]
	return ok
}

func (f *fakeFiller) Fill(intent string, _ map[string]string, _ []search.Result) string {
	if resp, ok := f.templates[intent]; ok {
		return resp
	}
	return "Maaf, saya belum memiliki template jawaban untuk intent ini."
}

type pipelineFixture struct {
	pipeline   *Pipeline
	classifier *fakeClassifier
	extractor  *fakeExtractor
	searcher   *fakeSearcher
}

func testChatConfig() *config.Config {
	return &config.Config{
		Chat: config.ChatConfig{
			TemplateConfidence: 0.85,
			SearchConfidence:   0.5,
			FuzzyThreshold:     75,
			HistoryLimit:       10,
			CacheSize:          16,
			NLUTimeout:         time.Second,
		},
		Search: config.SearchConfig{TopK: 3},
	}
}

func newTestPipeline(t *testing.T, intent string, confidence float64) *pipelineFixture {
	t.Helper()

	classifier := &fakeClassifier{result: genai.IntentResult{Intent: intent, Confidence: confidence}}
	extractor := &fakeExtractor{entities: genai.Entities{}}
	searcher := &fakeSearcher{
		loaded: true,
		resp: &search.Response{
			Success: true,
			Query:   "q",
			Mode:    search.ModeHybrid,
			Results: []search.Result{
				{
					DocumentID: 0,
					Text:       "Pengisian KRS dilakukan melalui SIAM setiap awal semester.",
					Metadata:   map[string]string{"source": "Panduan Akademik FILKOM"},
					Score:      0.9,
					Confidence: 0.9,
				},
			},
			TotalFound: 1,
		},
	}
	filler := &fakeFiller{templates: map[string]string{
		"GREETING":    "Halo! Ada yang bisa saya bantu?",
		"SKS_MATKUL":  "Mata kuliah ML berbobot 3 SKS.",
		"PANDUAN_KRS": "Silakan ikuti panduan KRS.",
	}}

	log := logger.NewWithWriter("error", io.Discard)
	cfg := testChatConfig()
	p, err := NewPipeline(classifier, extractor, searcher, filler, NewNormalizer(newTestStore(t), cfg.Chat.FuzzyThreshold), cfg, log)
	require.NoError(t, err)

	return &pipelineFixture{pipeline: p, classifier: classifier, extractor: extractor, searcher: searcher}
}

func TestProcessMessage_EmptyMessage(t *testing.T) {
	f := newTestPipeline(t, genai.IntentGreeting, 0.99)

	_, err := f.pipeline.ProcessMessage(context.Background(), "   ", "u1", "s1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestProcessMessage_ConversationalIntent(t *testing.T) {
	f := newTestPipeline(t, genai.IntentGreeting, 0.2)

	result, err := f.pipeline.ProcessMessage(context.Background(), "halo", "u1", "s1")
	require.NoError(t, err)

	// Conversational intents answer from the template even at low confidence.
	assert.Equal(t, "Halo! Ada yang bisa saya bantu?", result.Response)
	assert.Equal(t, genai.IntentGreeting, result.Intent)
	assert.Equal(t, genai.IntentGreeting, result.TemplateUsed)
	assert.Empty(t, result.FallbackReason)
	assert.False(t, result.Cached)
	assert.Equal(t, 0, f.searcher.calls)
}

func TestProcessMessage_HighConfidenceTemplate(t *testing.T) {
	f := newTestPipeline(t, genai.IntentSKSMatkul, 0.92)

	result, err := f.pipeline.ProcessMessage(context.Background(), "berapa sks ML?", "u1", "s1")
	require.NoError(t, err)

	assert.Equal(t, "Mata kuliah ML berbobot 3 SKS.", result.Response)
	assert.Equal(t, genai.IntentSKSMatkul, result.TemplateUsed)
	assert.Equal(t, 0, f.searcher.calls)
}

func TestProcessMessage_HighConfidenceWithoutTemplateApologizes(t *testing.T) {
	f := newTestPipeline(t, genai.IntentPrasyaratMatkul, 0.95)

	result, err := f.pipeline.ProcessMessage(context.Background(), "apa prasyarat ML?", "u1", "s1")
	require.NoError(t, err)

	// High confidence always answers from the template engine, which
	// apologizes for unregistered intents instead of rerouting to search.
	assert.Equal(t, 0, f.searcher.calls)
	assert.Equal(t, "Maaf, saya belum memiliki template jawaban untuk intent ini.", result.Response)
	assert.Empty(t, result.FallbackReason)
	assert.Empty(t, result.TemplateUsed)
}

func TestProcessMessage_DocumentIntentRoutesToSearch(t *testing.T) {
	f := newTestPipeline(t, genai.IntentPanduanKRS, 0.99)

	result, err := f.pipeline.ProcessMessage(context.Background(), "bagaimana cara mengisi krs?", "u1", "s1")
	require.NoError(t, err)

	// PANDUAN_KRS skips its template and answers from the document corpus.
	assert.Equal(t, 1, f.searcher.calls)
	assert.Equal(t, search.ModeHybrid, f.searcher.lastMode)
	assert.Equal(t, 3, f.searcher.lastTopK)
	assert.Equal(t, "Intent panjang (PANDUAN_KRS), langsung semantic search", result.FallbackReason)
	assert.Equal(t, "Berdasarkan informasi yang saya temukan: Pengisian KRS dilakukan melalui SIAM setiap awal semester.", result.Response)
	require.Len(t, result.SearchResults, 1)
	assert.Equal(t, "Panduan Akademik FILKOM", result.SearchResults[0].Metadata["source"])
}

func TestProcessMessage_SearchAppendsDetectedEntities(t *testing.T) {
	f := newTestPipeline(t, genai.IntentProsedurCuti, 0.9)
	f.extractor.entities = genai.Entities{
		"SEMESTER": {"3"},
		"PRODI":    {"teknik informatika"},
	}

	result, err := f.pipeline.ProcessMessage(context.Background(), "prosedur cuti kuliah", "u1", "s1")
	require.NoError(t, err)

	assert.Contains(t, result.Response, "\n\n(Entitas terdeteksi: PRODI: teknik informatika, SEMESTER: 3)")
}

func TestProcessMessage_MidConfidenceSearch(t *testing.T) {
	f := newTestPipeline(t, genai.IntentInfoMatakuliah, 0.6)

	result, err := f.pipeline.ProcessMessage(context.Background(), "info tentang ML", "u1", "s1")
	require.NoError(t, err)

	assert.Equal(t, 1, f.searcher.calls)
	assert.Equal(t, "Low intent confidence (0.600), using semantic search", result.FallbackReason)
}

func TestProcessMessage_MidConfidenceSearchNotLoaded(t *testing.T) {
	f := newTestPipeline(t, genai.IntentInfoMatakuliah, 0.6)
	f.searcher.loaded = false

	result, err := f.pipeline.ProcessMessage(context.Background(), "info tentang ML", "u1", "s1")
	require.NoError(t, err)

	assert.Equal(t, 0, f.searcher.calls)
	assert.Equal(t, "Very low intent confidence (0.600)", result.FallbackReason)
	assert.Equal(t, FallbackResponse("info tentang ML"), result.Response)
}

func TestProcessMessage_LowConfidenceFallback(t *testing.T) {
	f := newTestPipeline(t, genai.IntentOutOfScope, 0.3)

	result, err := f.pipeline.ProcessMessage(context.Background(), "cuaca hari ini", "u1", "s1")
	require.NoError(t, err)

	assert.Equal(t, "Very low intent confidence (0.300)", result.FallbackReason)
	assert.Equal(t, FallbackResponse("cuaca hari ini"), result.Response)
	assert.Contains(t, fallbackResponses, result.Response)
}

func TestProcessMessage_EmptySearchResultsFallsBack(t *testing.T) {
	f := newTestPipeline(t, genai.IntentPanduanKRS, 0.99)
	f.searcher.resp = &search.Response{Success: true, Mode: search.ModeHybrid, Results: []search.Result{}}

	result, err := f.pipeline.ProcessMessage(context.Background(), "bagaimana cara mengisi krs?", "u1", "s1")
	require.NoError(t, err)

	assert.Equal(t, FallbackResponse("bagaimana cara mengisi krs?"), result.Response)
	assert.Empty(t, result.SearchResults)
}

func TestProcessMessage_SearchErrorFallsBack(t *testing.T) {
	f := newTestPipeline(t, genai.IntentPanduanKRS, 0.99)
	f.searcher.err = errors.New("index offline")

	result, err := f.pipeline.ProcessMessage(context.Background(), "bagaimana cara mengisi krs?", "u1", "s1")
	require.NoError(t, err)

	assert.Equal(t, FallbackResponse("bagaimana cara mengisi krs?"), result.Response)
	assert.Equal(t, genai.IntentPanduanKRS, result.Intent)
}

func TestProcessMessage_ClassifierErrorYieldsErrorResult(t *testing.T) {
	f := newTestPipeline(t, "", 0)
	f.classifier.err = errors.New("model timeout")

	result, err := f.pipeline.ProcessMessage(context.Background(), "halo", "u1", "s1")
	require.NoError(t, err)

	assert.Equal(t, genai.IntentError, result.Intent)
	assert.Equal(t, errorResponse, result.Response)
	assert.Contains(t, result.FallbackReason, "model timeout")
	assert.Contains(t, result.FallbackReason, "intent-classifier")
	assert.Zero(t, result.Confidence)

	// Error results are not cached.
	_, err = f.pipeline.ProcessMessage(context.Background(), "halo", "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.classifier.calls)
}

func TestProcessMessage_ExtractorErrorYieldsErrorResult(t *testing.T) {
	f := newTestPipeline(t, genai.IntentGreeting, 0.99)
	f.extractor.err = errors.New("extractor down")

	result, err := f.pipeline.ProcessMessage(context.Background(), "halo", "u1", "s1")
	require.NoError(t, err)

	assert.Equal(t, genai.IntentError, result.Intent)
	assert.Contains(t, result.FallbackReason, "extractor down")
	assert.Contains(t, result.FallbackReason, "entity-extractor")
}

func TestProcessMessage_CacheHit(t *testing.T) {
	f := newTestPipeline(t, genai.IntentGreeting, 0.99)

	first, err := f.pipeline.ProcessMessage(context.Background(), "Halo", "u1", "s1")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	// Keys normalize whitespace and case.
	second, err := f.pipeline.ProcessMessage(context.Background(), "  halo  ", "u1", "s1")
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Response, second.Response)
	assert.Equal(t, 1, f.classifier.calls)

	// A cache hit does not extend the conversation history.
	assert.Len(t, f.pipeline.History("u1", "s1"), 1)
}

func TestProcessMessage_ConfidenceRounded(t *testing.T) {
	f := newTestPipeline(t, genai.IntentGreeting, 0.85674)

	result, err := f.pipeline.ProcessMessage(context.Background(), "halo", "u1", "s1")
	require.NoError(t, err)

	assert.Equal(t, 0.857, result.Confidence)
}

func TestProcessMessage_DefaultSessionIDs(t *testing.T) {
	f := newTestPipeline(t, genai.IntentGreeting, 0.99)

	_, err := f.pipeline.ProcessMessage(context.Background(), "halo", "", "")
	require.NoError(t, err)

	assert.Len(t, f.pipeline.History(DefaultSessionID, DefaultSessionID), 1)
	assert.Len(t, f.pipeline.History("", ""), 1)
}

func TestPipeline_ClearContext(t *testing.T) {
	f := newTestPipeline(t, genai.IntentGreeting, 0.99)

	_, err := f.pipeline.ProcessMessage(context.Background(), "halo", "u1", "s1")
	require.NoError(t, err)
	require.Len(t, f.pipeline.History("u1", "s1"), 1)

	f.pipeline.ClearContext("u1", "s1")
	assert.Len(t, f.pipeline.History("u1", "s1"), 0)
}

func TestProcessMessage_ProcessingTimeRecorded(t *testing.T) {
	f := newTestPipeline(t, genai.IntentGreeting, 0.99)

	result, err := f.pipeline.ProcessMessage(context.Background(), "halo", "u1", "s1")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.ProcessingTime, 0.0)
}
