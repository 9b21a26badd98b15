package chat

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/qlerdi098-png/chatbot-filkom/internal/config"
	apperrors "github.com/qlerdi098-png/chatbot-filkom/internal/errors"
	"github.com/qlerdi098-png/chatbot-filkom/internal/genai"
	"github.com/qlerdi098-png/chatbot-filkom/internal/logger"
	"github.com/qlerdi098-png/chatbot-filkom/internal/search"
)

// DefaultSessionID is substituted for empty user and session identifiers.
const DefaultSessionID = "default"

const errorResponse = "Maaf, terjadi kesalahan dalam memproses pertanyaan Anda. Silakan coba lagi."

// Routing labels reported to metrics.
const (
	routeCache    = "cache"
	routeTemplate = "template"
	routeSearch   = "search"
	routeFallback = "fallback"
	routeError    = "error"
)

// Intents answered from a template regardless of classifier confidence.
var conversationalIntents = map[string]bool{
	genai.IntentGreeting:      true,
	genai.IntentHelp:          true,
	genai.IntentGoodbye:       true,
	genai.IntentClarification: true,
}

// Intents whose answers live in long-form documents, not templates.
var documentIntents = map[string]bool{
	genai.IntentPanduanKRS:   true,
	genai.IntentProsedurCuti: true,
}

// Result is the pipeline output for one message.
type Result struct {
	Response       string            `json:"response"`
	Intent         string            `json:"intent"`
	Entities       map[string]string `json:"entities"`
	Confidence     float64           `json:"confidence"`
	SearchResults  []search.Result   `json:"search_results,omitempty"`
	TemplateUsed   string            `json:"template_used,omitempty"`
	FallbackReason string            `json:"fallback_reason,omitempty"`
	ProcessingTime float64           `json:"processing_time"`
	Cached         bool              `json:"cached"`
}

// IntentClassifier predicts the intent of a message.
type IntentClassifier interface {
	Predict(ctx context.Context, text string) (genai.IntentResult, error)
}

// EntityExtractor extracts named entities from a message.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) (genai.Entities, error)
}

// Searcher retrieves knowledge base documents for a query.
type Searcher interface {
	Search(ctx context.Context, query, mode string, topK int) (*search.Response, error)
	IsLoaded() bool
}

// TemplateFiller renders template answers for an intent.
type TemplateFiller interface {
	Fill(intent string, entities map[string]string, results []search.Result) string
	Has(intent string) bool
}

// MetricsRecorder records pipeline outcomes.
type MetricsRecorder interface {
	RecordPipelineRequest(route, status string, duration float64)
	RecordCacheHit(module string)
	RecordCacheMiss(module string)
	RecordNLURequest(operation, status string, duration float64)
	RecordFallback(reason string)
	RecordSingleflightDedup(module string)
}

// Pipeline orchestrates intent classification, entity extraction,
// template filling and semantic search into a single chat response.
type Pipeline struct {
	classifier IntentClassifier
	extractor  EntityExtractor
	searcher   Searcher
	templates  TemplateFiller
	normalizer *Normalizer

	contexts *ContextStore
	cache    *ResultCache

	templateConfidence float64
	searchConfidence   float64
	nluTimeout         time.Duration
	searchTopK         int

	log     *logger.Logger
	metrics MetricsRecorder
	group   singleflight.Group
}

// NewPipeline assembles the chat pipeline from its collaborators.
func NewPipeline(classifier IntentClassifier, extractor EntityExtractor, searcher Searcher, filler TemplateFiller, normalizer *Normalizer, cfg *config.Config, log *logger.Logger) (*Pipeline, error) {
	cache, err := NewResultCache(cfg.Chat.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	topK := cfg.Search.TopK
	if topK <= 0 {
		topK = search.DefaultTopK
	}
	return &Pipeline{
		classifier:         classifier,
		extractor:          extractor,
		searcher:           searcher,
		templates:          filler,
		normalizer:         normalizer,
		contexts:           NewContextStore(cfg.Chat.HistoryLimit),
		cache:              cache,
		templateConfidence: cfg.Chat.TemplateConfidence,
		searchConfidence:   cfg.Chat.SearchConfidence,
		nluTimeout:         cfg.Chat.NLUTimeout,
		searchTopK:         topK,
		log:                log.WithModule("chat"),
	}, nil
}

// SetMetrics attaches a metrics recorder.
func (p *Pipeline) SetMetrics(m MetricsRecorder) {
	p.metrics = m
}

// ProcessMessage answers one user message. Internal failures are folded
// into an ERROR result rather than returned; the only error is invalid input.
func (p *Pipeline) ProcessMessage(ctx context.Context, message, userID, sessionID string) (Result, error) {
	start := time.Now()

	if strings.TrimSpace(message) == "" {
		return Result{}, apperrors.NewValidationError("message", "message must not be empty")
	}
	if userID == "" {
		userID = DefaultSessionID
	}
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	key := p.cache.Key(message, userID, sessionID)
	if cached, ok := p.cache.Get(key); ok {
		p.recordCacheHit()
		cached.Cached = true
		cached.ProcessingTime = time.Since(start).Seconds()
		p.recordRequest(routeCache, "success", start)
		return cached, nil
	}
	p.recordCacheMiss()

	v, err, shared := p.group.Do(key, func() (any, error) {
		result, route := p.compute(ctx, message, userID, sessionID, start)
		p.recordRequest(route, statusFor(result), start)
		if result.Intent != genai.IntentError {
			p.cache.Add(key, result)
		}
		return result, nil
	})
	if err != nil {
		// compute never returns an error; keep the contract anyway.
		return Result{}, err
	}
	result := v.(Result)
	if shared {
		if p.metrics != nil {
			p.metrics.RecordSingleflightDedup("chat")
		}
		result.ProcessingTime = time.Since(start).Seconds()
	}
	return result, nil
}

// compute runs the full routing pipeline for a cache miss.
func (p *Pipeline) compute(ctx context.Context, message, userID, sessionID string, start time.Time) (Result, string) {
	intent, confidence, err := p.classify(ctx, message)
	if err != nil {
		p.log.WithError(err).Error("Intent classification failed")
		return p.errorResult(err, start), routeError
	}

	entities, err := p.extract(ctx, message)
	if err != nil {
		p.log.WithError(err).Error("Entity extraction failed")
		return p.errorResult(err, start), routeError
	}
	normalized := p.normalizer.Normalize(entities)

	result := Result{
		Intent:     intent,
		Entities:   normalized,
		Confidence: round3(confidence),
	}

	var route string
	switch {
	case conversationalIntents[intent]:
		p.fillTemplate(&result, message, intent, normalized)
		route = routeTemplate

	case documentIntents[intent]:
		reason := fmt.Sprintf("Intent panjang (%s), langsung semantic search", intent)
		route = p.searchResponse(ctx, &result, message, normalized, reason)

	case confidence >= p.templateConfidence:
		p.fillTemplate(&result, message, intent, normalized)
		route = routeTemplate

	case confidence >= p.searchConfidence && p.searcher != nil && p.searcher.IsLoaded():
		reason := fmt.Sprintf("Low intent confidence (%.3f), using semantic search", confidence)
		route = p.searchResponse(ctx, &result, message, normalized, reason)

	default:
		result.Response = FallbackResponse(message)
		result.FallbackReason = fmt.Sprintf("Very low intent confidence (%.3f)", confidence)
		p.recordFallback("low_confidence")
		route = routeFallback
	}

	result.ProcessingTime = time.Since(start).Seconds()
	p.contexts.Update(userID, sessionID, message, result.Intent, result.Entities, result.Response)
	return result, route
}

func (p *Pipeline) classify(ctx context.Context, message string) (string, float64, error) {
	if p.classifier == nil {
		return "", 0, apperrors.ErrModelNotLoaded
	}
	ctx, cancel := p.withNLUTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := p.classifier.Predict(ctx, message)
	p.recordNLU("intent", err, start)
	if err != nil {
		return "", 0, apperrors.NewServiceError("intent-classifier", err)
	}
	return res.Intent, res.Confidence, nil
}

func (p *Pipeline) extract(ctx context.Context, message string) (genai.Entities, error) {
	if p.extractor == nil {
		return nil, apperrors.ErrModelNotLoaded
	}
	ctx, cancel := p.withNLUTimeout(ctx)
	defer cancel()

	start := time.Now()
	entities, err := p.extractor.Extract(ctx, message)
	p.recordNLU("entities", err, start)
	if err != nil {
		return nil, apperrors.NewServiceError("entity-extractor", err)
	}
	return entities, nil
}

func (p *Pipeline) withNLUTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.nluTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.nluTimeout)
}

func (p *Pipeline) fillTemplate(result *Result, message, intent string, entities map[string]string) {
	if p.templates == nil {
		result.Response = FallbackResponse(message)
		return
	}
	result.Response = p.templates.Fill(intent, entities, nil)
	if p.templates.Has(intent) {
		result.TemplateUsed = intent
	}
}

// searchResponse answers from the document corpus, falling back to a
// canned response when search is unavailable or finds nothing.
func (p *Pipeline) searchResponse(ctx context.Context, result *Result, message string, entities map[string]string, reason string) string {
	result.FallbackReason = reason

	if p.searcher == nil || !p.searcher.IsLoaded() {
		result.Response = FallbackResponse(message)
		p.recordFallback("search_unavailable")
		return routeFallback
	}

	resp, err := p.searcher.Search(ctx, message, search.ModeHybrid, p.searchTopK)
	if err != nil {
		p.log.WithError(err).Warn("Semantic search failed")
		result.Response = FallbackResponse(message)
		p.recordFallback("search_error")
		return routeFallback
	}
	if len(resp.Results) == 0 {
		result.Response = FallbackResponse(message)
		p.recordFallback("search_empty")
		return routeFallback
	}

	result.SearchResults = resp.Results
	var b strings.Builder
	b.WriteString("Berdasarkan informasi yang saya temukan: ")
	b.WriteString(resp.Results[0].Text)
	if len(entities) > 0 {
		b.WriteString("\n\n(Entitas terdeteksi: ")
		b.WriteString(formatEntities(entities))
		b.WriteString(")")
	}
	result.Response = b.String()
	return routeSearch
}

func (p *Pipeline) errorResult(err error, start time.Time) Result {
	p.recordFallback("error")
	return Result{
		Response:       errorResponse,
		Intent:         genai.IntentError,
		Entities:       map[string]string{},
		Confidence:     0,
		FallbackReason: err.Error(),
		ProcessingTime: time.Since(start).Seconds(),
	}
}

// History returns the conversation history for a session.
func (p *Pipeline) History(userID, sessionID string) []HistoryEntry {
	if userID == "" {
		userID = DefaultSessionID
	}
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	return p.contexts.History(userID, sessionID)
}

// ClearContext drops the conversation state for a session.
func (p *Pipeline) ClearContext(userID, sessionID string) {
	if userID == "" {
		userID = DefaultSessionID
	}
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	p.contexts.Clear(userID, sessionID)
}

// CacheLen reports the number of cached responses.
func (p *Pipeline) CacheLen() int {
	return p.cache.Len()
}

func (p *Pipeline) recordRequest(route, status string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordPipelineRequest(route, status, time.Since(start).Seconds())
	}
}

func (p *Pipeline) recordCacheHit() {
	if p.metrics != nil {
		p.metrics.RecordCacheHit("chat")
	}
}

func (p *Pipeline) recordCacheMiss() {
	if p.metrics != nil {
		p.metrics.RecordCacheMiss("chat")
	}
}

func (p *Pipeline) recordNLU(operation string, err error, start time.Time) {
	if p.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.RecordNLURequest(operation, status, time.Since(start).Seconds())
}

func (p *Pipeline) recordFallback(reason string) {
	if p.metrics != nil {
		p.metrics.RecordFallback(reason)
	}
}

func statusFor(result Result) string {
	if result.Intent == genai.IntentError {
		return "error"
	}
	return "success"
}

func formatEntities(entities map[string]string) string {
	keys := make([]string, 0, len(entities))
	for k := range entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+entities[k])
	}
	return strings.Join(parts, ", ")
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
