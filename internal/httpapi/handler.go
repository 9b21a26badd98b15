// Package httpapi exposes the chat pipeline over a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qlerdi098-png/chatbot-filkom/internal/chat"
	"github.com/qlerdi098-png/chatbot-filkom/internal/ctxutil"
	apperrors "github.com/qlerdi098-png/chatbot-filkom/internal/errors"
	"github.com/qlerdi098-png/chatbot-filkom/internal/genai"
	"github.com/qlerdi098-png/chatbot-filkom/internal/kb"
	"github.com/qlerdi098-png/chatbot-filkom/internal/logger"
	"github.com/qlerdi098-png/chatbot-filkom/internal/search"
	"github.com/qlerdi098-png/chatbot-filkom/internal/sentry"
)

// ChatService answers user messages and manages conversation state.
type ChatService interface {
	ProcessMessage(ctx context.Context, message, userID, sessionID string) (chat.Result, error)
	History(userID, sessionID string) []chat.HistoryEntry
	ClearContext(userID, sessionID string)
}

// SearchService retrieves knowledge base documents.
type SearchService interface {
	Search(ctx context.Context, query, mode string, topK int) (*search.Response, error)
	IsLoaded() bool
}

// IntentService predicts the intent of a text.
type IntentService interface {
	Predict(ctx context.Context, text string) (genai.IntentResult, error)
}

// EntityService extracts named entities from a text.
type EntityService interface {
	Extract(ctx context.Context, text string) (genai.Entities, error)
}

// MetricsRecorder records HTTP-level errors.
type MetricsRecorder interface {
	RecordHTTPError(errorType, module string)
}

// Handler holds the services behind the HTTP API.
type Handler struct {
	pipeline   ChatService
	searcher   SearchService
	classifier IntentService
	extractor  EntityService
	store      *kb.Store
	db         *kb.DB
	metrics    MetricsRecorder
	log        *logger.Logger
}

// NewHandler creates the HTTP API handler. The classifier and extractor
// may be nil when no Gemini API key is configured.
func NewHandler(pipeline ChatService, searcher SearchService, classifier IntentService, extractor EntityService, store *kb.Store, db *kb.DB, log *logger.Logger) *Handler {
	return &Handler{
		pipeline:   pipeline,
		searcher:   searcher,
		classifier: classifier,
		extractor:  extractor,
		store:      store,
		db:         db,
		log:        log.WithModule("httpapi"),
	}
}

// SetMetrics attaches a metrics recorder.
func (h *Handler) SetMetrics(m MetricsRecorder) {
	h.metrics = m
}

type chatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type searchRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
	TopK  int    `json:"top_k"`
}

type intentRequest struct {
	Text string `json:"text"`
}

// Chat handles POST /api/v1/chat.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "chat", "invalid JSON body")
		return
	}

	ctx := ctxutil.WithUserID(c.Request.Context(), req.UserID)
	ctx = ctxutil.WithSessionID(ctx, req.SessionID)

	result, err := h.pipeline.ProcessMessage(ctx, req.Message, req.UserID, req.SessionID)
	if err != nil {
		if apperrors.IsInvalidInput(err) {
			h.badRequest(c, "chat", err.Error())
			return
		}
		h.internalError(c, "chat", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ChatHistory handles GET /api/v1/chat/history.
func (h *Handler) ChatHistory(c *gin.Context) {
	userID := c.DefaultQuery("user_id", chat.DefaultSessionID)
	sessionID := c.DefaultQuery("session_id", chat.DefaultSessionID)

	history := h.pipeline.History(userID, sessionID)
	c.JSON(http.StatusOK, gin.H{
		"user_id":    userID,
		"session_id": sessionID,
		"history":    history,
		"count":      len(history),
	})
}

// ClearContext handles DELETE /api/v1/chat/context.
func (h *Handler) ClearContext(c *gin.Context) {
	userID := c.DefaultQuery("user_id", chat.DefaultSessionID)
	sessionID := c.DefaultQuery("session_id", chat.DefaultSessionID)

	h.pipeline.ClearContext(userID, sessionID)
	c.JSON(http.StatusOK, gin.H{
		"status":     "cleared",
		"user_id":    userID,
		"session_id": sessionID,
	})
}

// Search handles POST /api/v1/search.
func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "search", "invalid JSON body")
		return
	}
	if req.Query == "" {
		h.badRequest(c, "search", "query must not be empty")
		return
	}

	resp, err := h.searcher.Search(c.Request.Context(), req.Query, req.Mode, req.TopK)
	if err != nil {
		switch {
		case apperrors.IsSearchUnavailable(err):
			h.serviceUnavailable(c, "search", err)
		case apperrors.IsInvalidInput(err):
			h.badRequest(c, "search", err.Error())
		default:
			h.internalError(c, "search", err)
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Intent handles POST /api/v1/intent. Entity extraction is best effort;
// a failed extraction still returns the predicted intent.
func (h *Handler) Intent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "intent", "invalid JSON body")
		return
	}
	if req.Text == "" {
		h.badRequest(c, "intent", "text must not be empty")
		return
	}
	if h.classifier == nil {
		h.serviceUnavailable(c, "intent", apperrors.ErrModelNotLoaded)
		return
	}

	result, err := h.classifier.Predict(c.Request.Context(), req.Text)
	if err != nil {
		if errors.Is(err, apperrors.ErrModelNotLoaded) {
			h.serviceUnavailable(c, "intent", err)
			return
		}
		h.internalError(c, "intent", err)
		return
	}

	entities := genai.Entities{}
	if h.extractor != nil {
		if extracted, err := h.extractor.Extract(c.Request.Context(), req.Text); err == nil {
			entities = extracted
		} else {
			h.log.WithError(err).Warn("Entity extraction failed for intent endpoint")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"intent":     result.Intent,
		"confidence": result.Confidence,
		"entities":   entities,
	})
}

// Healthz handles the liveness probe. It never checks dependencies.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles the readiness probe: database reachable, knowledge base
// loaded, and search index state reported.
func (h *Handler) Ready(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}
	}
	if h.store == nil || !h.store.IsLoaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": apperrors.ErrKnowledgeBaseNotLoaded.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"knowledge_base": gin.H{
			"documents":   len(h.store.Documents()),
			"courses":     len(h.store.CourseKeys()),
			"instructors": len(h.store.InstructorKeys()),
		},
		"search_loaded": h.searcher != nil && h.searcher.IsLoaded(),
	})
}

func (h *Handler) badRequest(c *gin.Context, module, message string) {
	if h.metrics != nil {
		h.metrics.RecordHTTPError("bad_request", module)
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func (h *Handler) serviceUnavailable(c *gin.Context, module string, err error) {
	if h.metrics != nil {
		h.metrics.RecordHTTPError("unavailable", module)
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
}

func (h *Handler) internalError(c *gin.Context, module string, err error) {
	h.log.WithError(err).Error("Request failed")
	sentry.CaptureExceptionWithContext(c.Request.Context(), err)
	if h.metrics != nil {
		h.metrics.RecordHTTPError("internal", module)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
