package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	apperrors "github.com/qlerdi098-png/chatbot-filkom/internal/errors"
)

const (
	// DefaultIntentModel is used when no model is configured.
	// gemini-2.5-flash-lite is fast and cheap enough for per-message classification.
	DefaultIntentModel = "gemini-2.5-flash-lite"

	classifierFunctionName = "classify_intent"
)

const classifierSystemPrompt = `Kamu adalah pengklasifikasi intent untuk chatbot akademik FILKOM.
Klasifikasikan pesan pengguna (bahasa Indonesia) ke tepat satu intent dan
berikan confidence antara 0 dan 1. Selalu panggil fungsi classify_intent.
Gunakan OUT_OF_SCOPE untuk pertanyaan di luar topik akademik dan
CLARIFICATION bila pesan terlalu ambigu untuk diklasifikasikan.`

// Classifier predicts the intent of a user message using Gemini
// function calling with a fixed label set.
type Classifier struct {
	client *genai.Client
	model  string
	tools  []*genai.Tool
}

// NewClassifier creates a Gemini-based intent classifier.
// Returns nil if apiKey is empty (NLU disabled).
func NewClassifier(ctx context.Context, apiKey, model string) (*Classifier, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: NLU disabled when no API key
	}

	if model == "" {
		model = DefaultIntentModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Classifier{
		client: client,
		model:  model,
		tools: []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        classifierFunctionName,
				Description: "Laporkan intent pesan pengguna beserta confidence.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"intent": {
							Type:        genai.TypeString,
							Enum:        IntentLabels,
							Description: "Label intent yang paling sesuai.",
						},
						"confidence": {
							Type:        genai.TypeNumber,
							Description: "Keyakinan klasifikasi antara 0 dan 1.",
						},
					},
					Required: []string{"intent", "confidence"},
				},
			}},
		}},
	}, nil
}

// Predict classifies text into one of the known intents.
func (c *Classifier) Predict(ctx context.Context, text string) (IntentResult, error) {
	if c == nil {
		return IntentResult{}, apperrors.ErrModelNotLoaded
	}

	config := &genai.GenerateContentConfig{
		Tools:             c.tools,
		SystemInstruction: genai.NewContentFromText(classifierSystemPrompt, genai.RoleUser),
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAny, // Force function calling
			},
		},
		Temperature:     genai.Ptr[float32](0.1), // Low temperature for consistent classification
		MaxOutputTokens: 128,
	}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(text), config)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "intent classification API call failed",
			"model", c.model,
			"input_length", len(text),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return IntentResult{}, fmt.Errorf("generate content failed: %w", err)
	}

	parsed, parseErr := parseClassifierResult(result)
	if parseErr == nil {
		slog.DebugContext(ctx, "intent classified",
			"model", c.model,
			"intent", parsed.Intent,
			"confidence", parsed.Confidence,
			"duration_ms", duration.Milliseconds())
	}
	return parsed, parseErr
}

func parseClassifierResult(result *genai.GenerateContentResponse) (IntentResult, error) {
	if result == nil || len(result.Candidates) == 0 {
		return IntentResult{}, errors.New("empty response from model")
	}

	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return IntentResult{}, errors.New("no content in response")
	}

	for _, part := range candidate.Content.Parts {
		if part.FunctionCall == nil {
			continue
		}
		if part.FunctionCall.Name != classifierFunctionName {
			return IntentResult{}, fmt.Errorf("unknown function: %s", part.FunctionCall.Name)
		}

		intent, ok := part.FunctionCall.Args["intent"].(string)
		if !ok {
			return IntentResult{}, errors.New("intent argument missing or not a string")
		}
		if !isKnownIntent(intent) {
			return IntentResult{}, fmt.Errorf("model returned unknown intent %q", intent)
		}

		confidence, ok := part.FunctionCall.Args["confidence"].(float64)
		if !ok {
			return IntentResult{}, errors.New("confidence argument missing or not a number")
		}
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}

		return IntentResult{Intent: intent, Confidence: confidence}, nil
	}

	// In ANY mode, model should always return a function call
	return IntentResult{}, errors.New("no function call in response (expected with ANY mode)")
}

func isKnownIntent(intent string) bool {
	for _, label := range IntentLabels {
		if label == intent {
			return true
		}
	}
	return false
}

// IsEnabled returns true if the classifier is configured.
func (c *Classifier) IsEnabled() bool {
	return c != nil && c.client != nil
}
