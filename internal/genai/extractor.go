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

const extractorFunctionName = "report_entities"

const extractorSystemPrompt = `Kamu adalah pengekstrak entitas untuk chatbot akademik FILKOM.
Temukan entitas akademik dalam pesan pengguna (bahasa Indonesia) dan
laporkan lewat fungsi report_entities. Kembalikan teks apa adanya dari
pesan, tanpa koreksi ejaan. Lewati field yang tidak ada di pesan.`

// Extractor pulls named academic entities from a user message using
// Gemini function calling. Output values are raw message substrings;
// canonicalization happens downstream against the knowledge base.
type Extractor struct {
	client *genai.Client
	model  string
	tools  []*genai.Tool
}

// NewExtractor creates a Gemini-based entity extractor.
// Returns nil if apiKey is empty (NLU disabled).
func NewExtractor(ctx context.Context, apiKey, model string) (*Extractor, error) {
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

	properties := make(map[string]*genai.Schema, len(EntityLabels))
	for _, label := range EntityLabels {
		properties[label] = &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		}
	}

	return &Extractor{
		client: client,
		model:  model,
		tools: []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        extractorFunctionName,
				Description: "Laporkan entitas akademik yang ditemukan dalam pesan.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: properties,
				},
			}},
		}},
	}, nil
}

// Extract returns the entities found in text, keyed by entity label.
// Labels with no occurrences are absent from the map.
func (e *Extractor) Extract(ctx context.Context, text string) (Entities, error) {
	if e == nil {
		return nil, apperrors.ErrModelNotLoaded
	}

	config := &genai.GenerateContentConfig{
		Tools:             e.tools,
		SystemInstruction: genai.NewContentFromText(extractorSystemPrompt, genai.RoleUser),
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAny, // Force function calling
			},
		},
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 256,
	}

	start := time.Now()
	result, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(text), config)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "entity extraction API call failed",
			"model", e.model,
			"input_length", len(text),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	entities, parseErr := parseExtractorResult(result)
	if parseErr == nil {
		slog.DebugContext(ctx, "entities extracted",
			"model", e.model,
			"entity_count", len(entities),
			"duration_ms", duration.Milliseconds())
	}
	return entities, parseErr
}

func parseExtractorResult(result *genai.GenerateContentResponse) (Entities, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, errors.New("empty response from model")
	}

	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, errors.New("no content in response")
	}

	for _, part := range candidate.Content.Parts {
		if part.FunctionCall == nil {
			continue
		}
		if part.FunctionCall.Name != extractorFunctionName {
			return nil, fmt.Errorf("unknown function: %s", part.FunctionCall.Name)
		}

		entities := make(Entities)
		for label, raw := range part.FunctionCall.Args {
			values, ok := raw.([]any)
			if !ok {
				continue
			}
			for _, v := range values {
				if s, ok := v.(string); ok && s != "" {
					entities[label] = append(entities[label], s)
				}
			}
		}
		return entities, nil
	}

	return nil, errors.New("no function call in response (expected with ANY mode)")
}

// IsEnabled returns true if the extractor is configured.
func (e *Extractor) IsEnabled() bool {
	return e != nil && e.client != nil
}
