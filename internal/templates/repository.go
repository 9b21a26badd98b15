// Package templates renders intent replies from a template file, filling
// {PLACEHOLDER} tokens from extracted entities and knowledge base lookups.
package templates

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/qlerdi098-png/chatbot-filkom/internal/logger"
)

// Repository holds the intent → template mapping loaded from JSON.
// Entries may be plain strings or objects with a "template" field.
type Repository struct {
	templates map[string]string
	log       *logger.Logger
}

// NewRepository loads the template file.
func NewRepository(path string, log *logger.Logger) (*Repository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse template file: %w", err)
	}

	templates := make(map[string]string, len(entries))
	for intent, entry := range entries {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			templates[intent] = s
			continue
		}
		var obj struct {
			Template string `json:"template"`
		}
		if err := json.Unmarshal(entry, &obj); err == nil && obj.Template != "" {
			templates[intent] = obj.Template
			continue
		}
		log.WithField("intent", intent).Warn("Skipping malformed template entry")
	}

	log.WithModule("templates").WithField("count", len(templates)).Info("Templates loaded")

	return &Repository{
		templates: templates,
		log:       log.WithModule("templates"),
	}, nil
}

// Get returns the template for an intent.
func (r *Repository) Get(intent string) (string, bool) {
	t, ok := r.templates[intent]
	return t, ok
}

// Count returns the number of loaded templates.
func (r *Repository) Count() int {
	return len(r.templates)
}
