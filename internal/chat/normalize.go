package chat

import (
	"strings"

	"github.com/qlerdi098-png/chatbot-filkom/internal/fuzzy"
	"github.com/qlerdi098-png/chatbot-filkom/internal/genai"
	"github.com/qlerdi098-png/chatbot-filkom/internal/kb"
	"github.com/qlerdi098-png/chatbot-filkom/internal/stringutil"
)

// defaultAliasThreshold is the similarity floor for snapping extracted
// entity values to canonical knowledge base keys when no threshold is
// configured.
const defaultAliasThreshold = 75

// Normalizer reconciles raw extracted entities against the knowledge base:
// course and instructor mentions are snapped to their canonical or alias
// keys, everything else passes through.
type Normalizer struct {
	kb        *kb.Store
	threshold int
}

// NewNormalizer creates an entity normalizer over the knowledge base.
// threshold is the minimum fuzzy match score (0-100) for snapping values;
// non-positive values fall back to the default.
func NewNormalizer(store *kb.Store, threshold int) *Normalizer {
	if threshold <= 0 {
		threshold = defaultAliasThreshold
	}
	return &Normalizer{kb: store, threshold: threshold}
}

// Normalize flattens entity value lists to their first element and snaps
// course and instructor values to knowledge base keys. Best effort: a
// panic degrades to the plain flattened map.
func (n *Normalizer) Normalize(entities genai.Entities) (out map[string]string) {
	flat := flatten(entities)

	defer func() {
		if recover() != nil {
			out = flat
		}
	}()

	normalized := make(map[string]string, len(flat))
	for key, value := range flat {
		if value == "" {
			normalized[key] = ""
			continue
		}
		switch key {
		case "MATA_KULIAH":
			if m, ok := fuzzy.ExtractOneAbove(stringutil.Normalize(value), n.kb.CourseKeys(), n.threshold); ok {
				normalized[key] = m.Value
				continue
			}
			normalized[key] = value
		case "DOSEN":
			clean := kb.StripHonorifics(value)
			if m, ok := fuzzy.ExtractOneAbove(clean, n.kb.InstructorKeys(), n.threshold); ok {
				normalized[key] = m.Value
				continue
			}
			normalized[key] = value
		default:
			normalized[key] = value
		}
	}
	return normalized
}

func flatten(entities genai.Entities) map[string]string {
	flat := make(map[string]string, len(entities))
	for key, values := range entities {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.TrimSpace(values[0])
	}
	return flat
}
