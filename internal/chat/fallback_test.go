package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackResponse_Deterministic(t *testing.T) {
	first := FallbackResponse("pertanyaan aneh")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, FallbackResponse("pertanyaan aneh"))
	}
}

func TestFallbackResponse_KnownResponses(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		resp := FallbackResponse(fmt.Sprintf("pesan nomor %d", i))
		assert.Contains(t, fallbackResponses, resp)
		seen[resp] = true
	}
	// The digest rotation should reach more than one canned reply.
	assert.Greater(t, len(seen), 1)
}
