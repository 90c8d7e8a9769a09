package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_LooksLikeGibberish(t *testing.T) {
	t.Run("normal_prose_passes", func(t *testing.T) {
		text := "The quarterly report covers revenue growth and the new hiring plan for the Berlin office."
		assert.False(t, LooksLikeGibberish(text))
	})

	t.Run("too_short", func(t *testing.T) {
		assert.True(t, LooksLikeGibberish("ok"))
	})

	t.Run("mostly_symbols", func(t *testing.T) {
		text := strings.Repeat("#$%^&*{}|<>~", 5)
		assert.True(t, LooksLikeGibberish(text))
	})

	t.Run("single_character_dominates", func(t *testing.T) {
		assert.True(t, LooksLikeGibberish(strings.Repeat("a", 40)))
	})
}
