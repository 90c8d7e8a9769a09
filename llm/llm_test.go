package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_shortSummary(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		s, ok := shortSummary("")
		assert.True(t, ok)
		assert.Equal(t, "", s)
	})

	t.Run("short_text_is_its_own_summary", func(t *testing.T) {
		text := strings.Repeat("word ", 59)
		s, ok := shortSummary(text)
		assert.True(t, ok)
		assert.Equal(t, text, s)
	})

	t.Run("short_text_capped_at_400_chars", func(t *testing.T) {
		text := strings.Repeat("verylongword ", 40) // 40 words, >400 chars
		s, ok := shortSummary(text)
		assert.True(t, ok)
		assert.Len(t, s, 400)
	})

	t.Run("long_text_needs_model", func(t *testing.T) {
		_, ok := shortSummary(strings.Repeat("word ", 60))
		assert.False(t, ok)
	})
}

func Test_parseCaptions(t *testing.T) {
	caps, err := parseCaptions("A dog on a beach\n\n  A red Bicycle  \n", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a dog on a beach", "a red bicycle"}, caps)
}

func Test_parseCaptions_CountMismatch(t *testing.T) {
	_, err := parseCaptions("only one caption", 2)
	assert.Error(t, err)
}

func Test_imageMIME(t *testing.T) {
	assert.Equal(t, "image/png", imageMIME("pic.PNG"))
	assert.Equal(t, "image/jpeg", imageMIME("pic.jpg"))
	assert.Equal(t, "image/jpeg", imageMIME("pic.jpeg"))
}

func Test_decodeEmbedding(t *testing.T) {
	openai := []byte(`{"data":[{"embedding":[0.1,0.2]}]}`)
	assert.Equal(t, []float32{0.1, 0.2}, decodeEmbedding(openai))

	ollama := []byte(`{"embedding":[0.3]}`)
	assert.Equal(t, []float32{0.3}, decodeEmbedding(ollama))

	assert.Nil(t, decodeEmbedding([]byte(`{}`)))
}
