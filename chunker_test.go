package main

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Chunkify(t *testing.T) {
	var cases = []struct {
		input   string
		words   int
		overlap int
		output  []string
	}{
		{input: "a b c d e f g", words: 3, overlap: 0, output: []string{"a b c", "d e f", "g"}},
		{input: "a b c d e f g", words: 3, overlap: 1, output: []string{"a b c", "c d e", "e f g"}},
		{input: "a b c d e f g", words: 9, overlap: 5, output: []string{"a b c d e f g"}},
		{input: "  spaced\ttext \n kept verbatim ", words: 9, overlap: 5, output: []string{"  spaced\ttext \n kept verbatim "}},
		{input: "", words: 9, overlap: 5, output: []string{}},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			ch := WordChunkifier{chunkWords: c.words, chunkOverlap: c.overlap}
			assert.Equal(t, c.output, ch.Chunkify(c.input))
		})
	}
}

func Test_Chunkify_Deterministic(t *testing.T) {
	ch := WordChunkifier{chunkWords: 5, chunkOverlap: 2}
	text := strings.Repeat("lorem ipsum dolor ", 20)
	assert.Equal(t, ch.Chunkify(text), ch.Chunkify(text))
}

func Test_Chunkify_CoversEveryWord(t *testing.T) {
	words := make([]string, 2000)
	for i := range words {
		words[i] = strconv.Itoa(i)
	}

	ch := WordChunkifier{chunkWords: 512, chunkOverlap: 64}
	chunks := ch.Chunkify(strings.Join(words, " "))
	require.NotEmpty(t, chunks)

	covered := make(map[string]struct{})
	for _, chunk := range chunks {
		for _, w := range strings.Fields(chunk) {
			covered[w] = struct{}{}
		}
	}

	assert.Len(t, covered, len(words))
	// windows advance by words-overlap
	assert.Len(t, chunks, 5)
}
