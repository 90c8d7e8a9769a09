package main

import "strings"

type Chunkifier interface {
	Chunkify(text string) []string
}

// WordChunkifier splits text into overlapping windows of whole words. Text
// that fits a single window passes through verbatim.
type WordChunkifier struct {
	chunkWords   int
	chunkOverlap int
}

func (c *WordChunkifier) Chunkify(text string) []string {
	if text == "" {
		return []string{}
	}

	words := strings.Fields(text)
	if len(words) <= c.chunkWords {
		return []string{text}
	}

	step := c.chunkWords - c.chunkOverlap
	res := make([]string, 0, len(words)/step+1)

	for pos := 0; pos < len(words); pos += step {
		end := min(pos+c.chunkWords, len(words))
		res = append(res, strings.Join(words[pos:end], " "))
	}

	return res
}
