package main

import (
	"path/filepath"
	"regexp"
	"strings"
)

var tagWordRE = regexp.MustCompile(`\b[a-z]{3,}\b`)

// Tagger derives a few representative keywords from text: lowercase
// alphabetic words of three letters or more, first-seen order, no duplicates.
type Tagger struct {
	max int
}

func (t *Tagger) Tags(text string) []string {
	uniq := make([]string, 0, t.max)
	seen := make(map[string]struct{})

	for _, w := range tagWordRE.FindAllString(strings.ToLower(text), -1) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		uniq = append(uniq, w)
		if len(uniq) >= t.max {
			break
		}
	}

	return uniq
}

// TagsWithFallback tags the content, falling back to the filename stem when
// the content yields nothing usable.
func (t *Tagger) TagsWithFallback(text, path string) []string {
	tags := t.Tags(text)
	if len(tags) == 0 {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		tags = t.Tags(stem)
	}
	return tags
}
