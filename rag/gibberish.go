package rag

import "unicode"

// LooksLikeGibberish flags model output that is too short, dominated by a
// single character, or mostly made of characters outside normal prose.
func LooksLikeGibberish(text string) bool {
	runes := []rune(text)
	if len(runes) < 40 {
		return true
	}

	good := 0
	counts := make(map[rune]int)
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || isProsePunct(r) {
			good++
		}
		counts[r]++
	}

	if float64(good)/float64(len(runes)) < 0.6 {
		return true
	}

	for _, n := range counts {
		if float64(n)/float64(len(runes)) > 0.25 {
			return true
		}
	}

	return false
}

func isProsePunct(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!', '?', '(', ')', '-', '[', ']', '\'', '"':
		return true
	}
	return false
}
