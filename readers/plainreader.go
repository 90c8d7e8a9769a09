package readers

import (
	"fmt"
	"os"
)

// PlainFileReader reads files that already are plain text, source code
// included.
type PlainFileReader struct{}

func (r *PlainFileReader) CanRead(path string) bool {
	switch TypeOf(path) {
	case "txt", "py", "java":
		return true
	}
	return false
}

func (r *PlainFileReader) ReadText(path string) (string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text file: %w", err)
	}

	return string(buf), nil
}
