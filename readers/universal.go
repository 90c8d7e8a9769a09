package readers

import (
	"fmt"

	"code.sajari.com/docconv/v2"
)

// UniversalFileReader handles the document formats docconv can convert.
type UniversalFileReader struct{}

func (r *UniversalFileReader) CanRead(path string) bool {
	switch TypeOf(path) {
	case "pdf", "docx", "pptx":
		return true
	}
	return false
}

func (r *UniversalFileReader) ReadText(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	return res.Body, nil
}
