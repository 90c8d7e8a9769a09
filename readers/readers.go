package readers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gamma-omg/localrag/docstore"
)

// Kind classifies a file by its extension.
type Kind int

const (
	KindIgnored Kind = iota
	KindText
	KindImage
)

// maxExtractChars bounds extracted text to keep downstream model costs sane.
const maxExtractChars = 30000

var textExts = map[string]struct{}{
	"pdf": {}, "txt": {}, "docx": {}, "pptx": {},
	"csv": {}, "xls": {}, "xlsx": {}, "py": {}, "java": {},
}

var imageExts = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {},
}

var junkExts = map[string]struct{}{
	"exe": {}, "sys": {}, "dll": {}, "log": {}, "tmp": {}, "ini": {},
}

// TypeOf returns the lowercase extension without the leading dot.
func TypeOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Classify decides how a file participates in indexing. The junk denylist
// wins over the allowlists; anything unknown is ignored.
func Classify(path string) Kind {
	ext := TypeOf(path)
	if _, ok := junkExts[ext]; ok {
		return KindIgnored
	}
	if _, ok := textExts[ext]; ok {
		return KindText
	}
	if _, ok := imageExts[ext]; ok {
		return KindImage
	}
	return KindIgnored
}

// Fingerprint captures the file's (size, mtime seconds) pair. Stat failures
// degrade to the zero fingerprint so an unreadable file always looks changed
// on the next comparison.
func Fingerprint(path string) docstore.Fingerprint {
	info, err := os.Stat(path)
	if err != nil {
		return docstore.Fingerprint{}
	}

	return docstore.Fingerprint{
		Size:  info.Size(),
		Mtime: info.ModTime().Unix(),
	}
}

// FileReader converts one family of file types to plain text.
type FileReader interface {
	CanRead(path string) bool
	ReadText(path string) (string, error)
}

// Extractor dispatches extraction to the first reader claiming a path.
type Extractor struct {
	readers []FileReader
}

// NewExtractor builds an extractor with the default reader set.
func NewExtractor() *Extractor {
	return &Extractor{readers: []FileReader{
		&PlainFileReader{},
		&SheetFileReader{},
		&UniversalFileReader{},
	}}
}

// Extract returns the file's plain text, capped at 30,000 characters. Any
// parse failure yields an empty string: callers skip such files instead of
// indexing garbage.
func (e *Extractor) Extract(path string) string {
	for _, r := range e.readers {
		if !r.CanRead(path) {
			continue
		}

		text, err := r.ReadText(path)
		if err != nil {
			return ""
		}
		return capRunes(text, maxExtractChars)
	}

	return ""
}

// capRunes truncates s to at most n runes, never splitting a multi-byte
// character.
func capRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
