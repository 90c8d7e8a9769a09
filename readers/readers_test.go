package readers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gamma-omg/localrag/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Classify(t *testing.T) {
	var cases = []struct {
		path string
		kind Kind
	}{
		{path: "report.pdf", kind: KindText},
		{path: "notes.TXT", kind: KindText},
		{path: "slides.pptx", kind: KindText},
		{path: "data.xlsx", kind: KindText},
		{path: "script.py", kind: KindText},
		{path: "Main.java", kind: KindText},
		{path: "photo.jpg", kind: KindImage},
		{path: "photo.JPEG", kind: KindImage},
		{path: "icon.png", kind: KindImage},
		{path: "setup.exe", kind: KindIgnored},
		{path: "debug.log", kind: KindIgnored},
		{path: "settings.ini", kind: KindIgnored},
		{path: "archive.zip", kind: KindIgnored},
		{path: "noext", kind: KindIgnored},
	}

	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			assert.Equal(t, c.kind, Classify(c.path))
		})
	}
}

func Test_Fingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	fp := Fingerprint(path)
	assert.Equal(t, int64(5), fp.Size)
	assert.NotZero(t, fp.Mtime)
}

func Test_Fingerprint_StatFailure(t *testing.T) {
	fp := Fingerprint(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Equal(t, docstore.Fingerprint{}, fp)
}

func Test_PlainFileReader(t *testing.T) {
	r := PlainFileReader{}
	assert.True(t, r.CanRead("some/file.txt"))
	assert.True(t, r.CanRead("some/file.py"))
	assert.True(t, r.CanRead("some/File.java"))
	assert.False(t, r.CanRead("some/file.pdf"))

	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	txt, err := r.ReadText(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", txt)
}

func Test_SheetFileReader_CSV(t *testing.T) {
	r := SheetFileReader{}
	assert.True(t, r.CanRead("some/data.csv"))
	assert.True(t, r.CanRead("some/data.xlsx"))
	assert.False(t, r.CanRead("some/data.txt"))

	path := filepath.Join(t.TempDir(), "d.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\nd,e\n"), 0o644))

	txt, err := r.ReadText(path)
	require.NoError(t, err)
	assert.Equal(t, "a b c\nd e", txt)
}

func Test_UniversalFileReader_CanRead(t *testing.T) {
	r := UniversalFileReader{}
	assert.True(t, r.CanRead("some/file.pdf"))
	assert.True(t, r.CanRead("some/file.docx"))
	assert.True(t, r.CanRead("some/file.pptx"))
	assert.False(t, r.CanRead("some/file.csv"))
}

func Test_Extractor_Caps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", maxExtractChars+100)), 0o644))

	text := NewExtractor().Extract(path)
	assert.Len(t, text, maxExtractChars)
}

func Test_Extractor_CapsOnRuneBoundary(t *testing.T) {
	// two-byte runes: a byte-indexed cap would halve the count or split a rune
	path := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("é", maxExtractChars+100)), 0o644))

	text := NewExtractor().Extract(path)
	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, maxExtractChars, utf8.RuneCountInString(text))
}

func Test_Extractor_UnreadableYieldsEmpty(t *testing.T) {
	text := NewExtractor().Extract(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Equal(t, "", text)
}

func Test_Extractor_UnknownTypeYieldsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	assert.Equal(t, "", NewExtractor().Extract(path))
}
