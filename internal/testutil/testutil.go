// Package testutil locates real font files for integration tests, so
// those tests can exercise actual sfnt/CFF/glyf data rather than
// synthetic tables built by hand.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"

	td "github.com/go-text/typesetting-utils/opentype"
)

// FindTestFont returns the absolute path to a font file named name
// (e.g. "Roboto-Regular.ttf"), searching the go-text/typesetting-utils
// test corpus first and then the TEXTFORGE_TEST_FONTS environment
// variable (a colon-separated list of directories). It returns "" if
// the font can't be found, so callers can t.Skip rather than fail.
func FindTestFont(name string) string {
	if p := findInEmbeddedCorpus(name); p != "" {
		return p
	}
	for _, dir := range extraDirs() {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func extraDirs() []string {
	v := os.Getenv("TEXTFORGE_TEST_FONTS")
	if v == "" {
		return nil
	}
	return filepath.SplitList(v)
}

// findInEmbeddedCorpus extracts a matching file from the
// typesetting-utils module's embedded test-data tree into the OS temp
// directory, returning its path, or "" if no file with that base name
// is present.
func findInEmbeddedCorpus(name string) string {
	var found string
	fs.WalkDir(td.Files, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || found != "" || d.IsDir() {
			return nil
		}
		if filepath.Base(path) == name {
			found = path
		}
		return nil
	})
	if found == "" {
		return ""
	}
	data, err := fs.ReadFile(td.Files, found)
	if err != nil {
		return ""
	}
	out := filepath.Join(os.TempDir(), "textforge-testfont-"+filepath.Base(found))
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return ""
	}
	return out
}
