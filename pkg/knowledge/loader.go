// Package knowledge loads the plain-text banking corpus and prepares it for
// indexing: directory loading, heading extraction, and chunking.
package knowledge

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"bankcrew/pkg/errors"
)

// Document is one knowledge file with its source metadata.
type Document struct {
	Source   string // base file name
	Path     string
	Text     string
	Modified time.Time
}

// LoadDir reads every *.txt file in dir, sorted by name for deterministic
// indexing.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(errors.CodeNotFound, "reading knowledge directory", err).
			WithContext("dir", dir)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.New(errors.CodeInternal, "reading knowledge file", err).
				WithContext("path", path)
		}
		info, err := entry.Info()
		if err != nil {
			return nil, errors.New(errors.CodeInternal, "stat knowledge file", err).
				WithContext("path", path)
		}
		docs = append(docs, Document{
			Source:   entry.Name(),
			Path:     path,
			Text:     string(data),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })
	return docs, nil
}

// Headings returns the heading titles of a document, in order. A heading is
// a line starting with one or more '#' characters.
func Headings(text string) []string {
	var titles []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		title := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		if title != "" {
			titles = append(titles, title)
		}
	}
	return titles
}

// Validate checks the structural property of the corpus: every document is
// non-empty and carries at least one heading, so the retrieval tool always
// has section context to return.
func Validate(docs []Document) error {
	if len(docs) == 0 {
		return errors.New(errors.CodeNotFound, "no knowledge documents found", nil)
	}
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			return errors.New(errors.CodeInvalidInput, "knowledge document is empty", nil).
				WithContext("source", doc.Source)
		}
		if len(Headings(doc.Text)) == 0 {
			return errors.New(errors.CodeInvalidInput, "knowledge document has no headings", nil).
				WithContext("source", doc.Source)
		}
	}
	return nil
}
