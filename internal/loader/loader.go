// Package loader turns text files into a Document: an ordered sequence
// of page texts. It stands in for the external document-loading
// service; the rest of the pipeline only ever sees its output.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"docrag/internal/domain"
)

// Load reads the given paths (globs allowed, .txt and .md files only)
// into a single document. Each file contributes one page per
// form-feed-separated section, in path order. Failures wrap
// ErrDocumentLoad.
func Load(paths []string) (domain.Document, error) {
	var files []string
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return domain.Document{}, fmt.Errorf("%w: bad pattern %q: %v", domain.ErrDocumentLoad, p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if isText(m) {
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return domain.Document{}, fmt.Errorf("%w: no .txt or .md files matched", domain.ErrDocumentLoad)
	}
	doc := domain.Document{
		ID:   uuid.New().String(),
		Path: files[0],
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrDocumentLoad, err)
		}
		// form feed marks page boundaries inside one file
		doc.Pages = append(doc.Pages, strings.Split(string(data), "\f")...)
	}
	return doc, nil
}

func isText(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}
