package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/druidq/internal/querydoc"
)

// loadDocuments loads query documents from a CUE package directory or a
// single YAML file.
func loadDocuments(path string) ([]*querydoc.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return querydoc.LoadDir(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err := querydoc.LoadYAML(path)
		if err != nil {
			return nil, err
		}
		return []*querydoc.Document{doc}, nil
	}
	return nil, fmt.Errorf("%s: expected a CUE directory or a .yaml file", path)
}

// selectDocuments returns the documents with the given names, in the
// order named, or all of them when names is empty.
func selectDocuments(docs []*querydoc.Document, names []string) ([]*querydoc.Document, error) {
	if len(names) == 0 {
		return docs, nil
	}
	byName := make(map[string]*querydoc.Document, len(docs))
	for _, d := range docs {
		byName[d.Name] = d
	}
	selected := make([]*querydoc.Document, 0, len(names))
	for _, name := range names {
		d, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("no query named %q", name)
		}
		selected = append(selected, d)
	}
	return selected, nil
}
