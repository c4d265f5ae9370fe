package querydoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"
)

// LoadDir loads every document under the "query" field of the CUE
// package in dir, sorted by name.
func LoadDir(dir string) ([]*Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("query directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	queries := value.LookupPath(cue.ParsePath("query"))
	if !queries.Exists() {
		return nil, fmt.Errorf("no query field in %s", dir)
	}
	iter, err := queries.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var docs []*Document
	for iter.Next() {
		doc, err := FromCUE(iter.Value())
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	slices.SortFunc(docs, func(a, b *Document) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return docs, nil
}

// FromCUE decodes one document. A document without a name takes the
// value's label.
func FromCUE(v cue.Value) (*Document, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, &Error{Field: "query", Message: err.Error(), Pos: v.Pos()}
	}
	if doc.Name == "" {
		if sel := v.Path().Selectors(); len(sel) > 0 {
			doc.Name = sel[len(sel)-1].String()
		}
	}
	return &doc, nil
}

// DecodeYAML reads one YAML document. Unknown fields are rejected.
func DecodeYAML(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode query document: %w", err)
	}
	return &doc, nil
}

// LoadYAML reads a YAML document file. A document without a name takes
// the file name without extension.
func LoadYAML(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query document: %w", err)
	}
	doc, err := DecodeYAML(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		base := filepath.Base(path)
		doc.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	return doc, nil
}
