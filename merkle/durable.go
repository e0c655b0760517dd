package merkle

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/shihwesley/chronicler/digest"
)

// FormatVersion is the version written to every durable tree.
const FormatVersion = 1

const schemaURL = "mem://chronicler/tree.schema.json"

//go:embed tree.schema.json
var treeSchema []byte

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(treeSchema))
		if err != nil {
			compileErr = fmt.Errorf("decode tree schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("register tree schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

type treeRecord struct {
	Version   int                    `json:"version"`
	Algorithm string                 `json:"algorithm"`
	RootHash  string                 `json:"root_hash"`
	RootPath  string                 `json:"root_path"`
	LastScan  string                 `json:"last_scan"`
	Nodes     map[string]*nodeRecord `json:"nodes"`
}

type nodeRecord struct {
	Path       string   `json:"path"`
	Hash       string   `json:"hash"`
	Children   []string `json:"children"`
	SourceHash *string  `json:"source_hash"`
	DocHash    *string  `json:"doc_hash"`
	DocPath    *string  `json:"doc_path"`
	Stale      *bool    `json:"stale"`
}

// Marshal encodes t in its durable JSON form. Map keys are sorted by
// encoding/json, so equal trees produce identical bytes.
func Marshal(t *Tree) ([]byte, error) {
	record := treeRecord{
		Version:   FormatVersion,
		Algorithm: digest.Algorithm,
		RootHash:  string(t.RootHash),
		RootPath:  t.RootPath,
		LastScan:  t.LastScan.UTC().Format(time.RFC3339Nano),
		Nodes:     make(map[string]*nodeRecord, len(t.Nodes)),
	}
	for p, node := range t.Nodes {
		stale := node.Stale
		rec := &nodeRecord{
			Path:       node.Path,
			Hash:       string(node.Hash),
			Children:   node.Children,
			SourceHash: optional(string(node.SourceHash)),
			DocHash:    optional(string(node.DocHash)),
			DocPath:    optional(node.DocPath),
			Stale:      &stale,
		}
		if rec.Children == nil {
			rec.Children = []string{}
		}
		record.Nodes[p] = rec
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tree: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a durable tree. The input is checked against the tree
// schema, every node goes through its constructor and the structural
// invariants are verified. All failures wrap ErrMalformedTree.
func Unmarshal(data []byte) (*Tree, error) {
	s, err := schema()
	if err != nil {
		return nil, err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTree, err)
	}
	if err := s.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTree, err)
	}

	var record treeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTree, err)
	}

	tree := &Tree{
		RootHash: digest.Digest(record.RootHash),
		RootPath: record.RootPath,
		Nodes:    make(map[string]*Node, len(record.Nodes)),
	}
	if record.LastScan != "" {
		lastScan, err := time.Parse(time.RFC3339Nano, record.LastScan)
		if err != nil {
			return nil, fmt.Errorf("%w: last_scan: %v", ErrMalformedTree, err)
		}
		tree.LastScan = lastScan.UTC()
	}
	for key, rec := range record.Nodes {
		node, err := rec.node()
		if err != nil {
			return nil, fmt.Errorf("%w: node %q: %v", ErrMalformedTree, key, err)
		}
		tree.Nodes[key] = node
	}
	if err := tree.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTree, err)
	}
	return tree, nil
}

func (r *nodeRecord) node() (*Node, error) {
	var node *Node
	var err error
	if r.SourceHash != nil {
		node, err = NewFileNode(r.Path, digest.Digest(*r.SourceHash), digest.Digest(deref(r.DocHash)), deref(r.DocPath))
		if err == nil && node.Hash != digest.Digest(r.Hash) {
			err = fmt.Errorf("file hash %q does not match source hash %q", r.Hash, node.SourceHash)
		}
		if err == nil && len(r.Children) > 0 {
			err = fmt.Errorf("file has children")
		}
	} else {
		node, err = NewDirNode(r.Path, digest.Digest(r.Hash), r.Children)
	}
	if err != nil {
		return nil, err
	}
	if r.Stale != nil {
		node.Stale = *r.Stale
	}
	return node, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
