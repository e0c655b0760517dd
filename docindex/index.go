// Package docindex keeps an in-memory full-text index over documentation
// artifacts.
package docindex

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/shihwesley/chronicler/techdoc"
)

// Index provides full-text search over doc bodies using a Bleve in-memory
// index. Bodies are kept alongside for line-level result extraction.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	docs  map[string]techdoc.Doc // key: doc path
}

// New creates an empty index.
func New() (*Index, error) {
	bleveIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &Index{
		index: bleveIndex,
		docs:  make(map[string]techdoc.Doc),
	}, nil
}

type bleveDocument struct {
	Body      string `json:"body"`
	Path      string `json:"path"`
	Component string `json:"component"`
	Layer     string `json:"layer"`
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	bodyFieldMapping := bleve.NewTextFieldMapping()
	bodyFieldMapping.Store = false // bodies live in Index.docs
	bodyFieldMapping.IncludeInAll = true
	docMapping.AddFieldMappingsAt("body", bodyFieldMapping)

	pathFieldMapping := bleve.NewTextFieldMapping()
	pathFieldMapping.Store = true
	pathFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathFieldMapping)

	componentFieldMapping := bleve.NewKeywordFieldMapping()
	componentFieldMapping.Store = true
	componentFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("component", componentFieldMapping)

	layerFieldMapping := bleve.NewKeywordFieldMapping()
	layerFieldMapping.Store = true
	layerFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("layer", layerFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func toBleve(doc techdoc.Doc) bleveDocument {
	return bleveDocument{
		Body:      doc.Body,
		Path:      doc.Path,
		Component: doc.ComponentID,
		Layer:     doc.Frontmatter.Layer,
	}
}

// Add indexes doc, replacing any doc with the same path.
func (ix *Index) Add(doc techdoc.Doc) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.docs[doc.Path] = doc
	if err := ix.index.Index(doc.Path, toBleve(doc)); err != nil {
		return fmt.Errorf("indexing doc %s: %w", doc.Path, err)
	}
	return nil
}

// Remove drops the doc at path.
func (ix *Index) Remove(path string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	delete(ix.docs, path)
	if err := ix.index.Delete(path); err != nil {
		return fmt.Errorf("removing doc %s from index: %w", path, err)
	}
	return nil
}

// Replace swaps the whole index contents for docs in one batch.
func (ix *Index) Replace(docs []techdoc.Doc) error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("creating bleve index: %w", err)
	}
	batch := fresh.NewBatch()
	byPath := make(map[string]techdoc.Doc, len(docs))
	for _, doc := range docs {
		if err := batch.Index(doc.Path, toBleve(doc)); err != nil {
			fresh.Close()
			return fmt.Errorf("indexing doc %s: %w", doc.Path, err)
		}
		byPath[doc.Path] = doc
	}
	if err := fresh.Batch(batch); err != nil {
		fresh.Close()
		return fmt.Errorf("applying index batch: %w", err)
	}

	ix.mu.Lock()
	old := ix.index
	ix.index = fresh
	ix.docs = byPath
	ix.mu.Unlock()

	if err := old.Close(); err != nil {
		return fmt.Errorf("closing old index: %w", err)
	}
	return nil
}

// Get returns the indexed doc at path.
func (ix *Index) Get(path string) (techdoc.Doc, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	doc, ok := ix.docs[strings.ReplaceAll(path, "\\", "/")]
	return doc, ok
}

// Paths returns the sorted paths of all indexed docs.
func (ix *Index) Paths() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	paths := make([]string, 0, len(ix.docs))
	for p := range ix.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Count returns the number of documents in the Bleve index.
func (ix *Index) Count() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	count, _ := ix.index.DocCount()
	return count
}

// Close closes the Bleve index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}
