package docindex

import (
	"testing"

	"github.com/shihwesley/chronicler/techdoc"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := New()
	if err != nil {
		t.Fatalf("failed to create doc index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func doc(path, component, body string) techdoc.Doc {
	return techdoc.Doc{Path: path, ComponentID: component, Body: body}
}

func Test_Index_AddAndSearch(t *testing.T) {
	ix := newTestIndex(t)

	err := ix.Add(doc(".chronicler/auth.tech.md", "auth-service", "# Auth\n\nIssues session tokens.\n"))
	if err != nil {
		t.Fatalf("failed to add doc: %v", err)
	}

	results, totalMatches, err := ix.Search(SearchOptions{Query: "tokens"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if totalMatches != 1 {
		t.Errorf("expected 1 matching line, got %d", totalMatches)
	}
	if results[0].ComponentID != "auth-service" {
		t.Errorf("expected component auth-service, got %s", results[0].ComponentID)
	}
	if results[0].Matches[0].LineNumber != 3 {
		t.Errorf("expected line 3, got %d", results[0].Matches[0].LineNumber)
	}
}

func Test_Index_PhraseSearch(t *testing.T) {
	ix := newTestIndex(t)
	ix.Add(doc("a.tech.md", "a", "uses exponential backoff between attempts"))
	ix.Add(doc("b.tech.md", "b", "backoff is exponential"))

	results, _, err := ix.Search(SearchOptions{Query: `"exponential backoff"`})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 1 || results[0].Path != "a.tech.md" {
		t.Fatalf("expected only a.tech.md, got %+v", results)
	}
}

func Test_Index_RegexSearch(t *testing.T) {
	ix := newTestIndex(t)
	ix.Add(doc("db.tech.md", "db-layer", "Uses postgres for storage.\nNothing else here."))

	results, totalMatches, err := ix.Search(SearchOptions{Query: "/postg.*/"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if totalMatches != 1 {
		t.Errorf("expected 1 matching line, got %d", totalMatches)
	}
}

func Test_Index_InvalidRegex(t *testing.T) {
	ix := newTestIndex(t)

	if _, _, err := ix.Search(SearchOptions{Query: "/[unclosed/"}); err == nil {
		t.Error("expected error for invalid regex")
	}
}

func Test_Index_EmptyQuery(t *testing.T) {
	ix := newTestIndex(t)

	if _, _, err := ix.Search(SearchOptions{Query: "   "}); err == nil {
		t.Error("expected error for empty query")
	}
}

func Test_Index_ComponentFilter(t *testing.T) {
	ix := newTestIndex(t)
	ix.Add(doc("auth.tech.md", "auth-service", "handles cache invalidation"))
	ix.Add(doc("cache.tech.md", "cache", "the cache itself"))

	results, _, err := ix.Search(SearchOptions{Query: "cache", Component: "auth-service"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 1 || results[0].Path != "auth.tech.md" {
		t.Fatalf("expected only auth.tech.md, got %+v", results)
	}
}

func Test_Index_PathGlob(t *testing.T) {
	ix := newTestIndex(t)
	ix.Add(doc("src/.chronicler/main.tech.md", "main", "hello"))
	ix.Add(doc(".chronicler/top.tech.md", "top", "hello"))

	results, _, err := ix.Search(SearchOptions{Query: "hello", PathGlob: "src/**"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 1 || results[0].Path != "src/.chronicler/main.tech.md" {
		t.Fatalf("expected only src doc, got %+v", results)
	}
}

func Test_Index_ContextLines(t *testing.T) {
	ix := newTestIndex(t)
	ix.Add(doc("x.tech.md", "x", "line1\nline2\nline3 target\nline4\nline5"))

	results, _, err := ix.Search(SearchOptions{Query: "target", ContextLines: 1})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	match := results[0].Matches[0]
	if match.LineNumber != 3 {
		t.Errorf("expected line 3, got %d", match.LineNumber)
	}
	if len(match.ContextBefore) != 1 || match.ContextBefore[0] != "line2" {
		t.Errorf("unexpected context before: %v", match.ContextBefore)
	}
	if len(match.ContextAfter) != 1 || match.ContextAfter[0] != "line4" {
		t.Errorf("unexpected context after: %v", match.ContextAfter)
	}
}

func Test_Index_MaxResults(t *testing.T) {
	ix := newTestIndex(t)
	for _, p := range []string{"a.tech.md", "b.tech.md", "c.tech.md"} {
		ix.Add(doc(p, p, "shared word"))
	}

	results, _, err := ix.Search(SearchOptions{Query: "shared", MaxResults: 2})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func Test_Index_Remove(t *testing.T) {
	ix := newTestIndex(t)
	ix.Add(doc("gone.tech.md", "gone", "ephemeral"))

	if err := ix.Remove("gone.tech.md"); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	results, _, _ := ix.Search(SearchOptions{Query: "ephemeral"})
	if len(results) != 0 {
		t.Errorf("expected no results after removal, got %d", len(results))
	}
	if _, ok := ix.Get("gone.tech.md"); ok {
		t.Error("expected removed doc to be gone")
	}
}

func Test_Index_Replace(t *testing.T) {
	ix := newTestIndex(t)
	ix.Add(doc("old.tech.md", "old", "stale content"))

	err := ix.Replace([]techdoc.Doc{
		doc("new.tech.md", "new", "fresh content"),
		doc("other.tech.md", "other", "more fresh content"),
	})
	if err != nil {
		t.Fatalf("replace error: %v", err)
	}

	if ix.Count() != 2 {
		t.Errorf("expected 2 docs, got %d", ix.Count())
	}
	paths := ix.Paths()
	if len(paths) != 2 || paths[0] != "new.tech.md" || paths[1] != "other.tech.md" {
		t.Errorf("unexpected paths: %v", paths)
	}
	results, _, _ := ix.Search(SearchOptions{Query: "stale"})
	if len(results) != 0 {
		t.Errorf("expected old doc to be gone, got %d results", len(results))
	}
}

func Test_Index_GetNormalizesSeparators(t *testing.T) {
	ix := newTestIndex(t)
	ix.Add(doc("src/.chronicler/a.tech.md", "a", "body"))

	if _, ok := ix.Get(`src\.chronicler\a.tech.md`); !ok {
		t.Error("expected backslash path to resolve")
	}
}
