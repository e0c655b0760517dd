package docindex

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxResults caps the number of docs returned by Search.
const DefaultMaxResults = 50

// Result holds the matches within one doc.
type Result struct {
	Path        string      `json:"path"`
	ComponentID string      `json:"component_id"`
	Matches     []LineMatch `json:"matches"`
}

// LineMatch is a matching line of a doc body. LineNumber is 1-based and
// counts from the first line after the frontmatter.
type LineMatch struct {
	LineNumber    int      `json:"line"`
	LineText      string   `json:"text"`
	ContextBefore []string `json:"context_before,omitempty"`
	ContextAfter  []string `json:"context_after,omitempty"`
}

// SearchOptions configures a search.
type SearchOptions struct {
	Query string
	// Component restricts results to docs declaring this component_id.
	Component string
	// PathGlob is a doublestar pattern over doc paths.
	PathGlob     string
	MaxResults   int
	ContextLines int
}

// Search runs a full-text query over doc bodies.
// Query format:
//   - Plain text: match query (any word)
//   - "quoted text": phrase query
//   - /regex/: regexp query
//
// It returns the matching docs and the total number of matching lines.
func (ix *Index) Search(options SearchOptions) ([]Result, int, error) {
	if options.MaxResults <= 0 {
		options.MaxResults = DefaultMaxResults
	}
	if options.ContextLines < 0 {
		options.ContextLines = 0
	}
	if strings.TrimSpace(options.Query) == "" {
		return nil, 0, fmt.Errorf("empty query")
	}
	matchLine, err := lineMatcher(options.Query)
	if err != nil {
		return nil, 0, err
	}
	pathGlob := strings.ReplaceAll(options.PathGlob, "\\", "/")
	if pathGlob != "" && !doublestar.ValidatePattern(pathGlob) {
		return nil, 0, fmt.Errorf("invalid path glob: %s", options.PathGlob)
	}

	var bleveQuery query.Query = buildQuery(options.Query)
	if options.Component != "" {
		componentQuery := bleve.NewTermQuery(options.Component)
		componentQuery.SetField("component")
		bleveQuery = bleve.NewConjunctionQuery(bleveQuery, componentQuery)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	searchRequest := bleve.NewSearchRequest(bleveQuery)
	searchRequest.Size = options.MaxResults * 5 // hits are filtered below
	searchRequest.Fields = []string{"path", "component"}

	searchResults, err := ix.index.Search(searchRequest)
	if err != nil {
		return nil, 0, fmt.Errorf("searching index: %w", err)
	}

	results := make([]Result, 0, len(searchResults.Hits))
	totalMatches := 0
	for _, hit := range searchResults.Hits {
		doc, ok := ix.docs[hit.ID]
		if !ok {
			continue
		}
		if pathGlob != "" {
			if matched, _ := doublestar.Match(pathGlob, doc.Path); !matched {
				continue
			}
		}
		lineMatches := findMatchingLines(doc.Body, matchLine, options.ContextLines)
		if len(lineMatches) == 0 {
			continue
		}
		totalMatches += len(lineMatches)
		results = append(results, Result{
			Path:        doc.Path,
			ComponentID: doc.ComponentID,
			Matches:     lineMatches,
		})
		if len(results) >= options.MaxResults {
			break
		}
	}
	return results, totalMatches, nil
}

// buildQuery parses the query string into a Bleve query.
func buildQuery(queryString string) query.Query {
	queryString = strings.TrimSpace(queryString)

	if pattern, ok := unwrap(queryString, "/"); ok {
		return bleve.NewRegexpQuery(pattern)
	}
	if phrase, ok := unwrap(queryString, "\""); ok {
		return bleve.NewMatchPhraseQuery(phrase)
	}
	return bleve.NewMatchQuery(queryString)
}

// lineMatcher returns the predicate used to pick matching lines from a hit.
// Phrases match as a case-insensitive substring, regexes case-insensitively,
// and plain queries when any word occurs in the line.
func lineMatcher(queryString string) (func(string) bool, error) {
	queryString = strings.TrimSpace(queryString)

	if pattern, ok := unwrap(queryString, "/"); ok {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
		}
		return re.MatchString, nil
	}
	if phrase, ok := unwrap(queryString, "\""); ok {
		phrase = strings.ToLower(phrase)
		return func(line string) bool {
			return strings.Contains(strings.ToLower(line), phrase)
		}, nil
	}
	words := strings.Fields(strings.ToLower(queryString))
	return func(line string) bool {
		lower := strings.ToLower(line)
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}, nil
}

func unwrap(s, delim string) (string, bool) {
	if len(s) > 2 && strings.HasPrefix(s, delim) && strings.HasSuffix(s, delim) {
		return s[1 : len(s)-1], true
	}
	return "", false
}

// findMatchingLines returns the lines of content accepted by match, with
// up to contextLines lines of context on each side.
func findMatchingLines(content string, match func(string) bool, contextLines int) []LineMatch {
	lines := strings.Split(content, "\n")

	var matches []LineMatch
	for lineIdx, line := range lines {
		if !match(line) {
			continue
		}
		lm := LineMatch{
			LineNumber: lineIdx + 1,
			LineText:   line,
		}
		if contextLines > 0 {
			start := max(lineIdx-contextLines, 0)
			lm.ContextBefore = append(lm.ContextBefore, lines[start:lineIdx]...)
			end := min(lineIdx+contextLines+1, len(lines))
			lm.ContextAfter = append(lm.ContextAfter, lines[lineIdx+1:end]...)
		}
		matches = append(matches, lm)
	}
	return matches
}
