// Package blast answers "what else is affected if this file changes" by
// walking a component edge graph outward from the component that owns the
// file.
package blast

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shihwesley/chronicler/merkle"
)

// ErrInvalidDepth is returned for a negative hop depth.
var ErrInvalidDepth = errors.New("invalid depth")

// Edge is one declared dependency of a component.
type Edge struct {
	Target string `json:"target" yaml:"target"`
	Type   string `json:"type,omitempty" yaml:"type"`
}

// EdgeGraph maps a component id to its outgoing edges.
type EdgeGraph map[string][]Edge

// Resolver maps a tree node to the component id that owns it. An empty
// result means the node has no declared component.
type Resolver interface {
	ComponentFor(root string, node *merkle.Node) string
}

// Impact is one affected component. Via is the edge type through which the
// component was first reached.
type Impact struct {
	Component string `json:"component"`
	Hops      int    `json:"hops"`
	Via       string `json:"via,omitempty"`
}

// Result is the outcome of a walk. Impacts are sorted by hop distance, then
// component id. The start component is never included.
type Result struct {
	Changed string   `json:"changed"`
	Start   string   `json:"start"`
	Depth   int      `json:"depth"`
	Impacts []Impact `json:"impacts"`
}

// Levels groups impacts by hop: Levels()[0] holds the 1-hop components.
// There is one entry per hop up to the farthest impact, possibly empty, so
// the size never depends on the requested Depth.
func (r *Result) Levels() [][]Impact {
	farthest := 0
	for _, impact := range r.Impacts {
		farthest = max(farthest, impact.Hops)
	}
	levels := make([][]Impact, farthest)
	for _, impact := range r.Impacts {
		if impact.Hops < 1 {
			continue
		}
		levels[impact.Hops-1] = append(levels[impact.Hops-1], impact)
	}
	return levels
}

// Components returns the affected component ids in result order.
func (r *Result) Components() []string {
	ids := make([]string, len(r.Impacts))
	for i, impact := range r.Impacts {
		ids[i] = impact.Component
	}
	return ids
}

// Walker computes blast radii. A nil Resolver uses the raw file path as the
// start component.
type Walker struct {
	Resolver Resolver
}

// Walk resolves changedPath in tree to its start component and runs a
// breadth-first search over the symmetric closure of graph, up to depth
// hops. An edge A -> B makes B reachable from A and A reachable from B.
func (w Walker) Walk(tree *merkle.Tree, changedPath string, graph EdgeGraph, depth int) (*Result, error) {
	if depth < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	node, err := tree.Node(changedPath)
	if err != nil {
		return nil, err
	}

	start := ""
	if w.Resolver != nil {
		start = w.Resolver.ComponentFor(tree.RootPath, node)
	}
	if start == "" {
		start = node.Path
	}

	result := &Result{Changed: node.Path, Start: start, Depth: depth, Impacts: []Impact{}}
	adjacency := buildAdjacency(graph)
	visited := map[string]struct{}{start: {}}
	frontier := []string{start}

	for hop := 1; hop <= depth && len(frontier) > 0; hop++ {
		var next []string
		for _, component := range frontier {
			for _, neighbor := range adjacency.neighbors(component) {
				if _, seen := visited[neighbor.component]; seen {
					continue
				}
				visited[neighbor.component] = struct{}{}
				next = append(next, neighbor.component)
				result.Impacts = append(result.Impacts, Impact{
					Component: neighbor.component,
					Hops:      hop,
					Via:       neighbor.edgeType,
				})
			}
		}
		sort.Strings(next)
		frontier = next
	}

	sort.SliceStable(result.Impacts, func(i, j int) bool {
		a, b := result.Impacts[i], result.Impacts[j]
		if a.Hops != b.Hops {
			return a.Hops < b.Hops
		}
		return a.Component < b.Component
	})
	return result, nil
}

type neighbor struct {
	component string
	edgeType  string
}

// adjacency is the symmetric closure of an EdgeGraph. For each pair only the
// first edge type seen in sorted order is kept.
type adjacency map[string]map[string]string

func buildAdjacency(graph EdgeGraph) adjacency {
	adj := make(adjacency)
	sources := make([]string, 0, len(graph))
	for source := range graph {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		for _, edge := range graph[source] {
			if edge.Target == "" || edge.Target == source {
				continue
			}
			adj.link(source, edge.Target, edge.Type)
			adj.link(edge.Target, source, edge.Type)
		}
	}
	return adj
}

func (adj adjacency) link(from, to, edgeType string) {
	targets, ok := adj[from]
	if !ok {
		targets = make(map[string]string)
		adj[from] = targets
	}
	if _, exists := targets[to]; !exists {
		targets[to] = edgeType
	}
}

func (adj adjacency) neighbors(component string) []neighbor {
	targets := adj[component]
	out := make([]neighbor, 0, len(targets))
	for target, edgeType := range targets {
		out = append(out, neighbor{component: target, edgeType: edgeType})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].component < out[j].component })
	return out
}
