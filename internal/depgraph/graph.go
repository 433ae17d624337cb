// Package depgraph builds a typed node/edge dependency graph across a
// project's files (spec §4.B) and runs impact analysis over it.
package depgraph

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

// EdgeKind is the closed set of dependency-graph edge types.
type EdgeKind string

const (
	EdgeContains EdgeKind = "CONTAINS"
	EdgeCalls    EdgeKind = "CALLS"
	EdgeImports  EdgeKind = "IMPORTS"
	EdgeInherits EdgeKind = "INHERITS"
)

// Node is a file or an externally-synthesized symbol the graph references
// but never analyzed directly.
type Node struct {
	ID       string
	IsFile   bool
	External bool
}

// Edge is a directed, typed connection between two node IDs.
type Edge struct {
	From string
	Kind EdgeKind
	To   string
}

// ImpactResult is the output of Impact: the set of nodes transitively
// reachable from the changed files, plus a best-effort risk estimate.
type ImpactResult struct {
	AffectedNodes []string
	RiskScore     float64
}

// Graph is a directed multigraph over file and external-symbol nodes. The
// zero value is not usable; construct with NewGraph.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]Node
	out   map[string][]Edge
	log   *logging.Logger
}

// NewGraph constructs an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		out:   make(map[string][]Edge),
		log:   logging.Get(logging.CategoryDepGraph),
	}
}

// Build populates the graph from a map of file path to its CodeContext,
// per spec §4.B: a CONTAINS edge from each file to itself isn't added
// (files contain their own symbols by construction), but every import
// produces an IMPORTS edge, synthesizing an external node for unresolved
// targets.
func (g *Graph) Build(contexts map[string]domain.CodeContext) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for path := range contexts {
		g.nodes[path] = Node{ID: path, IsFile: true}
	}

	for path, ctx := range contexts {
		for _, imp := range ctx.Imports {
			target := imp
			if _, ok := contexts[target]; !ok {
				if _, exists := g.nodes[target]; !exists {
					g.nodes[target] = Node{ID: target, External: true}
				}
			}
			g.out[path] = append(g.out[path], Edge{From: path, Kind: EdgeImports, To: target})
		}
	}
	g.log.Debug("built graph: %d nodes, %d files", len(g.nodes), len(contexts))
}

// AddEdge inserts a single typed edge, synthesizing an external node for
// any endpoint the graph doesn't already know about.
func (g *Graph) AddEdge(from string, kind EdgeKind, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[from]; !ok {
		g.nodes[from] = Node{ID: from, External: true}
	}
	if _, ok := g.nodes[to]; !ok {
		g.nodes[to] = Node{ID: to, External: true}
	}
	g.out[from] = append(g.out[from], Edge{From: from, Kind: kind, To: to})
}

// NodeCount returns the number of nodes currently in the graph.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// MaxFilesForGraph bounds how large a project's file set may be before
// Impact degrades to a best-effort, low-risk default rather than walking
// the full graph (spec §4.C's "skip graph risk and log" hard limit).
const MaxFilesForGraph = 5000

// Impact computes the set of nodes transitively reachable from
// changedFiles and a bounded risk estimate. If the graph holds more nodes
// than MaxFilesForGraph, it returns a best-effort low-risk result without
// walking the graph. Traversal from independent changed files is fanned
// out with a bounded errgroup since each BFS is read-only and
// embarrassingly parallel.
func (g *Graph) Impact(ctx context.Context, changedFiles []string) (ImpactResult, error) {
	g.mu.RLock()
	total := len(g.nodes)
	g.mu.RUnlock()

	if total > MaxFilesForGraph {
		g.log.Warn("graph has %d nodes > MaxFilesForGraph=%d, skipping graph impact", total, MaxFilesForGraph)
		return ImpactResult{RiskScore: 0}, nil
	}

	var mu sync.Mutex
	affected := make(map[string]bool)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for _, f := range changedFiles {
		f := f
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}
			reached := g.bfsReachable(f)
			mu.Lock()
			for _, n := range reached {
				affected[n] = true
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		g.log.Warn("impact traversal degraded: %v", err)
		return ImpactResult{RiskScore: 0}, nil
	}

	nodes := make([]string, 0, len(affected))
	for n := range affected {
		nodes = append(nodes, n)
	}

	risk := 0.0
	if total > 0 {
		risk = float64(len(nodes)) / float64(total)
		if risk > 1 {
			risk = 1
		}
	}

	return ImpactResult{AffectedNodes: nodes, RiskScore: risk}, nil
}

func (g *Graph) bfsReachable(start string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{start: true}
	queue := []string{start}
	var out []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.out[cur] {
			if !visited[e.To] {
				visited[e.To] = true
				out = append(out, e.To)
				queue = append(queue, e.To)
			}
		}
	}
	return out
}

// TraversePath finds a path of edges between two nodes via BFS, bounded by
// maxDepth. Returns an error if no path exists within that bound.
func (g *Graph) TraversePath(from, to string, maxDepth int) ([]Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if maxDepth <= 0 {
		maxDepth = 5
	}

	type item struct {
		node  string
		depth int
	}
	cameFrom := map[string]*Edge{from: nil}
	queue := []item{{from, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.node == to {
			var path []Edge
			node := to
			for {
				e := cameFrom[node]
				if e == nil {
					break
				}
				path = append([]Edge{*e}, path...)
				node = e.From
			}
			return path, nil
		}
		if cur.depth >= maxDepth {
			continue
		}
		for _, e := range g.out[cur.node] {
			if _, seen := cameFrom[e.To]; !seen {
				edge := e
				cameFrom[e.To] = &edge
				queue = append(queue, item{e.To, cur.depth + 1})
			}
		}
	}
	return nil, fmt.Errorf("depgraph: no path from %s to %s within depth %d", from, to, maxDepth)
}
