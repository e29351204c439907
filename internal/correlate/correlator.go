package correlate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mfaure/ctxweave/pkg/conversation"
)

// Correlator runs the reference detectors over an ordered content stream and
// clusters the surviving references per dependency kind.
//
// A Correlator is safe for repeated use, but its configuration must not be
// mutated while a call is in flight: configure before first use.
type Correlator struct {
	config Config
}

// New creates a Correlator with the given configuration. Zero-valued fields
// take the documented defaults.
func New(cfg Config) *Correlator {
	return &Correlator{config: cfg.withDefaults()}
}

// Correlate analyzes the full unfiltered item sequence and returns the
// detected references and clusters. It is deterministic for identical input
// and configuration, tolerates empty input, and never retains the caller's
// slice. Items with missing text or flags are treated as empty/false.
func (c *Correlator) Correlate(items []conversation.ContentItem) *Result {
	start := time.Now()

	toolRefs, incomplete := detectToolChains(items, c.config)

	pooled := toolRefs
	pooled = append(pooled, detectFileReferences(items, c.config)...)
	pooled = append(pooled, detectFunctionReferences(items, c.config)...)
	pooled = append(pooled, detectVariableReferences(items, c.config)...)
	pooled = append(pooled, detectErrorContext(items)...)
	pooled = append(pooled, detectConversationalFlow(items)...)
	pooled = append(pooled, detectConceptContinuation(items)...)

	filtered := make([]Reference, 0, len(pooled))
	for _, ref := range pooled {
		if ref.Confidence >= c.config.MinConfidence {
			filtered = append(filtered, ref)
		}
	}

	return &Result{
		References:          filtered,
		Clusters:            c.cluster(filtered),
		IncompleteToolCalls: incomplete,
		ItemsProcessed:      len(items),
		Stats: Stats{
			ReferencesDetected: len(pooled),
			ReferencesFiltered: len(pooled) - len(filtered),
			Duration:           time.Since(start),
		},
	}
}

// KindWeight returns the correlator's configured scoring multiplier for a
// dependency kind. The bridge builder shares it so gap scoring and strength
// scoring stay calibrated.
func (c *Correlator) KindWeight(kind DependencyKind) float64 {
	return c.config.kindWeight(kind)
}

// StrengthScore computes how strongly the given content id is depended upon:
// a kind- and strength-weighted sum over references touching the id, plus a
// bonus per cluster membership, normalized into [0,1]. External prioritizers
// use this to bias which ids to retain.
func (c *Correlator) StrengthScore(id string, result *Result) float64 {
	raw := 0.0
	for _, ref := range result.References {
		if !ref.Touches(id) {
			continue
		}
		raw += c.config.kindWeight(ref.Kind) * strengthWeights[ref.Strength] * ref.Confidence
	}
	for _, cl := range result.Clusters {
		if cl.Contains(id) {
			raw += 0.5 * strengthWeights[cl.Strength]
		}
	}
	// Monotonic squash into [0,1).
	return raw / (raw + 1)
}

// cluster groups references by dependency kind and finds connected
// components over content ids within each kind. Bidirectional references are
// treated as undirected edges; directed references still connect their
// endpoints for reachability.
func (c *Correlator) cluster(refs []Reference) []Cluster {
	byKind := make(map[DependencyKind][]Reference)
	for _, ref := range refs {
		byKind[ref.Kind] = append(byKind[ref.Kind], ref)
	}

	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	var clusters []Cluster
	for _, kindName := range kinds {
		kind := DependencyKind(kindName)
		kindRefs := byKind[kind]

		adjacency := make(map[string][]string)
		for _, ref := range kindRefs {
			adjacency[ref.SourceID] = append(adjacency[ref.SourceID], ref.TargetID)
			adjacency[ref.TargetID] = append(adjacency[ref.TargetID], ref.SourceID)
		}

		seq := 0
		for _, component := range components(adjacency) {
			members := c.componentRefs(component, kindRefs)
			if len(members) == 0 {
				continue
			}
			if len(component) < c.config.MinClusterSize || len(component) > c.config.MaxClusterSize {
				continue
			}
			clusters = append(clusters, Cluster{
				ID:         fmt.Sprintf("%s-cluster-%d", kind, seq),
				MemberIDs:  component,
				Kind:       kind,
				Strength:   strongest(members),
				References: members,
				Summary:    summarize(kind, component, members),
			})
			seq++
		}
	}
	return clusters
}

// components finds connected components via depth-first traversal with an
// explicit stack; adversarial inputs must not hit recursion limits.
// Components and their members come out in sorted-id order, which keeps runs
// deterministic.
func components(adjacency map[string][]string) [][]string {
	ids := make([]string, 0, len(adjacency))
	for id := range adjacency {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	visited := make(map[string]bool, len(ids))
	var result [][]string

	for _, root := range ids {
		if visited[root] {
			continue
		}

		var component []string
		stack := []string{root}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[id] {
				continue
			}
			visited[id] = true
			component = append(component, id)
			stack = append(stack, adjacency[id]...)
		}

		sort.Strings(component)
		result = append(result, component)
	}
	return result
}

// componentRefs returns the references with both endpoints inside the
// component.
func (c *Correlator) componentRefs(component []string, refs []Reference) []Reference {
	inside := conversation.IDSet(component)
	var members []Reference
	for _, ref := range refs {
		if inside[ref.SourceID] && inside[ref.TargetID] {
			members = append(members, ref)
		}
	}
	return members
}

func strongest(refs []Reference) Strength {
	best := StrengthWeak
	for _, ref := range refs {
		if ref.Strength.rank() > best.rank() {
			best = ref.Strength
		}
	}
	return best
}

// summarize builds the short cluster description: the dependency kind plus
// up to three distinct matched texts.
func summarize(kind DependencyKind, memberIDs []string, refs []Reference) string {
	var texts []string
	seen := make(map[string]bool)
	for _, ref := range refs {
		if ref.MatchedText == "" || seen[ref.MatchedText] {
			continue
		}
		seen[ref.MatchedText] = true
		texts = append(texts, ref.MatchedText)
		if len(texts) == 3 {
			break
		}
	}

	if len(texts) == 0 {
		return fmt.Sprintf("%s dependency across %d items", kind, len(memberIDs))
	}
	return fmt.Sprintf("%s dependency across %d items: %s", kind, len(memberIDs), strings.Join(texts, ", "))
}
