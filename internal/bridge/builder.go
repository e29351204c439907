package bridge

import (
	"sort"
	"time"

	"github.com/mfaure/ctxweave/internal/correlate"
	"github.com/mfaure/ctxweave/pkg/conversation"
)

// Builder orchestrates gap detection and bridge generation for one
// conversation at a time. It owns a Correlator so gap scoring uses the same
// dependency weights as reference detection.
//
// A Builder is safe for repeated use across independent item sequences;
// configure before first use.
type Builder struct {
	correlator *correlate.Correlator
	config     Config
}

// NewBuilder creates a Builder around the given correlator. Zero-valued
// config fields take the documented defaults.
func NewBuilder(correlator *correlate.Correlator, cfg Config) *Builder {
	return &Builder{
		correlator: correlator,
		config:     cfg.withDefaults(),
	}
}

// Build runs the full pipeline: correlate the unfiltered items, find gaps
// against the retained-id set, generate bridges under the strategy's caps,
// and aggregate the result. An empty strategy uses the configured default.
//
// Absent input, gaps, or qualifying candidates yield a valid empty result,
// never an error.
func (b *Builder) Build(items []conversation.ContentItem, retainedIDs []string, strategy Strategy) (*BridgingResult, error) {
	if strategy == "" {
		strategy = b.config.DefaultStrategy
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}

	corr := b.correlator.Correlate(items)
	return b.BuildWithCorrelation(items, retainedIDs, corr, strategy)
}

// BuildWithCorrelation is Build for callers that already hold a correlation
// result for the same item sequence, such as the prioritizer that queried
// strength scores before choosing what to retain.
func (b *Builder) BuildWithCorrelation(items []conversation.ContentItem, retainedIDs []string, corr *correlate.Result, strategy Strategy) (*BridgingResult, error) {
	start := time.Now()
	if strategy == "" {
		strategy = b.config.DefaultStrategy
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}

	retained := conversation.IDSet(retainedIDs)
	candidates := b.FindCandidates(items, retained, corr)
	found := len(candidates)

	limit := candidateCaps[strategy]
	if limit > b.config.MaxBridges {
		limit = b.config.MaxBridges
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := &BridgingResult{Strategy: strategy}
	bridgedSet := make(map[string]bool)
	preservedSet := make(map[string]bool)

	for _, cand := range candidates {
		br, ok := b.generate(cand, strategy)
		if !ok {
			continue
		}

		result.Bridges = append(result.Bridges, br)
		result.TotalTokenCost += br.TokenCost
		if br.Type != TypeSummary {
			result.GapsFilled++
		}
		for _, id := range br.SourceIDs {
			bridgedSet[id] = true
			preservedSet[id] = true
		}
		for _, id := range br.TargetIDs {
			preservedSet[id] = true
		}
	}

	sort.SliceStable(result.Bridges, func(i, j int) bool {
		return result.Bridges[i].Priority > result.Bridges[j].Priority
	})

	result.BridgedIDs = sortedSet(bridgedSet)
	result.PreservedIDs = sortedSet(preservedSet)
	result.PreservationScore = preservationScore(corr, retained, preservedSet)
	result.Stats = Stats{
		CandidatesFound:     found,
		CandidatesGenerated: len(result.Bridges),
		Duration:            time.Since(start),
	}
	return result, nil
}

// preservationScore is the fraction of critical and strong references whose
// both endpoints are either directly retained or covered by some bridge.
// With no such references the score is 1.0 — there is nothing to lose.
// External callers treat a low score as a signal to retain more content
// rather than drop it.
func preservationScore(corr *correlate.Result, retained, preserved map[string]bool) float64 {
	total := 0
	kept := 0
	for _, ref := range corr.References {
		if ref.Strength != correlate.StrengthCritical && ref.Strength != correlate.StrengthStrong {
			continue
		}
		total++
		if covered(ref.SourceID, retained, preserved) && covered(ref.TargetID, retained, preserved) {
			kept++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(kept) / float64(total)
}

func covered(id string, retained, preserved map[string]bool) bool {
	return retained[id] || preserved[id]
}

func sortedSet(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
