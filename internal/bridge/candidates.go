package bridge

import (
	"sort"

	"github.com/mfaure/ctxweave/internal/correlate"
	"github.com/mfaure/ctxweave/pkg/conversation"
)

// Candidate is one detected gap worth bridging. Ephemeral: consumed by
// generation and not retained afterward.
type Candidate struct {
	// GapStartID and GapEndID are the retained anchors around the gap.
	GapStartID string
	GapEndID   string

	// GapIDs are the dropped ids between the anchors, in original order.
	GapIDs []string

	// DependencyScore in [0,1] measures how much detected dependency mass
	// falls inside the gap.
	DependencyScore float64

	// Complexity in [1,10] grades how hard the gap is to summarize.
	Complexity int

	// Affected are the references touching any gap member.
	Affected []correlate.Reference

	// items are the dropped items themselves, for the generators.
	items []conversation.ContentItem

	// startPos orders candidates deterministically on score ties.
	startPos int
}

// Descriptions renders the affected references for reporting.
func (c Candidate) Descriptions() []string {
	out := make([]string, 0, len(c.Affected))
	for _, ref := range c.Affected {
		out = append(out, ref.Describe())
	}
	return out
}

// FindCandidates walks consecutive pairs of retained items, collects the
// dropped ids between them, and scores each qualifying gap. Candidates come
// back sorted by dependency score, descending, so a per-run cap bridges the
// highest-value gaps first.
func (b *Builder) FindCandidates(items []conversation.ContentItem, retained map[string]bool, corr *correlate.Result) []Candidate {
	var retainedPos []int
	for i, it := range items {
		if retained[it.ID] {
			retainedPos = append(retainedPos, i)
		}
	}

	var candidates []Candidate
	for i := 0; i+1 < len(retainedPos); i++ {
		start, end := retainedPos[i], retainedPos[i+1]
		gap := items[start+1 : end]
		if len(gap) < b.config.MinGapSize || len(gap) > b.config.MaxGapSize {
			continue
		}

		cand := Candidate{
			GapStartID: items[start].ID,
			GapEndID:   items[end].ID,
			items:      gap,
			startPos:   start,
		}
		for _, it := range gap {
			cand.GapIDs = append(cand.GapIDs, it.ID)
		}

		cand.DependencyScore, cand.Affected = b.scoreGap(cand.GapIDs, corr)
		if cand.DependencyScore < b.config.MinDependencyScore {
			continue
		}
		cand.Complexity = complexity(gap)

		candidates = append(candidates, cand)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DependencyScore != candidates[j].DependencyScore {
			return candidates[i].DependencyScore > candidates[j].DependencyScore
		}
		return candidates[i].startPos < candidates[j].startPos
	})
	return candidates
}

// scoreGap sums kind-weight × strength-weight × confidence over references
// touching any gap member, normalized by gap size and clamped to [0,1].
func (b *Builder) scoreGap(gapIDs []string, corr *correlate.Result) (float64, []correlate.Reference) {
	inGap := conversation.IDSet(gapIDs)

	sum := 0.0
	var affected []correlate.Reference
	for _, ref := range corr.References {
		if !inGap[ref.SourceID] && !inGap[ref.TargetID] {
			continue
		}
		affected = append(affected, ref)
		sum += b.correlator.KindWeight(ref.Kind) * correlate.StrengthWeight(ref.Strength) * ref.Confidence
	}

	divisor := float64(len(gapIDs)) * 0.5
	if divisor < 1 {
		divisor = 1
	}
	score := sum / divisor
	if score > 1 {
		score = 1
	}
	return score, affected
}

// complexity grades a gap 1–10: size plus tool and error involvement.
func complexity(gap []conversation.ContentItem) int {
	score := 1

	sizeFactor := len(gap) / 2
	if sizeFactor > 5 {
		sizeFactor = 5
	}
	score += sizeFactor

	for _, it := range gap {
		if it.HasToolFlag() {
			score += 2
			break
		}
	}
	for _, it := range gap {
		if it.IsError {
			score++
			break
		}
	}

	if score > 10 {
		score = 10
	}
	return score
}
