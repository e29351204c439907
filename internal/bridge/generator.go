package bridge

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mfaure/ctxweave/internal/correlate"
)

// generated is the raw output of one content generator. A zero-confidence or
// empty-content value is the discard sentinel: the generator could not
// produce usable content and the orchestrator silently drops the candidate.
type generated struct {
	content    string
	confidence float64
}

func (g generated) usable() bool {
	return g.content != "" && g.confidence > 0
}

var toolKeywords = []string{"tool", "execut", "command", "ran ", "running", "output", "result", "created", "wrote", "edited", "searched", "read "}

var bridgeErrorKeywords = []string{"error", "failed", "failure", "exception", "traceback", "panic"}

var bridgeFixKeywords = []string{"fix", "resolv", "solution", "solved", "correct", "patch", "works"}

var summaryWordPattern = regexp.MustCompile(`[a-z][a-z0-9_]{3,}`)

var summaryStopwords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true, "have": true,
	"will": true, "been": true, "were": true, "they": true, "there": true,
	"what": true, "when": true, "which": true, "your": true, "about": true,
	"then": true, "than": true, "some": true, "also": true, "just": true,
	"like": true, "item": true, "items": true,
}

// chooseType picks the bridge type by priority over the dependency kinds
// present among the candidate's affected references.
func chooseType(cand Candidate) Type {
	kinds := make(map[correlate.DependencyKind]bool, len(cand.Affected))
	for _, ref := range cand.Affected {
		kinds[ref.Kind] = true
	}

	switch {
	case kinds[correlate.KindToolChain]:
		return TypeToolChain
	case kinds[correlate.KindErrorContext]:
		return TypeErrorContext
	case kinds[correlate.KindFile] || kinds[correlate.KindFunction]:
		return TypeReference
	case kinds[correlate.KindConversationalFlow]:
		return TypeConversational
	}
	return TypeSummary
}

// generate runs the type-appropriate generator for the candidate and wraps
// usable output into a ContextBridge. The second return is false when the
// generator produced the discard sentinel or the confidence threshold was
// not met.
func (b *Builder) generate(cand Candidate, strategy Strategy) (ContextBridge, bool) {
	typ := chooseType(cand)

	var gen generated
	switch typ {
	case TypeToolChain:
		gen = b.generateToolChain(cand, strategy)
	case TypeErrorContext:
		gen = b.generateErrorContext(cand, strategy)
	case TypeReference:
		gen = b.generateReference(cand, strategy)
	case TypeConversational:
		gen = b.generateConversational(cand, strategy)
	default:
		gen = b.generateSummary(cand, strategy)
	}

	if !gen.usable() || gen.confidence < b.config.ConfidenceThreshold {
		return ContextBridge{}, false
	}

	cost := estimateTokens(gen.content)
	if limit := tokenCaps[strategy]; limit > 0 && cost > limit {
		cost = limit
	}
	if cost > b.config.MaxBridgeTokens {
		cost = b.config.MaxBridgeTokens
	}

	priority := typePriority[typ]
	priority += int(math.Round(cand.DependencyScore * 20))
	refBonus := len(cand.Affected) * 5
	if refBonus > 15 {
		refBonus = 15
	}
	priority += refBonus
	if priority > 100 {
		priority = 100
	}
	if priority < 1 {
		priority = 1
	}

	br, err := NewBridge(
		uuid.NewString(),
		typ,
		cand.GapIDs,
		[]string{cand.GapStartID, cand.GapEndID},
		gen.content,
		cand.Descriptions(),
		gen.confidence,
		cost,
		priority,
	)
	if err != nil {
		return ContextBridge{}, false
	}
	return br, true
}

// generateToolChain bridges a dropped tool call/result exchange. Without any
// tool-like text in the gap it returns the discard sentinel.
func (b *Builder) generateToolChain(cand Candidate, strategy Strategy) generated {
	matched := ""
	for _, it := range cand.items {
		if it.HasToolFlag() || containsAnyFold(it.Text, toolKeywords) {
			if it.Text != "" {
				matched = it.Text
			}
			if it.HasToolResult {
				break
			}
		}
	}
	if matched == "" {
		return generated{}
	}

	switch strategy {
	case StrategyConservative:
		return generated{content: "[Tool executed, output omitted]", confidence: 0.8}
	case StrategyDependencyOnly:
		return generated{content: "[Tool call and result omitted]", confidence: 0.6}
	}
	return generated{
		content:    fmt.Sprintf("[Tool executed: %s]", keyPhrase(matched)),
		confidence: 0.7,
	}
}

// generateErrorContext bridges a dropped error-and-fix exchange.
func (b *Builder) generateErrorContext(cand Candidate, strategy Strategy) generated {
	if strategy == StrategyConservative {
		return generated{content: "[Error encountered and resolved, details omitted]", confidence: 0.7}
	}

	var errPart, fixPart string
	for _, it := range cand.items {
		lower := strings.ToLower(it.Text)
		if errPart == "" && (it.IsError || containsAny(lower, bridgeErrorKeywords)) {
			errPart = keyPhrase(it.Text)
			continue
		}
		if fixPart == "" && containsAny(lower, bridgeFixKeywords) {
			fixPart = keyPhrase(it.Text)
		}
	}

	switch {
	case errPart != "" && fixPart != "":
		return generated{content: fmt.Sprintf("[Error: %s | Resolution: %s]", errPart, fixPart), confidence: 0.8}
	case errPart != "":
		return generated{content: fmt.Sprintf("[Error: %s | Resolution omitted]", errPart), confidence: 0.8}
	case fixPart != "":
		return generated{content: fmt.Sprintf("[Error omitted | Resolution: %s]", fixPart), confidence: 0.8}
	}
	return generated{}
}

// generateReference bridges dropped file/function mentions by naming them.
func (b *Builder) generateReference(cand Candidate, strategy Strategy) generated {
	var names []string
	seen := make(map[string]bool)
	for _, ref := range cand.Affected {
		if ref.Kind != correlate.KindFile && ref.Kind != correlate.KindFunction {
			continue
		}
		if ref.MatchedText == "" || seen[ref.MatchedText] {
			continue
		}
		seen[ref.MatchedText] = true
		names = append(names, ref.MatchedText)
		if len(names) == 3 {
			break
		}
	}
	if len(names) == 0 {
		return generated{}
	}

	confidence := 0.6
	if strategy == StrategyConservative {
		confidence = 0.7
	}
	return generated{
		content:    fmt.Sprintf("[Omitted discussion referenced: %s]", strings.Join(names, ", ")),
		confidence: confidence,
	}
}

// generateConversational bridges a dropped conversational back-reference.
func (b *Builder) generateConversational(cand Candidate, strategy Strategy) generated {
	confidence := 0.6
	if strategy == StrategyConservative {
		confidence = 0.5
	}
	return generated{
		content:    fmt.Sprintf("[%d earlier messages omitted, discussion continues]", len(cand.GapIDs)),
		confidence: confidence,
	}
}

// generateSummary is the fallback: a bare item count, or a keyword summary
// when the aggressive strategy has summarization enabled.
func (b *Builder) generateSummary(cand Candidate, strategy Strategy) generated {
	if strategy == StrategyAggressive && b.config.summarization() {
		if terms := sharedKeywords(cand); len(terms) > 0 {
			return generated{
				content:    fmt.Sprintf("[%d items omitted, discussion of %s]", len(cand.GapIDs), strings.Join(terms, ", ")),
				confidence: 0.4,
			}
		}
	}

	confidence := 0.3
	if strategy == StrategyConservative {
		confidence = 0.5
	}
	return generated{
		content:    fmt.Sprintf("[%d items omitted]", len(cand.GapIDs)),
		confidence: confidence,
	}
}

// sharedKeywords extracts stopword-filtered words occurring more than once
// across the gap, most frequent first, capped at three terms.
func sharedKeywords(cand Candidate) []string {
	freq := make(map[string]int)
	for _, it := range cand.items {
		for _, w := range summaryWordPattern.FindAllString(strings.ToLower(it.Text), -1) {
			if summaryStopwords[w] {
				continue
			}
			freq[w]++
		}
	}

	var terms []string
	for w, n := range freq {
		if n > 1 {
			terms = append(terms, w)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > 3 {
		terms = terms[:3]
	}
	return terms
}

// ---------------------------------------------------------------------------
// text helpers
// ---------------------------------------------------------------------------

// estimateTokens approximates token count as character length over four,
// rounded up. Calibrated for English prose.
func estimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return len(text)/4 + 1
}

// keyPhrase extracts a short leading phrase: the first line or sentence,
// trimmed to 80 characters.
func keyPhrase(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if i := strings.Index(text, ". "); i >= 0 {
		text = text[:i]
	}

	runes := []rune(text)
	if len(runes) > 80 {
		return string(runes[:80]) + "…"
	}
	return text
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func containsAnyFold(text string, keywords []string) bool {
	return containsAny(strings.ToLower(text), keywords)
}
