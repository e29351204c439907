package correlate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mfaure/ctxweave/pkg/conversation"
)

// The detectors are intentionally heuristic: regex extraction plus word
// overlap, not a parser. Each one reads the full ordered item sequence and
// emits zero or more references; their outputs are pooled by the correlator.

var (
	filePattern = regexp.MustCompile(`\b(?:[A-Za-z0-9_.-]+/)*[A-Za-z0-9_-]+\.(?:go|py|pyi|js|jsx|ts|tsx|java|rb|rs|c|h|cc|cpp|hpp|cs|sh|bash|sql|html|css|json|yaml|yml|toml|ini|cfg|conf|md|txt|proto|mod|sum|lock)\b`)

	functionDefPattern   = regexp.MustCompile(`\b(?:func|def|function|fn)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	methodCallPattern    = regexp.MustCompile(`\.([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	bareCallPattern      = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	namedFunctionPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s+function\b`)

	variableAssignPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*(?::=|=[^=>])`)
	variableDeclPattern   = regexp.MustCompile(`\b(?:var|let|const)\s+([A-Za-z_][A-Za-z0-9_]*)`)

	errorPattern = regexp.MustCompile(`(?i)\b(?:error|exception|traceback|panic|fatal)\b|(?m)^\s+at\s+\S+\(`)

	backReferencePattern = regexp.MustCompile(`(?i)\b(?:as\s+(?:mentioned|discussed|noted|described)|continuing|going\s+back\s+to|as\s+before|like\s+(?:you|i)\s+said)\b`)
	crossReferencePattern = regexp.MustCompile(`(?i)\b(?:see|refer(?:ring)?\s+to|regarding)\s+(?:the\s+)?(?:above|previous|earlier|prior)\b`)

	wordPattern = regexp.MustCompile(`[a-z][a-z0-9_]{3,}`)
)

var errorKeywords = []string{"error", "failed", "failure", "exception", "crash", "broken", "traceback"}

var fixKeywords = []string{"fix", "fixed", "resolv", "solution", "solved", "correct", "patch", "repair", "works now", "working now"}

// codeStopwords filters control-flow keywords and literals that the call and
// assignment patterns would otherwise pick up as identifiers.
var codeStopwords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "switch": true,
	"case": true, "return": true, "catch": true, "try": true, "defer": true,
	"go": true, "func": true, "def": true, "var": true, "let": true,
	"const": true, "new": true, "make": true, "len": true, "cap": true,
	"true": true, "false": true, "nil": true, "null": true, "none": true,
	"self": true, "this": true, "print": true, "println": true,
}

// conceptStopwords filters common prose words from concept continuation.
var conceptStopwords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true, "have": true,
	"will": true, "would": true, "could": true, "should": true, "been": true,
	"were": true, "they": true, "their": true, "there": true, "here": true,
	"what": true, "when": true, "where": true, "which": true, "while": true,
	"your": true, "about": true, "into": true, "then": true, "than": true,
	"some": true, "such": true, "only": true, "also": true, "just": true,
	"like": true, "over": true, "same": true, "after": true, "before": true,
	"because": true, "these": true, "those": true, "each": true, "other": true,
	"more": true, "most": true, "very": true, "them": true, "does": true,
	"make": true, "made": true, "need": true, "want": true, "using": true,
	"used": true, "please": true, "thanks": true, "okay": true, "yes": true,
}

// detectToolChains links each tool-call item to the first tool-result item
// within the scan window. Calls with no in-window result are reported as
// incomplete instead of being annotated onto the caller's items.
func detectToolChains(items []conversation.ContentItem, cfg Config) ([]Reference, []string) {
	var refs []Reference
	var incomplete []string

	for i, it := range items {
		if !it.HasToolCall {
			continue
		}

		found := false
		end := i + cfg.ToolChainWindow
		if end >= len(items) {
			end = len(items) - 1
		}
		for j := i + 1; j <= end; j++ {
			if !items[j].HasToolResult {
				continue
			}
			ref, err := NewReference(it.ID, items[j].ID, KindToolChain, StrengthCritical, snippet(it.Text, 60), 0.95, true)
			if err == nil {
				refs = append(refs, ref)
			}
			found = true
			break
		}
		if !found {
			incomplete = append(incomplete, it.ID)
		}
	}
	return refs, incomplete
}

// detectFileReferences links items that mention the same file path.
func detectFileReferences(items []conversation.ContentItem, cfg Config) []Reference {
	byPath := groupByToken(items, func(text string) []string {
		return filePattern.FindAllString(text, -1)
	})

	var refs []Reference
	for _, path := range sortedKeys(byPath) {
		positions := byPath[path]
		if len(positions) < 2 {
			continue
		}
		hasDir := strings.Contains(path, "/")
		for a := 0; a < len(positions); a++ {
			for b := a + 1; b < len(positions); b++ {
				src, dst := items[positions[a]], items[positions[b]]
				confidence := 0.7
				if hasDir {
					confidence += 0.1
				}
				confidence += 0.2 * jaccard(src.Text, dst.Text)
				if confidence > 1.0 {
					confidence = 1.0
				}
				ref, err := NewReference(src.ID, dst.ID, KindFile, cfg.strengthFor(confidence), path, confidence, true)
				if err == nil {
					refs = append(refs, ref)
				}
			}
		}
	}
	return refs
}

// detectFunctionReferences links items that mention the same function name.
func detectFunctionReferences(items []conversation.ContentItem, cfg Config) []Reference {
	return detectIdentifiers(items, cfg, KindFunction, 0.6, extractFunctionNames)
}

// detectVariableReferences links items that mention the same variable name.
// Same mechanism as function references with a lower confidence base.
func detectVariableReferences(items []conversation.ContentItem, cfg Config) []Reference {
	return detectIdentifiers(items, cfg, KindVariable, 0.4, extractVariableNames)
}

func detectIdentifiers(items []conversation.ContentItem, cfg Config, kind DependencyKind, base float64, extract func(string) []string) []Reference {
	byName := groupByToken(items, extract)

	var refs []Reference
	for _, name := range sortedKeys(byName) {
		positions := byName[name]
		if len(positions) < 2 {
			continue
		}
		for a := 0; a < len(positions); a++ {
			for b := a + 1; b < len(positions); b++ {
				src, dst := items[positions[a]], items[positions[b]]
				confidence := base
				if len(name) > 6 {
					confidence += 0.1
				}
				confidence += 0.2 * jaccard(src.Text, dst.Text)
				if confidence > 1.0 {
					confidence = 1.0
				}
				ref, err := NewReference(src.ID, dst.ID, kind, cfg.strengthFor(confidence), name, confidence, true)
				if err == nil {
					refs = append(refs, ref)
				}
			}
		}
	}
	return refs
}

func extractFunctionNames(text string) []string {
	var names []string
	for _, pat := range []*regexp.Regexp{functionDefPattern, methodCallPattern, bareCallPattern, namedFunctionPattern} {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			name := m[1]
			if len(name) < 3 || codeStopwords[strings.ToLower(name)] {
				continue
			}
			names = append(names, name)
		}
	}
	return names
}

func extractVariableNames(text string) []string {
	var names []string
	for _, pat := range []*regexp.Regexp{variableAssignPattern, variableDeclPattern} {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			name := m[1]
			if len(name) < 2 || codeStopwords[strings.ToLower(name)] {
				continue
			}
			names = append(names, name)
		}
	}
	return names
}

// detectErrorContext links each erroring item to the first fix-like item
// among the following five.
func detectErrorContext(items []conversation.ContentItem) []Reference {
	const fixWindow = 5

	var refs []Reference
	for i, it := range items {
		if !isErroring(it) {
			continue
		}
		end := i + fixWindow
		if end >= len(items) {
			end = len(items) - 1
		}
		for j := i + 1; j <= end; j++ {
			if !containsAny(strings.ToLower(items[j].Text), fixKeywords) {
				continue
			}
			ref, err := NewReference(it.ID, items[j].ID, KindErrorContext, StrengthStrong, snippet(it.Text, 60), 0.7, false)
			if err == nil {
				refs = append(refs, ref)
			}
			break
		}
	}
	return refs
}

func isErroring(it conversation.ContentItem) bool {
	if it.IsError {
		return true
	}
	if errorPattern.MatchString(it.Text) {
		return true
	}
	return containsAny(strings.ToLower(it.Text), errorKeywords)
}

// detectConversationalFlow links items with back-reference phrasing to their
// immediate predecessor.
func detectConversationalFlow(items []conversation.ContentItem) []Reference {
	var refs []Reference
	for i := 1; i < len(items); i++ {
		text := items[i].Text
		match := backReferencePattern.FindString(text)
		if match == "" {
			match = crossReferencePattern.FindString(text)
		}
		if match == "" {
			continue
		}
		ref, err := NewReference(items[i].ID, items[i-1].ID, KindConversationalFlow, StrengthModerate, match, 0.5, false)
		if err == nil {
			refs = append(refs, ref)
		}
	}
	return refs
}

// detectConceptContinuation links items that share recurring vocabulary:
// any stopword-filtered word of length >= 4 appearing in three or more
// items joins every pair of those items. Pairs sharing several words are
// deduplicated to one reference carrying the first shared word.
func detectConceptContinuation(items []conversation.ContentItem) []Reference {
	const minOccurrences = 3

	byWord := groupByToken(items, func(text string) []string {
		var words []string
		for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
			if conceptStopwords[w] {
				continue
			}
			words = append(words, w)
		}
		return words
	})

	seen := make(map[[2]int]bool)
	var refs []Reference
	for _, word := range sortedKeys(byWord) {
		positions := byWord[word]
		if len(positions) < minOccurrences {
			continue
		}
		for a := 0; a < len(positions); a++ {
			for b := a + 1; b < len(positions); b++ {
				pair := [2]int{positions[a], positions[b]}
				if seen[pair] {
					continue
				}
				seen[pair] = true
				ref, err := NewReference(items[positions[a]].ID, items[positions[b]].ID, KindConceptContinuation, StrengthWeak, word, 0.4, true)
				if err == nil {
					refs = append(refs, ref)
				}
			}
		}
	}
	return refs
}

// ---------------------------------------------------------------------------
// shared helpers
// ---------------------------------------------------------------------------

// groupByToken maps each distinct extracted token to the sorted positions of
// the items mentioning it. Positions are deduplicated per token.
func groupByToken(items []conversation.ContentItem, extract func(string) []string) map[string][]int {
	groups := make(map[string]map[int]bool)
	for i, it := range items {
		for _, tok := range extract(it.Text) {
			if groups[tok] == nil {
				groups[tok] = make(map[int]bool)
			}
			groups[tok][i] = true
		}
	}

	out := make(map[string][]int, len(groups))
	for tok, set := range groups {
		positions := make([]int, 0, len(set))
		for p := range set {
			positions = append(positions, p)
		}
		sort.Ints(positions)
		out[tok] = positions
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// jaccard computes word-overlap similarity between two texts over lowercase
// word sets. Returns 0 when either text has no words.
func jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '_'
	}) {
		set[w] = true
	}
	return set
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// snippet truncates text to at most n characters on a rune boundary.
func snippet(text string, n int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "…"
}
