package bridge_test

import (
	"strings"
	"testing"

	"github.com/mfaure/ctxweave/internal/bridge"
	"github.com/mfaure/ctxweave/pkg/conversation"
)

// buildOne runs the full pipeline over items/retained and returns the single
// expected bridge.
func buildOne(t *testing.T, cfg bridge.Config, items []conversation.ContentItem, retained []string, strategy bridge.Strategy) bridge.ContextBridge {
	t.Helper()

	result, err := newBuilder(cfg).Build(items, retained, strategy)
	if err != nil {
		t.Fatalf("Build error = %v", err)
	}
	if len(result.Bridges) != 1 {
		t.Fatalf("bridges = %d, want 1", len(result.Bridges))
	}
	return result.Bridges[0]
}

// ---------------------------------------------------------------------------
// tool-chain generator
// ---------------------------------------------------------------------------

func TestGenerate_ToolChainPerStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		strategy       bridge.Strategy
		wantConfidence float64
		wantFixed      bool
	}{
		{strategy: bridge.StrategyConservative, wantConfidence: 0.8, wantFixed: true},
		{strategy: bridge.StrategyModerate, wantConfidence: 0.7},
		{strategy: bridge.StrategyAggressive, wantConfidence: 0.7},
		{strategy: bridge.StrategyDependencyOnly, wantConfidence: 0.6},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.strategy), func(t *testing.T) {
			t.Parallel()

			items, retained := toolGap(3)
			br := buildOne(t, bridge.Config{}, items, retained, tt.strategy)

			if br.Type != bridge.TypeToolChain {
				t.Fatalf("type = %s, want tool_chain", br.Type)
			}
			if br.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", br.Confidence, tt.wantConfidence)
			}
			if tt.wantFixed && strings.Contains(br.Content, "build succeeded") {
				t.Errorf("conservative content %q leaks gap text", br.Content)
			}
			if !tt.wantFixed && tt.strategy != bridge.StrategyDependencyOnly && !strings.Contains(br.Content, "build succeeded") {
				t.Errorf("content %q missing the extracted key result", br.Content)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// error-context generator
// ---------------------------------------------------------------------------

func TestGenerate_ErrorContext(t *testing.T) {
	t.Parallel()

	items := []conversation.ContentItem{
		{ID: "k1", Text: "keep"},
		{ID: "e1", Text: "Error: missing semicolon in parser", IsError: true},
		{ID: "e2", Text: "fixed by adding the semicolon"},
		{ID: "k2", Text: "thanks, semicolon problem fixed now"},
	}
	retained := []string{"k1", "k2"}

	br := buildOne(t, bridge.Config{}, items, retained, bridge.StrategyModerate)

	if br.Type != bridge.TypeErrorContext {
		t.Fatalf("type = %s, want error_context", br.Type)
	}
	if br.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", br.Confidence)
	}
	if !strings.Contains(br.Content, "Error:") || !strings.Contains(br.Content, "Resolution:") {
		t.Errorf("content = %q, want composed error/resolution form", br.Content)
	}
}

func TestGenerate_ErrorContextConservative(t *testing.T) {
	t.Parallel()

	items := []conversation.ContentItem{
		{ID: "k1", Text: "keep"},
		{ID: "e1", Text: "Error: missing semicolon in parser", IsError: true},
		{ID: "e2", Text: "fixed by adding the semicolon"},
		{ID: "k2", Text: "thanks, semicolon problem fixed now"},
	}
	retained := []string{"k1", "k2"}

	br := buildOne(t, bridge.Config{}, items, retained, bridge.StrategyConservative)

	if br.Confidence != 0.7 {
		t.Errorf("confidence = %v, want 0.7", br.Confidence)
	}
	if strings.Contains(br.Content, "semicolon") {
		t.Errorf("conservative content %q leaks gap text", br.Content)
	}
}

// ---------------------------------------------------------------------------
// reference generator
// ---------------------------------------------------------------------------

func TestGenerate_ReferenceBridgeNamesTargets(t *testing.T) {
	t.Parallel()

	items := []conversation.ContentItem{
		{ID: "k1", Text: "keep"},
		{ID: "r1", Text: "rewrite internal/store/cache.go"},
		{ID: "r2", Text: "internal/store/cache.go now uses a ring buffer"},
		{ID: "k2", Text: "keep"},
	}
	retained := []string{"k1", "k2"}

	br := buildOne(t, bridge.Config{}, items, retained, bridge.StrategyModerate)

	if br.Type != bridge.TypeReference {
		t.Fatalf("type = %s, want reference", br.Type)
	}
	if !strings.Contains(br.Content, "internal/store/cache.go") {
		t.Errorf("content = %q, want the referenced path named", br.Content)
	}
	if br.Confidence != 0.6 {
		t.Errorf("confidence = %v, want 0.6", br.Confidence)
	}
}

// ---------------------------------------------------------------------------
// summary fallback
// ---------------------------------------------------------------------------

func TestGenerate_SummaryRequiresLowThreshold(t *testing.T) {
	t.Parallel()

	// A gap with only weak concept links falls through to the summary
	// generator, whose confidence sits below the default threshold. The
	// score floor must also be relaxed to let the candidate through.
	items := []conversation.ContentItem{
		{ID: "k1", Text: "benchmark harness results pending"},
		{ID: "s1", Text: "benchmark harness running stage one"},
		{ID: "s2", Text: "benchmark harness running stage two"},
		{ID: "k2", Text: "done"},
	}
	retained := []string{"k1", "k2"}

	strict, err := newBuilder(bridge.Config{}).Build(items, retained, bridge.StrategyAggressive)
	if err != nil {
		t.Fatalf("Build error = %v", err)
	}
	if len(strict.Bridges) != 0 {
		t.Fatalf("bridges = %d, want 0 at the default confidence threshold", len(strict.Bridges))
	}

	relaxed := bridge.Config{ConfidenceThreshold: 0.2, MinDependencyScore: 0.05}
	result, err := newBuilder(relaxed).Build(items, retained, bridge.StrategyAggressive)
	if err != nil {
		t.Fatalf("Build error = %v", err)
	}
	if len(result.Bridges) != 1 {
		t.Fatalf("bridges = %d, want 1 with a relaxed threshold", len(result.Bridges))
	}

	br := result.Bridges[0]
	if br.Type != bridge.TypeSummary {
		t.Fatalf("type = %s, want summary", br.Type)
	}
	if !strings.Contains(br.Content, "items omitted") {
		t.Errorf("content = %q, want an item-count placeholder", br.Content)
	}
	if !strings.Contains(br.Content, "benchmark") {
		t.Errorf("content = %q, want shared keywords with summarization enabled", br.Content)
	}
	if result.GapsFilled != 0 {
		t.Errorf("GapsFilled = %d, want 0 (summary bridges do not count)", result.GapsFilled)
	}
}

func TestGenerate_SummaryWithoutSummarization(t *testing.T) {
	t.Parallel()

	items := []conversation.ContentItem{
		{ID: "k1", Text: "benchmark harness results pending"},
		{ID: "s1", Text: "benchmark harness running stage one"},
		{ID: "s2", Text: "benchmark harness running stage two"},
		{ID: "k2", Text: "done"},
	}
	retained := []string{"k1", "k2"}

	off := false
	cfg := bridge.Config{
		ConfidenceThreshold:  0.2,
		MinDependencyScore:   0.05,
		SummarizationEnabled: &off,
	}
	result, err := newBuilder(cfg).Build(items, retained, bridge.StrategyAggressive)
	if err != nil {
		t.Fatalf("Build error = %v", err)
	}
	if len(result.Bridges) != 1 {
		t.Fatalf("bridges = %d, want 1", len(result.Bridges))
	}
	if got := result.Bridges[0].Content; strings.Contains(got, "benchmark") {
		t.Errorf("content = %q, want a bare count without keyword extraction", got)
	}
}

// ---------------------------------------------------------------------------
// token caps
// ---------------------------------------------------------------------------

func TestGenerate_TokenCostCapped(t *testing.T) {
	t.Parallel()

	items, retained := toolGap(3)
	cfg := bridge.Config{MaxBridgeTokens: 5}
	br := buildOne(t, cfg, items, retained, bridge.StrategyModerate)

	if br.TokenCost > 5 {
		t.Errorf("token cost = %d, want capped at 5", br.TokenCost)
	}
}
