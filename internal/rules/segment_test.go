package rules

import (
	"testing"

	"github.com/opensource-commerce/kestrel/internal/domain"
)

func newTestEngine(t *testing.T) *SegmentEngine {
	t.Helper()
	engine, err := NewSegmentEngine()
	if err != nil {
		t.Fatalf("failed to create segment engine: %v", err)
	}
	if err := engine.LoadRules(BuiltinSegmentRules()); err != nil {
		t.Fatalf("failed to load builtin rules: %v", err)
	}
	return engine
}

func TestSegmentDecisionTable(t *testing.T) {
	engine := newTestEngine(t)

	cases := []struct {
		name    string
		r, f, m int
		want    string
	}{
		{"Champions", 5, 5, 5, domain.SegmentChampions},
		{"ChampionsShadowsLoyalties", 5, 5, 5, domain.SegmentChampions},
		{"Loyalties", 4, 3, 3, domain.SegmentLoyalties},
		{"LoyaltiesHighButNotMax", 5, 5, 4, domain.SegmentLoyalties},
		{"AlmostLost", 1, 5, 5, domain.SegmentAlmostLost},
		{"AlmostLostUpperRecency", 2, 4, 4, domain.SegmentAlmostLost},
		{"NeedAttention", 3, 3, 3, domain.SegmentNeedAttention},
		{"NeedAttentionHighValue", 3, 5, 5, domain.SegmentNeedAttention},
		{"EnRisk", 2, 3, 3, domain.SegmentEnRisk},
		{"EnRiskLowRecency", 1, 4, 3, domain.SegmentEnRisk},
		{"Recents", 5, 1, 1, domain.SegmentRecents},
		{"RecentsMidMonetary", 4, 2, 5, domain.SegmentRecents},
		{"Sleeper", 1, 1, 1, domain.SegmentSleeper},
		{"SleeperUpperBound", 2, 2, 2, domain.SegmentSleeper},
		{"DefaultFallback", 3, 1, 5, domain.SegmentNeedAttention},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.Segment(tc.r, tc.f, tc.m, 5)
			if got != tc.want {
				t.Errorf("Segment(%d,%d,%d) = %q, want %q", tc.r, tc.f, tc.m, got, tc.want)
			}
		})
	}
}

func TestSegmentMaxScoreVariable(t *testing.T) {
	engine := newTestEngine(t)

	// With a 3-point scale, a full-score customer is a champion even though
	// the absolute scores are below 5.
	if got := engine.Segment(3, 3, 3, 3); got != domain.SegmentChampions {
		t.Errorf("expected champions on a 3-point scale, got %q", got)
	}
}

func TestLoadRules(t *testing.T) {
	engine, err := NewSegmentEngine()
	if err != nil {
		t.Fatalf("failed to create segment engine: %v", err)
	}

	t.Run("CountsLoadedRules", func(t *testing.T) {
		if err := engine.LoadRules(BuiltinSegmentRules()); err != nil {
			t.Fatalf("LoadRules failed: %v", err)
		}
		if engine.RulesCount() != 7 {
			t.Errorf("expected 7 rules, got %d", engine.RulesCount())
		}
	})

	t.Run("RejectsInvalidExpression", func(t *testing.T) {
		err := engine.LoadRules([]*domain.SegmentRule{
			{Name: "broken", Segment: "X", Expression: "this is not CEL !!!", Priority: 1},
		})
		if err == nil {
			t.Error("expected error for invalid CEL expression")
		}
	})

	t.Run("RejectsNonBoolExpression", func(t *testing.T) {
		err := engine.LoadRules([]*domain.SegmentRule{
			{Name: "numeric", Segment: "X", Expression: "r + f", Priority: 1},
		})
		if err == nil {
			t.Error("expected error for non-bool expression")
		}
	})

	t.Run("PriorityOrderWins", func(t *testing.T) {
		err := engine.LoadRules([]*domain.SegmentRule{
			{Name: "low", Segment: "Low", Expression: "r >= 1", Priority: 2},
			{Name: "high", Segment: "High", Expression: "r >= 1", Priority: 1},
		})
		if err != nil {
			t.Fatalf("LoadRules failed: %v", err)
		}
		if got := engine.Segment(1, 1, 1, 5); got != "High" {
			t.Errorf("expected priority 1 rule to win, got %q", got)
		}
	})
}

func TestSegmentNoRules(t *testing.T) {
	engine, err := NewSegmentEngine()
	if err != nil {
		t.Fatalf("failed to create segment engine: %v", err)
	}

	if got := engine.Segment(5, 5, 5, 5); got != DefaultSegment {
		t.Errorf("expected default segment with no rules, got %q", got)
	}
}
