package rules

import "github.com/opensource-commerce/kestrel/internal/domain"

// BuiltinSegmentRules returns the standard RFM decision table.
// Priority order matters: Champions must shadow Loyalties, and the
// mid-recency split between Need Attention and En Risk sits above Recents.
func BuiltinSegmentRules() []*domain.SegmentRule {
	return []*domain.SegmentRule{
		{
			Name:       "champions",
			Segment:    domain.SegmentChampions,
			Expression: "r == max_score && f == max_score && m == max_score",
			Priority:   1,
		},
		{
			Name:       "loyalties",
			Segment:    domain.SegmentLoyalties,
			Expression: "r >= 4 && f >= 3 && m >= 3",
			Priority:   2,
		},
		{
			Name:       "almost_lost",
			Segment:    domain.SegmentAlmostLost,
			Expression: "r <= 2 && f >= 4 && m >= 4",
			Priority:   3,
		},
		{
			Name:       "need_attention",
			Segment:    domain.SegmentNeedAttention,
			Expression: "r == 3 && f >= 3 && m >= 3",
			Priority:   4,
		},
		{
			Name:       "en_risk",
			Segment:    domain.SegmentEnRisk,
			Expression: "r < 3 && f >= 3 && m >= 3",
			Priority:   5,
		},
		{
			Name:       "recents",
			Segment:    domain.SegmentRecents,
			Expression: "r >= 4 && f <= 2",
			Priority:   6,
		},
		{
			Name:       "sleeper",
			Segment:    domain.SegmentSleeper,
			Expression: "r <= 2 && f <= 2 && m <= 2",
			Priority:   7,
		},
	}
}
