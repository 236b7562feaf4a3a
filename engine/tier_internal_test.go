package engine

import "testing"

// The score-threshold path to PLATINUM cannot be reached through a snapshot
// without also tripping the community or vip overrides (the sub-score caps
// make a 35+ total imply one of them). The ladder is therefore pinned
// directly here so both promotion paths stay independently covered.

func TestDecideTier_ScoreThresholdPath(t *testing.T) {
	tests := []struct {
		name       string
		total      float64
		community  int
		engagement int
		vip        int
		want       Tier
		wantDays   int
	}{
		{"platinum on raw score alone", 40, 0, 0, 0, TierPlatinum, CadencePlatinumDays},
		{"platinum on community override alone", 10, 9, 0, 0, TierPlatinum, CadencePlatinumDays},
		{"platinum on vip override alone", 10, 0, 0, 9, TierPlatinum, CadencePlatinumDays},
		{"gold on raw score", 27, 0, 0, 0, TierGold, CadenceGoldDays},
		{"gold on engagement override", 10, 0, 8, 0, TierGold, CadenceGoldDays},
		{"silver on raw score", 16, 0, 0, 0, TierSilver, CadenceSilverDays},
		{"bronze fallthrough", 5, 0, 0, 0, TierBronze, CadenceBronzeDays},
		{"boundary: exactly 35 is platinum", 35, 0, 0, 0, TierPlatinum, CadencePlatinumDays},
		{"boundary: exactly 25 is gold", 25, 0, 0, 0, TierGold, CadenceGoldDays},
		{"boundary: exactly 15 is silver", 15, 0, 0, 0, TierSilver, CadenceSilverDays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reasons []string
			tier, days := decideTier(tt.total, tt.community, tt.engagement, tt.vip, &reasons)
			if tier != tt.want {
				t.Errorf("tier = %s, want %s", tier, tt.want)
			}
			if days != tt.wantDays {
				t.Errorf("cadence = %d, want %d", days, tt.wantDays)
			}
			if len(reasons) != 1 {
				t.Errorf("expected one decision reason, got %d", len(reasons))
			}
		})
	}
}
