package infraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	policy := DefaultPolicy()

	cases := []struct {
		points int
		want   Tier
	}{
		{0, TierActive},
		{1, TierActive},
		{299, TierActive},
		{300, TierFlagged}, // ровно на пороге — уже новый статус
		{301, TierFlagged},
		{499, TierFlagged},
		{500, TierRiskingBan},
		{999, TierRiskingBan},
		{1000, TierBanned},
		{5000, TierBanned},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, policy.Evaluate(tc.points),
			"points=%d", tc.points)
	}
}

func TestEvaluateCustomThresholds(t *testing.T) {
	policy := NewPolicy(5*time.Minute, 5, 10, 20, 30)

	require.Equal(t, TierActive, policy.Evaluate(9))
	require.Equal(t, TierFlagged, policy.Evaluate(10))
	require.Equal(t, TierRiskingBan, policy.Evaluate(25))
	require.Equal(t, TierBanned, policy.Evaluate(30))
	require.Equal(t, 30, policy.BanThreshold())
}

func TestTierStringRoundTrip(t *testing.T) {
	for _, tier := range []Tier{TierActive, TierFlagged, TierRiskingBan, TierBanned} {
		require.Equal(t, tier, ParseTier(tier.String()))
	}
	// Неизвестное значение из БД не должно ронять разбор
	require.Equal(t, TierActive, ParseTier("что-то странное"))
}

func TestTierOrdering(t *testing.T) {
	require.True(t, TierActive < TierFlagged)
	require.True(t, TierFlagged < TierRiskingBan)
	require.True(t, TierRiskingBan < TierBanned)
}
