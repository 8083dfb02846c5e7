package generic

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestScoreRatio(t *testing.T) {
	assert.Nil(t, ScoreRatio(nil, intPtr(10)))
	assert.Nil(t, ScoreRatio(intPtr(3), nil))
	assert.Nil(t, ScoreRatio(intPtr(3), intPtr(0)))

	ratio := ScoreRatio(intPtr(2), intPtr(3))
	require.NotNil(t, ratio)
	assert.True(t, ratio.GreaterThan(decimal.RequireFromString("66.666")))
	assert.True(t, ratio.LessThan(decimal.RequireFromString("66.667")))

	rounded := ScorePercent(intPtr(2), intPtr(3), PercentPlaces)
	require.NotNil(t, rounded)
	assert.Equal(t, "66.67", rounded.String())
}

func TestAverage_RoundsOnce(t *testing.T) {
	// GIVEN: Unrounded scores of 2/3 and 1/8
	// WHEN: Averaging them
	// THEN: Only the mean is rounded

	got := Average([]decimal.Decimal{*ScoreRatio(intPtr(2), intPtr(3)), *ScoreRatio(intPtr(1), intPtr(8))})
	require.NotNil(t, got)
	assert.Equal(t, "39.58", got.String())

	assert.Nil(t, Average(nil))
}

func TestPercentage_ZeroWhole(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(Percentage(3, 0)))
	assert.Equal(t, "33.33", Percentage(1, 3).String())
}
