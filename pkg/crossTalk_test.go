package deltat

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossTalkRate(t *testing.T) {
	assert.Equal(t, 10.0, CrossTalkRate(5, 20, 30))
	assert.Zero(t, CrossTalkRate(5, 0, 0))
}

func TestCrossTalkByDistance(t *testing.T) {
	rows := []SummaryRow{
		{File: "1.dat", Pixel1: 10, Pixel2: 11, CrossTalk: 1},
		{File: "2.dat", Pixel1: 10, Pixel2: 11, CrossTalk: 3},
		{File: "1.dat", Pixel1: 10, Pixel2: 12, CrossTalk: 5},
		{File: "1.dat", Pixel1: 11, Pixel2: 12, CrossTalk: 50},
	}

	points := CrossTalkByDistance(rows, 10)
	require.Len(t, points, 2)

	assert.Equal(t, 1, points[0].Distance)
	assert.Equal(t, 2.0, points[0].Mean)
	assert.InDelta(t, 1.0, points[0].StdErr, 1e-12)
	assert.Equal(t, 2, points[0].Samples)

	assert.Equal(t, 2, points[1].Distance)
	assert.Equal(t, 5.0, points[1].Mean)
	assert.True(t, math.IsNaN(points[1].StdErr))

	assert.Empty(t, CrossTalkByDistance(rows, 99))
}

func TestSummarizeDeltas(t *testing.T) {
	summary := SummarizeDeltas([]float64{-100, 50, 200, 50})
	assert.Equal(t, 4, summary.Count)
	assert.Equal(t, -100.0, summary.Min)
	assert.Equal(t, 200.0, summary.Max)
	assert.Equal(t, 50.0, summary.Mean)

	assert.Equal(t, DeltaSummary{}, SummarizeDeltas(nil))
}

func TestDarkCountRate(t *testing.T) {
	assert.Equal(t, 7.5, DarkCountRate([]int{10, 20, 30, 40}, []int{3}, 2))
	assert.Equal(t, 12.5, DarkCountRate([]int{10, 20, 30, 40}, []int{-1, 99}, 2))
	assert.Zero(t, DarkCountRate([]int{10}, nil, 0))
}

func TestCountValidTimestamps(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeRunFile(t, dir, "0000000001.dat"), writeRunFile(t, dir, "0000000002.dat")}
	config := testConfiguration()
	// Calibration settings must not change the counts.
	config.ApplyTDCCalibration = true

	counts, counted, err := CountValidTimestamps(context.Background(), files, config)
	require.NoError(t, err)
	assert.Equal(t, 2, counted)
	assert.Equal(t, []int{8, 0, 0, 0, 10, 0, 0, 0}, counts)
}
