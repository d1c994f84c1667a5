package deltat

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatedResultMerge(t *testing.T) {
	result := NewAggregatedResult("run")
	pair := PixelPair{First: 1, Second: 2}

	result.Merge(FileResult{
		File:  "/data/1.dat",
		Stats: UnpackStats{Cycles: 2, ValidWords: 10},
		Sets:  []DifferenceSet{{File: "/data/1.dat", Pair: pair, Deltas: []float64{1, 2}, Timestamps1: 5, Timestamps2: 5}},
	})
	result.Merge(FileResult{
		File:  "/data/2.dat",
		Stats: UnpackStats{Cycles: 3, ValidWords: 4, MalformedWords: 1},
		Sets:  []DifferenceSet{{File: "/data/2.dat", Pair: pair, Deltas: []float64{3}, Timestamps1: 2, Timestamps2: 2}},
	})
	result.Merge(FileResult{File: "/data/3.dat", Err: errors.New("broken")})

	assert.Equal(t, []string{"/data/1.dat", "/data/2.dat"}, result.Files)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "/data/3.dat", result.Failures[0].File)
	assert.Equal(t, UnpackStats{Cycles: 5, ValidWords: 14, MalformedWords: 1}, result.Stats)

	want := &PairAggregate{Pair: pair, Timestamps1: 7, Timestamps2: 7, DeltaCount: 3, Deltas: []float64{1, 2, 3}, Files: 2}
	if diff := cmp.Diff(want, result.Pairs[pair]); diff != "" {
		t.Errorf("pair aggregate mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, result.Summary, 2)
	assert.Equal(t, SummaryRow{File: "1.dat", Pixel1: 1, Pixel2: 2, Timestamps1: 5, Timestamps2: 5, Deltas: 2, CrossTalk: 20},
		result.Summary[0])
}

func TestSortedPairs(t *testing.T) {
	result := NewAggregatedResult("run")
	for _, pair := range []PixelPair{{3, 4}, {1, 5}, {1, 2}} {
		result.Pairs[pair] = &PairAggregate{Pair: pair}
	}
	var got []PixelPair
	for _, aggregate := range result.SortedPairs() {
		got = append(got, aggregate.Pair)
	}
	assert.Equal(t, []PixelPair{{1, 2}, {1, 5}, {3, 4}}, got)
}

func TestPairSelection(t *testing.T) {
	assert.Equal(t, []PixelPair{{144, 145}, {144, 146}}, ReferencePairs([]int{144, 145, 146}))
	assert.Nil(t, ReferencePairs([]int{144}))

	assert.Equal(t, []PixelPair{{1, 3}, {1, 4}, {2, 3}, {2, 4}}, GridPairs([]int{1, 2}, []int{3, 4}))
	assert.True(t, PixelPair{First: 3, Second: 3}.Skip())
	assert.Equal(t, "3,7", PixelPair{First: 3, Second: 7}.String())
}
