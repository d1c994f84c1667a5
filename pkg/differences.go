package deltat

import (
	"math"
	"sort"
)

// Differences computes b - a for every timestamp a of series a and b of
// series b that lie in the same acquisition cycle and satisfy
// |b - a| <= window. Results are grouped by cycle, then by a in series
// order, then by ascending b.
func Differences(a Series, b Series, boundaries []int, window float64) []float64 {
	deltas := make([]float64, 0)
	if a.Len() == 0 || b.Len() == 0 {
		return deltas
	}

	var sorted []float64
	for _, cycle := range CycleRanges(boundaries) {
		aFrom, aTo := rowRange(a.Rows, cycle)
		if aFrom == aTo {
			continue
		}
		bFrom, bTo := rowRange(b.Rows, cycle)
		if bFrom == bTo {
			continue
		}

		bValues := b.Values[bFrom:bTo]
		if !sort.Float64sAreSorted(bValues) {
			sorted = append(sorted[:0], bValues...)
			sort.Float64s(sorted)
			bValues = sorted
		}

		for _, t1 := range a.Values[aFrom:aTo] {
			first := sort.SearchFloat64s(bValues, t1-window)
			for _, t2 := range bValues[first:] {
				delta := t2 - t1
				if delta > window {
					break
				}
				if math.Abs(delta) <= window {
					deltas = append(deltas, delta)
				}
			}
		}
	}
	return deltas
}

// rowRange returns the index range of rows inside the cycle. Rows are
// ascending.
func rowRange(rows []int, cycle CycleRange) (int, int) {
	from := sort.SearchInts(rows, cycle.Start)
	to := sort.SearchInts(rows, cycle.End)
	return from, to
}

// PairDifferences computes the difference set of one pixel pair in an
// unpacked file. Pairs with Second <= First give an empty set.
func PairDifferences(file *UnpackedFile, pixelMap *PixelMap, pair PixelPair, window float64) (DifferenceSet, error) {
	set := DifferenceSet{File: file.Path, Pair: pair, Deltas: []float64{}}
	if pair.Skip() {
		return set, nil
	}

	series1, err := pixelSeries(file, pixelMap, pair.First)
	if err != nil {
		return set, err
	}
	series2, err := pixelSeries(file, pixelMap, pair.Second)
	if err != nil {
		return set, err
	}

	set.Timestamps1 = countPositive(series1.Values)
	set.Timestamps2 = countPositive(series2.Values)
	set.Deltas = Differences(series1, series2, file.Boundaries, window)
	return set, nil
}

func pixelSeries(file *UnpackedFile, pixelMap *PixelMap, pixel int) (Series, error) {
	coord, err := pixelMap.Map(pixel)
	if err != nil {
		return Series{}, err
	}
	if coord.Channel >= len(file.Channels) {
		return Series{}, nil
	}
	return file.Channels[coord.Channel].PixelSeries(coord.Index), nil
}

func countPositive(values []float64) int {
	n := 0
	for _, v := range values {
		if v > 0 {
			n++
		}
	}
	return n
}
