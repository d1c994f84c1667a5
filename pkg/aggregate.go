package deltat

import (
	"path/filepath"
	"sort"
)

// SummaryRow is one line of the per-file cross-talk table.
type SummaryRow struct {
	File        string
	Pixel1      int
	Pixel2      int
	Timestamps1 int
	Timestamps2 int
	Deltas      int
	CrossTalk   float64
}

type PairAggregate struct {
	Pair        PixelPair
	Timestamps1 int
	Timestamps2 int
	DeltaCount  int
	Deltas      []float64
	Files       int
}

type FileFailure struct {
	File string
	Err  error
}

// FileResult is the self-contained output of one file: one difference set
// per computed pair.
type FileResult struct {
	File  string
	Sets  []DifferenceSet
	Stats UnpackStats
	Err   error
}

type AggregatedResult struct {
	RunID    string
	Files    []string
	Pairs    map[PixelPair]*PairAggregate
	Summary  []SummaryRow
	Failures []FileFailure
	Stats    UnpackStats
	Cached   bool
	Artifact string
}

func NewAggregatedResult(runID string) *AggregatedResult {
	return &AggregatedResult{
		RunID: runID,
		Pairs: make(map[PixelPair]*PairAggregate),
	}
}

// Merge folds one file into the result. It must only be called from a
// single goroutine.
func (r *AggregatedResult) Merge(result FileResult) {
	if result.Err != nil {
		r.Failures = append(r.Failures, FileFailure{File: result.File, Err: result.Err})
		return
	}
	r.Files = append(r.Files, result.File)
	r.Stats.Add(result.Stats)

	for _, set := range result.Sets {
		aggregate, ok := r.Pairs[set.Pair]
		if !ok {
			aggregate = &PairAggregate{Pair: set.Pair, Deltas: []float64{}}
			r.Pairs[set.Pair] = aggregate
		}
		aggregate.Timestamps1 += set.Timestamps1
		aggregate.Timestamps2 += set.Timestamps2
		aggregate.DeltaCount += len(set.Deltas)
		aggregate.Deltas = append(aggregate.Deltas, set.Deltas...)
		aggregate.Files++

		r.Summary = append(r.Summary, SummaryRow{
			File:        filepath.Base(set.File),
			Pixel1:      set.Pair.First,
			Pixel2:      set.Pair.Second,
			Timestamps1: set.Timestamps1,
			Timestamps2: set.Timestamps2,
			Deltas:      len(set.Deltas),
			CrossTalk:   CrossTalkRate(len(set.Deltas), set.Timestamps1, set.Timestamps2),
		})
	}
}

// SortedPairs returns the aggregated pairs ordered by first then second
// pixel.
func (r *AggregatedResult) SortedPairs() []*PairAggregate {
	pairs := make([]*PairAggregate, 0, len(r.Pairs))
	for _, aggregate := range r.Pairs {
		pairs = append(pairs, aggregate)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Pair.First != pairs[j].Pair.First {
			return pairs[i].Pair.First < pairs[j].Pair.First
		}
		return pairs[i].Pair.Second < pairs[j].Pair.Second
	})
	return pairs
}

// ReferencePairs pairs the first pixel with each of the others, the
// selection used for cross-talk measurements.
func ReferencePairs(pixels []int) []PixelPair {
	if len(pixels) < 2 {
		return nil
	}
	pairs := make([]PixelPair, 0, len(pixels)-1)
	for _, pixel := range pixels[1:] {
		pairs = append(pairs, PixelPair{First: pixels[0], Second: pixel})
	}
	return pairs
}

// GridPairs pairs every pixel of left with every pixel of right.
func GridPairs(left []int, right []int) []PixelPair {
	pairs := make([]PixelPair, 0, len(left)*len(right))
	for _, p1 := range left {
		for _, p2 := range right {
			pairs = append(pairs, PixelPair{First: p1, Second: p2})
		}
	}
	return pairs
}
