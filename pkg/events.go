package deltat

import "fmt"

const (
	// InvalidIndex marks the slot of a word that carried no valid timestamp.
	InvalidIndex int8 = -1
	// SentinelIndex marks the end of an acquisition cycle.
	SentinelIndex int8 = -2

	InvalidTimestamp  float64 = -1
	SentinelTimestamp float64 = -2
)

type Record struct {
	Index     int8
	Timestamp float64
}

func (r Record) Valid() bool {
	return r.Index >= 0
}

func (r Record) Sentinel() bool {
	return r.Index == SentinelIndex
}

type ChannelRecords struct {
	Channel int
	Records []Record
}

// PixelSeries extracts the valid rows of one intra-channel pixel.
func (c ChannelRecords) PixelSeries(index int) Series {
	var series Series
	for row, record := range c.Records {
		if int(record.Index) == index {
			series.Rows = append(series.Rows, row)
			series.Values = append(series.Values, record.Timestamp)
		}
	}
	return series
}

// Series is the ordered list of valid timestamps of one pixel, together
// with the rows they occupy in their channel array.
type Series struct {
	Rows   []int
	Values []float64
}

func (s Series) Len() int {
	return len(s.Values)
}

type UnpackStats struct {
	Cycles         int
	ValidWords     int
	InvalidWords   int
	MalformedWords int
	TruncatedWords int
	TrailingBytes  int
	MissingTDC     int
	MissingOffset  int
}

func (s *UnpackStats) Add(other UnpackStats) {
	s.Cycles += other.Cycles
	s.ValidWords += other.ValidWords
	s.InvalidWords += other.InvalidWords
	s.MalformedWords += other.MalformedWords
	s.TruncatedWords += other.TruncatedWords
	s.TrailingBytes += other.TrailingBytes
	s.MissingTDC += other.MissingTDC
	s.MissingOffset += other.MissingOffset
}

type UnpackedFile struct {
	Path       string
	Channels   []ChannelRecords
	Boundaries []int
	Stats      UnpackStats
}

// PixelPair is ordered: differences are Second - First.
type PixelPair struct {
	First  int
	Second int
}

func (p PixelPair) String() string {
	return fmt.Sprintf("%d,%d", p.First, p.Second)
}

// Skip reports pairs that are not computed so each symmetric pair is only
// counted once.
func (p PixelPair) Skip() bool {
	return p.Second <= p.First
}

// DifferenceSet holds the differences of one pixel pair in one file.
// Timestamps1 and Timestamps2 only count timestamps above zero: a valid
// word pushed to zero or below by its offset still takes part in the
// differences but not in the counts used for cross-talk.
type DifferenceSet struct {
	File        string
	Pair        PixelPair
	Deltas      []float64
	Timestamps1 int
	Timestamps2 int
}
