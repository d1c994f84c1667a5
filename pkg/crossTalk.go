package deltat

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CrossTalkRate is the percentage of coincidences over the valid
// timestamps of both pixels.
func CrossTalkRate(deltas int, timestamps1 int, timestamps2 int) float64 {
	total := timestamps1 + timestamps2
	if total == 0 {
		return 0
	}
	return float64(deltas) * 100 / float64(total)
}

// CrossTalkPoint is the average cross-talk at one pixel distance. StdErr
// is NaN when only one file contributed.
type CrossTalkPoint struct {
	Distance int
	Mean     float64
	StdErr   float64
	Samples  int
}

// CrossTalkByDistance averages the cross-talk of every pair starting at
// pixel over all files, keyed by the distance to the second pixel.
func CrossTalkByDistance(rows []SummaryRow, pixel int) []CrossTalkPoint {
	byPixel := make(map[int][]float64)
	for _, row := range rows {
		if row.Pixel1 != pixel || row.Pixel2 <= pixel {
			continue
		}
		byPixel[row.Pixel2] = append(byPixel[row.Pixel2], row.CrossTalk)
	}

	points := make([]CrossTalkPoint, 0, len(byPixel))
	for pixel2, values := range byPixel {
		point := CrossTalkPoint{
			Distance: pixel2 - pixel,
			Mean:     stat.Mean(values, nil),
			StdErr:   math.NaN(),
			Samples:  len(values),
		}
		if len(values) > 1 {
			point.StdErr = stat.StdErr(stat.StdDev(values, nil), float64(len(values)))
		}
		points = append(points, point)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Distance < points[j].Distance
	})
	return points
}

type DeltaSummary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

func SummarizeDeltas(deltas []float64) DeltaSummary {
	summary := DeltaSummary{Count: len(deltas)}
	if len(deltas) == 0 {
		return summary
	}
	summary.Min = floats.Min(deltas)
	summary.Max = floats.Max(deltas)
	summary.Mean, summary.StdDev = stat.MeanStdDev(deltas, nil)
	return summary
}
