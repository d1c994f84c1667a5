package deltat

// CycleBoundaries returns the row offsets separating acquisition cycles:
// 0 followed by the row of every sentinel. Cycle i spans
// [boundaries[i], boundaries[i+1]).
func CycleBoundaries(records []Record) []int {
	boundaries := []int{0}
	for row, record := range records {
		if record.Sentinel() {
			boundaries = append(boundaries, row)
		}
	}
	return boundaries
}

type CycleRange struct {
	Start int
	End   int
}

func CycleRanges(boundaries []int) []CycleRange {
	if len(boundaries) < 2 {
		return nil
	}
	ranges := make([]CycleRange, 0, len(boundaries)-1)
	for i := 0; i+1 < len(boundaries); i++ {
		ranges = append(ranges, CycleRange{Start: boundaries[i], End: boundaries[i+1]})
	}
	return ranges
}
