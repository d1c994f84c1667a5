package deltat

const (
	TDCBins = 140
	// ClockPeriod is the TDC reference clock period in ps.
	ClockPeriod float64 = 2500
	// NominalBinWidth is the average TDC bin width in ps (~17.857).
	NominalBinWidth = ClockPeriod / TDCBins
)

// CalibrationTable holds the TDC fine-time table per channel and the
// per-pixel offsets. It is never modified once loaded, so workers share it
// without locking.
type CalibrationTable struct {
	// TDC maps a channel to the calibrated fine time (ps) of each bin.
	TDC map[int][]float64
	// Offsets maps a pixel to the delay (ps) subtracted from its timestamps.
	Offsets map[int]float64
}

func NewCalibrationTable() *CalibrationTable {
	return &CalibrationTable{
		TDC:     make(map[int][]float64),
		Offsets: make(map[int]float64),
	}
}

// CalibrationMiss flags lookups that fell back to a zero correction.
type CalibrationMiss uint8

const (
	MissingTDC CalibrationMiss = 1 << iota
	MissingOffset
)

// Calibrate converts a raw TDC code to a timestamp in ps. Without TDC
// calibration the code is returned unscaled. A missing table entry is a
// zero correction: the fine time falls back to the nominal bin width and
// the offset to 0. Every fallback is flagged in the returned mask.
func (c *CalibrationTable) Calibrate(channel int, pixel int, code uint32,
	applyTDC bool, applyOffset bool) (float64, CalibrationMiss) {
	if !applyTDC {
		return float64(code), 0
	}

	var miss CalibrationMiss
	bin := int(code % TDCBins)
	coarse := float64(code/TDCBins) * ClockPeriod
	fine := float64(bin) * NominalBinWidth

	var table []float64
	if c != nil {
		table = c.TDC[channel]
	}
	if bin < len(table) {
		fine = table[bin]
	} else {
		miss |= MissingTDC
	}
	timestamp := coarse + fine

	if applyOffset {
		var offset float64
		var ok bool
		if c != nil {
			offset, ok = c.Offsets[pixel]
		}
		if !ok {
			miss |= MissingOffset
		}
		timestamp -= offset
	}
	return timestamp, miss
}
