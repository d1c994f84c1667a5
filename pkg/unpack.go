package deltat

import (
	"encoding/binary"
	"fmt"
)

const (
	WordSize = 4

	validBit      = 0x80000000
	reservedBit   = 0x40000000
	addressShift  = 28
	addressMask   = 0x3
	timestampMask = 0x0FFFFFFF
)

type WordKind int

const (
	WordValid WordKind = iota
	WordInvalid
	WordMalformed
)

// RawWord is one 32-bit little-endian word of an acquisition file.
//
//	bit 31      valid flag
//	bit 30      reserved, always 0
//	bits 28-29  pixel address inside the TDC channel
//	bits 0-27   timestamp code in TDC bins
type RawWord uint32

func (w RawWord) Decode(pixelsPerChannel int) (int, uint32, WordKind) {
	if w&validBit == 0 {
		return -1, 0, WordInvalid
	}
	if w&reservedBit != 0 {
		return -1, 0, WordMalformed
	}
	index := int((w >> addressShift) & addressMask)
	if index >= pixelsPerChannel {
		return -1, 0, WordMalformed
	}
	return index, uint32(w & timestampMask), WordValid
}

// EncodeWord builds a valid data word.
func EncodeWord(index int, code uint32) RawWord {
	return RawWord(validBit | (uint32(index)&addressMask)<<addressShift | code&timestampMask)
}

type UnpackOptions struct {
	TimestampsPerCycle int
	ApplyTDC           bool
	ApplyOffset        bool
}

// Unpack splits an acquisition file into one record array per TDC channel.
//
// Each cycle holds Channels()+1 lanes of TimestampsPerCycle words. The last
// lane carries no pixel data and is dropped. Every lane block is followed
// by a sentinel row, so all channels share the same row offsets and cycle
// boundaries. Invalid and malformed words keep their row as a placeholder
// and never reach a series.
func Unpack(data []byte, pixelMap *PixelMap, calibration *CalibrationTable,
	options UnpackOptions) ([]ChannelRecords, UnpackStats, error) {
	var stats UnpackStats
	if pixelMap == nil {
		return nil, stats, fmt.Errorf("unpack: pixel map is required")
	}
	if options.TimestampsPerCycle <= 0 {
		return nil, stats, &ErrInvalidConfiguration{Field: "timestamps_per_cycle", Reason: "must be positive"}
	}

	channels := pixelMap.Channels()
	lanes := channels + 1
	tpc := options.TimestampsPerCycle
	cycleWords := lanes * tpc

	nWords := len(data) / WordSize
	cycles := nWords / cycleWords
	stats.Cycles = cycles
	stats.TruncatedWords = nWords - cycles*cycleWords
	stats.TrailingBytes = len(data) % WordSize

	records := make([]ChannelRecords, channels)
	for ch := range records {
		records[ch] = ChannelRecords{
			Channel: ch,
			Records: make([]Record, 0, cycles*(tpc+1)),
		}
	}

	for cycle := 0; cycle < cycles; cycle++ {
		for ch := 0; ch < channels; ch++ {
			start := (cycle*lanes + ch) * tpc
			for k := 0; k < tpc; k++ {
				offset := (start + k) * WordSize
				word := RawWord(binary.LittleEndian.Uint32(data[offset : offset+WordSize]))
				records[ch].Records = append(records[ch].Records,
					decodeRecord(word, ch, pixelMap, calibration, options, &stats))
			}
			records[ch].Records = append(records[ch].Records,
				Record{Index: SentinelIndex, Timestamp: SentinelTimestamp})
		}
	}
	return records, stats, nil
}

func decodeRecord(word RawWord, channel int, pixelMap *PixelMap, calibration *CalibrationTable,
	options UnpackOptions, stats *UnpackStats) Record {
	index, code, kind := word.Decode(pixelMap.PixelsPerChannel)
	switch kind {
	case WordInvalid:
		stats.InvalidWords++
		return Record{Index: InvalidIndex, Timestamp: InvalidTimestamp}
	case WordMalformed:
		stats.MalformedWords++
		return Record{Index: InvalidIndex, Timestamp: InvalidTimestamp}
	}

	stats.ValidWords++
	pixel, _ := pixelMap.Pixel(channel, index)
	timestamp, miss := calibration.Calibrate(channel, pixel, code, options.ApplyTDC, options.ApplyOffset)
	if miss&MissingTDC != 0 {
		stats.MissingTDC++
	}
	if miss&MissingOffset != 0 {
		stats.MissingOffset++
	}
	return Record{Index: int8(index), Timestamp: timestamp}
}
