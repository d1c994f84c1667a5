package deltat

import "fmt"

const (
	DefaultPixelCount       = 256
	DefaultPixelsPerChannel = 4
	// The word format has two address bits per channel.
	maxPixelsPerChannel = 4
)

type PixelCoordinate struct {
	Channel int
	Index   int
}

// PixelMap is the bijection between logical pixel numbers and
// (TDC channel, intra-channel index) for one firmware revision.
type PixelMap struct {
	Firmware         FirmwareRevision
	PixelCount       int
	PixelsPerChannel int
	coordinates      []PixelCoordinate
	pixels           [][]int
}

func NewPixelMap(firmware FirmwareRevision, pixelCount int, pixelsPerChannel int) (*PixelMap, error) {
	if pixelsPerChannel <= 0 || pixelsPerChannel > maxPixelsPerChannel {
		return nil, &ErrInvalidConfiguration{Field: "pixels_per_channel",
			Reason: fmt.Sprintf("must be in [1, %d]", maxPixelsPerChannel)}
	}
	if pixelCount <= 0 || pixelCount%pixelsPerChannel != 0 {
		return nil, &ErrInvalidConfiguration{Field: "pixel_count",
			Reason: fmt.Sprintf("must be a positive multiple of %d", pixelsPerChannel)}
	}
	channels := pixelCount / pixelsPerChannel

	m := &PixelMap{
		Firmware:         firmware,
		PixelCount:       pixelCount,
		PixelsPerChannel: pixelsPerChannel,
		coordinates:      make([]PixelCoordinate, pixelCount),
		pixels:           make([][]int, channels),
	}
	for ch := range m.pixels {
		m.pixels[ch] = make([]int, pixelsPerChannel)
	}

	for pixel := 0; pixel < pixelCount; pixel++ {
		var coord PixelCoordinate
		switch firmware {
		case RowMajor:
			coord = PixelCoordinate{Channel: pixel / pixelsPerChannel, Index: pixel % pixelsPerChannel}
		case ColumnMajor:
			coord = PixelCoordinate{Channel: pixel % channels, Index: pixel / channels}
		default:
			return nil, &ErrUnrecognizedFirmware{Tag: firmware.String()}
		}
		m.coordinates[pixel] = coord
		m.pixels[coord.Channel][coord.Index] = pixel
	}
	return m, nil
}

// MapPixel resolves a pixel on the default 256-pixel sensor.
func MapPixel(pixel int, firmware FirmwareRevision) (PixelCoordinate, error) {
	m, err := NewPixelMap(firmware, DefaultPixelCount, DefaultPixelsPerChannel)
	if err != nil {
		return PixelCoordinate{}, err
	}
	return m.Map(pixel)
}

func (m *PixelMap) Map(pixel int) (PixelCoordinate, error) {
	if pixel < 0 || pixel >= m.PixelCount {
		return PixelCoordinate{}, &ErrPixelOutOfRange{Pixel: pixel, PixelCount: m.PixelCount}
	}
	return m.coordinates[pixel], nil
}

// Pixel is the inverse of Map.
func (m *PixelMap) Pixel(channel int, index int) (int, bool) {
	if channel < 0 || channel >= len(m.pixels) || index < 0 || index >= m.PixelsPerChannel {
		return 0, false
	}
	return m.pixels[channel][index], true
}

func (m *PixelMap) Channels() int {
	return len(m.pixels)
}
