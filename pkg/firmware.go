package deltat

import (
	"encoding/json"
)

// FirmwareRevision selects the pixel-to-channel layout of the sensor.
type FirmwareRevision int

const (
	// RowMajor is firmware 2212b: four consecutive pixels per TDC channel.
	RowMajor FirmwareRevision = iota
	// ColumnMajor is firmware 2212s: pixels are interleaved across channels.
	ColumnMajor
)

var firmwareStrings = []string{
	"2212b",
	"2212s",
}

func ParseFirmwareRevision(tag string) (FirmwareRevision, error) {
	for i, v := range firmwareStrings {
		if v == tag {
			return FirmwareRevision(i), nil
		}
	}
	return 0, &ErrUnrecognizedFirmware{Tag: tag}
}

func (f FirmwareRevision) String() string {
	if f < RowMajor || f > ColumnMajor {
		return "UNKNOWN"
	}
	return firmwareStrings[f]
}

func (f FirmwareRevision) Valid() bool {
	switch f {
	case RowMajor, ColumnMajor:
		return true
	default:
		return false
	}
}

func (f FirmwareRevision) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *FirmwareRevision) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &ErrUnrecognizedFirmware{Tag: string(data)}
	}
	revision, err := ParseFirmwareRevision(s)
	if err != nil {
		return err
	}
	*f = revision
	return nil
}
