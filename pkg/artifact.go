package deltat

import (
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ArtifactKey identifies the output of one run: the input file set, every
// configuration value that changes the differences and the content of the
// lookup tables.
type ArtifactKey struct {
	FirstFile   string
	LastFile    string
	Fingerprint uint64
}

// NewArtifactKey builds the key of a run. lookup is the LookupFingerprint
// of the calibration table and mask the run uses.
func NewArtifactKey(files []string, config Configuration, pairs []PixelPair, lookup uint64) ArtifactKey {
	names := make([]string, len(files))
	for i, file := range files {
		names[i] = filepath.Base(file)
	}
	sort.Strings(names)

	digest := xxhash.New()
	write := func(values ...string) {
		for _, v := range values {
			digest.WriteString(v)
			digest.WriteString("\x00")
		}
	}
	write(names...)
	write(
		config.DaughterboardNumber,
		config.MotherboardNumber,
		config.FirmwareVersion.String(),
		strconv.Itoa(config.PixelCount),
		strconv.Itoa(config.PixelsPerChannel),
		strconv.Itoa(config.TimestampsPerCycle),
		strconv.FormatFloat(config.DeltaWindow, 'g', -1, 64),
		strconv.FormatBool(config.ApplyTDCCalibration),
		strconv.FormatBool(config.ApplyOffsetCalibration),
		strconv.FormatBool(config.ApplyMask),
		strconv.FormatBool(config.NoDB),
		strconv.FormatUint(lookup, 16),
	)
	for _, pair := range pairs {
		write(pair.String())
	}

	key := ArtifactKey{Fingerprint: digest.Sum64()}
	if len(names) > 0 {
		key.FirstFile = names[0]
		key.LastFile = names[len(names)-1]
	}
	return key
}

// LookupFingerprint hashes the calibration values and masked pixels. Maps
// are walked in key order so equal tables give equal fingerprints.
func LookupFingerprint(calibration *CalibrationTable, mask []int) uint64 {
	digest := xxhash.New()
	var buf []byte
	writeInt := func(v int) {
		buf = binary.LittleEndian.AppendUint64(buf[:0], uint64(v))
		digest.Write(buf)
	}
	writeFloat := func(v float64) {
		buf = binary.LittleEndian.AppendUint64(buf[:0], math.Float64bits(v))
		digest.Write(buf)
	}

	if calibration == nil {
		calibration = NewCalibrationTable()
	}
	{
		channels := make([]int, 0, len(calibration.TDC))
		for channel := range calibration.TDC {
			channels = append(channels, channel)
		}
		sort.Ints(channels)
		digest.WriteString("tdc")
		for _, channel := range channels {
			writeInt(channel)
			writeInt(len(calibration.TDC[channel]))
			for _, value := range calibration.TDC[channel] {
				writeFloat(value)
			}
		}

		pixels := make([]int, 0, len(calibration.Offsets))
		for pixel := range calibration.Offsets {
			pixels = append(pixels, pixel)
		}
		sort.Ints(pixels)
		digest.WriteString("offsets")
		for _, pixel := range pixels {
			writeInt(pixel)
			writeFloat(calibration.Offsets[pixel])
		}
	}

	masked := append([]int(nil), mask...)
	sort.Ints(masked)
	digest.WriteString("mask")
	previous := math.MinInt
	for _, pixel := range masked {
		if pixel == previous {
			continue
		}
		writeInt(pixel)
		previous = pixel
	}
	return digest.Sum64()
}

// Name is the artifact base name, "<first>-<last>_<fingerprint>".
func (k ArtifactKey) Name() string {
	return fmt.Sprintf("%s-%s_%016x", trimDataExtension(k.FirstFile), trimDataExtension(k.LastFile), k.Fingerprint)
}

func trimDataExtension(name string) string {
	if i := strings.Index(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

// ArtifactStore persists run results and tells whether a run was already
// written.
type ArtifactStore interface {
	Path(key ArtifactKey) string
	Exists(key ArtifactKey) (bool, error)
	Save(key ArtifactKey, result *AggregatedResult) error
}
