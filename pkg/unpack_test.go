package deltat

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// acquisition builds raw files cycle by cycle. Unset slots stay zero, which
// decodes as an invalid word.
type acquisition struct {
	channels int
	tpc      int
	words    [][]RawWord
}

func newAcquisition(channels int, tpc int, cycles int) *acquisition {
	a := &acquisition{channels: channels, tpc: tpc}
	for i := 0; i < cycles; i++ {
		a.words = append(a.words, make([]RawWord, (channels+1)*tpc))
	}
	return a
}

func (a *acquisition) set(cycle int, lane int, slot int, word RawWord) *acquisition {
	a.words[cycle][lane*a.tpc+slot] = word
	return a
}

func (a *acquisition) bytes() []byte {
	var data []byte
	for _, cycle := range a.words {
		for _, word := range cycle {
			data = binary.LittleEndian.AppendUint32(data, uint32(word))
		}
	}
	return data
}

func (a *acquisition) write(t *testing.T, dir string, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, a.bytes(), 0o644))
	return path
}

func testPixelMap(t *testing.T) *PixelMap {
	t.Helper()
	pixelMap, err := NewPixelMap(RowMajor, 8, 4)
	require.NoError(t, err)
	return pixelMap
}

func TestDecodeWord(t *testing.T) {
	index, code, kind := EncodeWord(2, 12345).Decode(4)
	assert.Equal(t, WordValid, kind)
	assert.Equal(t, 2, index)
	assert.Equal(t, uint32(12345), code)

	_, _, kind = RawWord(12345).Decode(4)
	assert.Equal(t, WordInvalid, kind)

	_, _, kind = (EncodeWord(1, 7) | reservedBit).Decode(4)
	assert.Equal(t, WordMalformed, kind)

	_, _, kind = EncodeWord(3, 7).Decode(2)
	assert.Equal(t, WordMalformed, kind, "address beyond pixels per channel")

	_, code, _ = EncodeWord(0, 0xFFFFFFFF).Decode(4)
	assert.Equal(t, uint32(timestampMask), code)
}

func TestUnpackTwoChannelsThreeCycles(t *testing.T) {
	pixelMap := testPixelMap(t)
	data := newAcquisition(2, 4, 3).
		set(0, 0, 0, EncodeWord(0, 100)).
		set(0, 0, 1, EncodeWord(1, 200)).
		set(0, 1, 0, EncodeWord(3, 300)).
		set(0, 2, 0, EncodeWord(0, 999)).
		set(1, 1, 2, EncodeWord(2, 400)).
		set(2, 0, 3, EncodeWord(0, 500)).
		bytes()

	channels, stats, err := Unpack(data, pixelMap, nil, UnpackOptions{TimestampsPerCycle: 4})
	require.NoError(t, err)
	require.Len(t, channels, 2)

	for _, channel := range channels {
		require.Len(t, channel.Records, 3*(4+1))
		sentinels := 0
		for _, record := range channel.Records {
			if record.Sentinel() {
				sentinels++
			}
		}
		assert.Equal(t, 3, sentinels, "channel %d", channel.Channel)
		assert.Equal(t, []int{0, 4, 9, 14}, CycleBoundaries(channel.Records))
	}

	assert.Equal(t, Record{Index: 0, Timestamp: 100}, channels[0].Records[0])
	assert.Equal(t, Record{Index: 1, Timestamp: 200}, channels[0].Records[1])
	assert.Equal(t, Record{Index: InvalidIndex, Timestamp: InvalidTimestamp}, channels[0].Records[2])
	assert.Equal(t, Record{Index: 0, Timestamp: 500}, channels[0].Records[13])
	assert.Equal(t, Record{Index: 3, Timestamp: 300}, channels[1].Records[0])
	assert.Equal(t, Record{Index: 2, Timestamp: 400}, channels[1].Records[7])

	// The housekeeping lane never reaches the records.
	for _, channel := range channels {
		for _, record := range channel.Records {
			assert.NotEqual(t, float64(999), record.Timestamp)
		}
	}

	assert.Equal(t, 3, stats.Cycles)
	assert.Equal(t, 5, stats.ValidWords)
	assert.Equal(t, 3*2*4-5, stats.InvalidWords)
	assert.Zero(t, stats.TruncatedWords)
}

func TestUnpackMalformedWords(t *testing.T) {
	pixelMap := testPixelMap(t)
	data := newAcquisition(2, 4, 1).
		set(0, 0, 0, EncodeWord(0, 100)|reservedBit).
		set(0, 0, 1, EncodeWord(0, 200)).
		bytes()

	channels, stats, err := Unpack(data, pixelMap, nil, UnpackOptions{TimestampsPerCycle: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MalformedWords)
	assert.Equal(t, 1, stats.ValidWords)
	assert.False(t, channels[0].Records[0].Valid())

	series := channels[0].PixelSeries(0)
	assert.Equal(t, Series{Rows: []int{1}, Values: []float64{200}}, series)
}

func TestUnpackTruncatedInput(t *testing.T) {
	pixelMap := testPixelMap(t)
	data := newAcquisition(2, 4, 2).set(1, 0, 0, EncodeWord(0, 100)).bytes()
	data = append(data, make([]byte, 5*WordSize+2)...)

	channels, stats, err := Unpack(data, pixelMap, nil, UnpackOptions{TimestampsPerCycle: 4})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Cycles)
	assert.Equal(t, 5, stats.TruncatedWords)
	assert.Equal(t, 2, stats.TrailingBytes)
	assert.Len(t, channels[0].Records, 2*5)

	_, stats, err = Unpack(data[:7], pixelMap, nil, UnpackOptions{TimestampsPerCycle: 4})
	require.NoError(t, err)
	assert.Zero(t, stats.Cycles)
	assert.Equal(t, 1, stats.TruncatedWords)
}

func TestUnpackCalibrated(t *testing.T) {
	pixelMap := testPixelMap(t)
	calibration := NewCalibrationTable()
	calibration.TDC[1] = make([]float64, TDCBins)
	calibration.TDC[1][5] = 90
	calibration.Offsets[5] = 40

	// pixel 5 is channel 1, index 1
	data := newAcquisition(2, 4, 1).
		set(0, 1, 0, EncodeWord(1, 2*TDCBins+5)).
		set(0, 0, 0, EncodeWord(0, 5)).
		bytes()

	channels, stats, err := Unpack(data, pixelMap, calibration,
		UnpackOptions{TimestampsPerCycle: 4, ApplyTDC: true, ApplyOffset: true})
	require.NoError(t, err)
	assert.Equal(t, 2*ClockPeriod+90-40, channels[1].Records[0].Timestamp)
	assert.InDelta(t, 5*NominalBinWidth, channels[0].Records[0].Timestamp, 1e-9)
	assert.Equal(t, 1, stats.MissingTDC)
	assert.Equal(t, 1, stats.MissingOffset)
}

func TestUnpackRejectsBadOptions(t *testing.T) {
	_, _, err := Unpack(nil, testPixelMap(t), nil, UnpackOptions{})
	var configErr *ErrInvalidConfiguration
	require.ErrorAs(t, err, &configErr)

	_, _, err = Unpack(nil, nil, nil, UnpackOptions{TimestampsPerCycle: 4})
	require.Error(t, err)
}

func TestUnpackFileFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := newAcquisition(2, 4, 2).
		set(0, 0, 0, EncodeWord(0, 10)).
		set(1, 1, 0, EncodeWord(0, 20)).
		write(t, dir, "0000000001.dat")

	unpacker := NewFileUnpacker(testPixelMap(t), nil, UnpackOptions{TimestampsPerCycle: 4}, 0)
	file, err := unpacker.UnpackFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, file.Path)
	assert.Equal(t, []int{0, 4, 9}, file.Boundaries)
	assert.Equal(t, 2, file.Stats.ValidWords)

	_, err = unpacker.UnpackFile(filepath.Join(dir, "missing.dat"))
	var openErr *ErrOpenFile
	require.ErrorAs(t, err, &openErr)
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0000000003.dat", "0000000001.dat", "notes.txt", "0000000002.dat.gz"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "skip.dat"), 0o755))

	files, err := DiscoverFiles(dir, "*.dat*")
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "0000000001.dat"),
		filepath.Join(dir, "0000000002.dat.gz"),
		filepath.Join(dir, "0000000003.dat"),
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("DiscoverFiles mismatch (-want +got):\n%s", diff)
	}
}
