package deltat

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	humanize "github.com/dustin/go-humanize"
)

// DiscoverFiles lists the data files in dir matching pattern, sorted by
// name so that runs over the same directory are reproducible.
func DiscoverFiles(dir string, pattern string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("error listing %q: %w", dir, err)
	}
	regular := files[:0]
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil || info.IsDir() {
			continue
		}
		regular = append(regular, file)
	}
	sort.Strings(regular)
	return regular, nil
}

// ReadDataFile reads a whole acquisition file. The handle is released on
// every return path.
func ReadDataFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ErrOpenFile{Filename: path, Err: err}
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("error getting file info of %q: %w", path, err)
	}
	data := make([]byte, fileInfo.Size())
	nRead, err := io.ReadFull(file, data)
	if err != nil {
		return nil, fmt.Errorf("error reading %q (%d of %d bytes): %w", path, nRead, len(data), err)
	}
	return data, nil
}

// FileUnpacker turns one acquisition file into per-channel records.
type FileUnpacker interface {
	UnpackFile(path string) (*UnpackedFile, error)
}

type binaryUnpacker struct {
	pixelMap    *PixelMap
	calibration *CalibrationTable
	options     UnpackOptions
	verbosity   int
}

func NewFileUnpacker(pixelMap *PixelMap, calibration *CalibrationTable, options UnpackOptions,
	verbosity int) FileUnpacker {
	return &binaryUnpacker{
		pixelMap:    pixelMap,
		calibration: calibration,
		options:     options,
		verbosity:   verbosity,
	}
}

func (u *binaryUnpacker) UnpackFile(path string) (*UnpackedFile, error) {
	data, err := ReadDataFile(path)
	if err != nil {
		return nil, err
	}
	if u.verbosity > 1 {
		message := fmt.Sprintf("Unpacking %s (%s)", filepath.Base(path), humanize.Bytes(uint64(len(data))))
		logger.Info(message, "fileReader")
	}

	channels, stats, err := Unpack(data, u.pixelMap, u.calibration, u.options)
	if err != nil {
		return nil, fmt.Errorf("error unpacking %q: %w", path, err)
	}

	unpacked := &UnpackedFile{
		Path:     path,
		Channels: channels,
		Stats:    stats,
	}
	if len(channels) > 0 {
		unpacked.Boundaries = CycleBoundaries(channels[0].Records)
	} else {
		unpacked.Boundaries = []int{0}
	}

	if stats.TruncatedWords > 0 || stats.TrailingBytes > 0 {
		message := fmt.Sprintf("%s: ignoring %d words and %d bytes after the last complete cycle",
			filepath.Base(path), stats.TruncatedWords, stats.TrailingBytes)
		logger.Info(message, "fileReader")
	}
	if u.verbosity > 1 && stats.MalformedWords > 0 {
		message := fmt.Sprintf("%s: %d malformed words excluded", filepath.Base(path), stats.MalformedWords)
		logger.Info(message, "fileReader")
	}
	return unpacked, nil
}
