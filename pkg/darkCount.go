package deltat

import (
	"context"
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
)

// CountValidTimestamps counts the valid timestamps of every pixel over all
// files. Timestamps are not calibrated, only their validity matters.
// Files that cannot be read are logged and left out of the counts; the
// number of files actually counted is returned with the counts.
func CountValidTimestamps(ctx context.Context, files []string, config Configuration) ([]int, int, error) {
	if err := config.Validate(); err != nil {
		return nil, 0, err
	}
	pixelMap, err := NewPixelMap(config.FirmwareVersion, config.PixelCount, config.PixelsPerChannel)
	if err != nil {
		return nil, 0, err
	}
	options := UnpackOptions{TimestampsPerCycle: config.TimestampsPerCycle}
	unpacker := NewFileUnpacker(pixelMap, nil, options, config.Verbosity)

	validPerPixel := make([]int, pixelMap.PixelCount)
	counted := 0
	process := func(path string) ([]int, error) {
		file, err := unpacker.UnpackFile(path)
		if err != nil {
			return nil, err
		}
		return validTimestampsPerPixel(file, pixelMap), nil
	}
	collect := func(outcome workerOutcome[[]int]) {
		if outcome.Err != nil {
			message := fmt.Errorf("skipping file %s: %w", filepath.Base(outcome.Path), outcome.Err)
			logger.Error(message.Error())
			return
		}
		for pixel, count := range outcome.Value {
			validPerPixel[pixel] += count
		}
		counted++
	}
	err = processFiles(ctx, files, config.NumWorkers, config.Verbosity, process, collect)
	return validPerPixel, counted, err
}

func validTimestampsPerPixel(file *UnpackedFile, pixelMap *PixelMap) []int {
	counts := make([]int, pixelMap.PixelCount)
	for _, channel := range file.Channels {
		for _, record := range channel.Records {
			if !record.Valid() {
				continue
			}
			if pixel, ok := pixelMap.Pixel(channel.Channel, int(record.Index)); ok {
				counts[pixel]++
			}
		}
	}
	return counts
}

// DarkCountRate is the average number of valid timestamps per pixel per
// file, with masked (hot) pixels set to zero.
func DarkCountRate(validPerPixel []int, mask []int, files int) float64 {
	if files == 0 || len(validPerPixel) == 0 {
		return 0
	}
	values := make([]float64, len(validPerPixel))
	for pixel, count := range validPerPixel {
		values[pixel] = float64(count)
	}
	for _, pixel := range mask {
		if pixel >= 0 && pixel < len(values) {
			values[pixel] = 0
		}
	}
	return stat.Mean(values, nil) / float64(files)
}
