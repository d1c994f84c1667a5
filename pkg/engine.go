package deltat

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Engine computes windowed timestamp differences over a set of files.
type Engine struct {
	config      Configuration
	pixelMap    *PixelMap
	calibration *CalibrationTable
	masked      map[int]bool
	lookup      uint64
	store       ArtifactStore

	// Unpacker is replaceable so a run can be traced or fed from memory.
	Unpacker FileUnpacker
}

// NewEngine validates the configuration and prepares the shared lookup
// tables. Every fatal configuration error is returned here, before any data
// file is opened. A nil calibration table means no table was loaded and all
// lookups fall back to zero correction. store may be nil to disable caching.
func NewEngine(config Configuration, calibration *CalibrationTable, mask []int,
	store ArtifactStore) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	pixelMap, err := NewPixelMap(config.FirmwareVersion, config.PixelCount, config.PixelsPerChannel)
	if err != nil {
		return nil, err
	}
	if calibration == nil {
		calibration = NewCalibrationTable()
	}
	if config.ApplyOffsetCalibration && !config.ApplyTDCCalibration {
		logger.Info("Offset calibration needs the TDC calibration, offsets not applied", "engine")
		config.ApplyOffsetCalibration = false
	}

	masked := make(map[int]bool)
	var maskedPixels []int
	if config.ApplyMask {
		maskedPixels = mask
		for _, pixel := range mask {
			masked[pixel] = true
		}
	}

	return &Engine{
		config:      config,
		pixelMap:    pixelMap,
		calibration: calibration,
		masked:      masked,
		lookup:      LookupFingerprint(calibration, maskedPixels),
		store:       store,
		Unpacker:    NewFileUnpacker(pixelMap, calibration, config.UnpackOptions(), config.Verbosity),
	}, nil
}

func (e *Engine) PixelMap() *PixelMap {
	return e.pixelMap
}

func (e *Engine) Configuration() Configuration {
	return e.config
}

// ArtifactKey is the key under which a run over files and pairs is stored.
func (e *Engine) ArtifactKey(files []string, pairs []PixelPair) ArtifactKey {
	return NewArtifactKey(files, e.config, uniquePairs(pairs), e.lookup)
}

// uniquePairs drops repeated pairs, keeping the first occurrence.
func uniquePairs(pairs []PixelPair) []PixelPair {
	seen := make(map[PixelPair]bool, len(pairs))
	unique := make([]PixelPair, 0, len(pairs))
	for _, pair := range pairs {
		if seen[pair] {
			continue
		}
		seen[pair] = true
		unique = append(unique, pair)
	}
	return unique
}

// Run processes every file independently and merges the per-file results.
// An existing artifact for the same files and configuration is reused
// unless Rewrite is set.
func (e *Engine) Run(ctx context.Context, files []string, pairs []PixelPair) (*AggregatedResult, error) {
	result := NewAggregatedResult(uuid.NewString())
	pairs = uniquePairs(pairs)
	for _, pair := range pairs {
		for _, pixel := range []int{pair.First, pair.Second} {
			if _, err := e.pixelMap.Map(pixel); err != nil {
				return nil, err
			}
		}
	}
	if len(files) == 0 {
		logger.Info("No data files to process", "engine")
		return result, nil
	}

	key := e.ArtifactKey(files, pairs)
	if e.store != nil {
		result.Artifact = e.store.Path(key)
		if !e.config.Rewrite {
			exists, err := e.store.Exists(key)
			if err != nil {
				return nil, fmt.Errorf("error checking artifact %s: %w", result.Artifact, err)
			}
			if exists {
				message := fmt.Sprintf("Run %s: %s already exists, set rewrite to recompute",
					result.RunID, result.Artifact)
				logger.Info(message, "engine")
				result.Cached = true
				return result, nil
			}
		}
	}

	if e.config.Verbosity > 0 {
		message := fmt.Sprintf("Run %s: %d files, %d pixel pairs, %d workers",
			result.RunID, len(files), len(pairs), e.config.NumWorkers)
		logger.Info(message, "engine")
	}

	start := time.Now()
	process := func(path string) (FileResult, error) {
		return e.processFile(path, pairs)
	}
	collect := func(outcome workerOutcome[FileResult]) {
		fileResult := outcome.Value
		fileResult.File = outcome.Path
		if outcome.Err != nil {
			fileResult.Err = outcome.Err
			message := fmt.Errorf("skipping file %s: %w", filepath.Base(outcome.Path), outcome.Err)
			logger.Error(message.Error())
		}
		result.Merge(fileResult)
	}
	err := processFiles(ctx, files, e.config.NumWorkers, e.config.Verbosity, process, collect)
	e.logRunSummary(result, time.Since(start))
	if err != nil {
		return result, fmt.Errorf("run %s interrupted after %d files: %w", result.RunID, len(result.Files), err)
	}

	if e.store != nil {
		if len(result.Failures) > 0 {
			message := fmt.Sprintf("Run %s: %d files failed, %s not written so the next run retries them",
				result.RunID, len(result.Failures), result.Artifact)
			logger.Error(message)
			return result, nil
		}
		if err := e.store.Save(key, result); err != nil {
			return result, fmt.Errorf("error saving %s: %w", result.Artifact, err)
		}
	}
	return result, nil
}

// processFile only reads the shared lookup tables, so any number of calls
// can run concurrently.
func (e *Engine) processFile(path string, pairs []PixelPair) (FileResult, error) {
	file, err := e.Unpacker.UnpackFile(path)
	if err != nil {
		return FileResult{}, err
	}

	fileResult := FileResult{File: path, Stats: file.Stats}
	for _, pair := range pairs {
		if pair.Skip() {
			if e.config.Verbosity > 2 {
				logger.Info(fmt.Sprintf("Skipping pair %s: second pixel must exceed the first", pair), "engine")
			}
			continue
		}
		if e.masked[pair.First] || e.masked[pair.Second] {
			if e.config.Verbosity > 2 {
				logger.Info(fmt.Sprintf("Skipping pair %s: masked pixel", pair), "engine")
			}
			continue
		}

		set, err := PairDifferences(file, e.pixelMap, pair, e.config.DeltaWindow)
		if err != nil {
			return FileResult{}, err
		}
		if set.Timestamps1 == 0 {
			if e.config.Verbosity > 2 {
				message := fmt.Sprintf("%s: no valid timestamps in pixel %d, pair %s skipped",
					filepath.Base(path), pair.First, pair)
				logger.Info(message, "engine")
			}
			continue
		}
		fileResult.Sets = append(fileResult.Sets, set)
	}
	return fileResult, nil
}

func (e *Engine) logRunSummary(result *AggregatedResult, duration time.Duration) {
	stats := result.Stats
	if stats.MissingTDC > 0 || stats.MissingOffset > 0 {
		message := fmt.Sprintf("Run %s: %d timestamps without TDC calibration entry, %d without offset entry, zero correction applied",
			result.RunID, stats.MissingTDC, stats.MissingOffset)
		logger.Info(message, "calibration")
	}
	if stats.MalformedWords > 0 {
		message := fmt.Sprintf("Run %s: %d malformed words excluded", result.RunID, stats.MalformedWords)
		logger.Info(message, "engine")
	}
	if len(result.Failures) > 0 {
		message := fmt.Sprintf("Run %s: %d of %d files failed", result.RunID,
			len(result.Failures), len(result.Failures)+len(result.Files))
		logger.Error(message)
	}
	if e.config.Verbosity > 0 {
		message := fmt.Sprintf("Run %s: %d files processed in %d ms", result.RunID,
			len(result.Files), duration.Milliseconds())
		logger.Info(message, "engine")
		for _, aggregate := range result.SortedPairs() {
			summary := SummarizeDeltas(aggregate.Deltas)
			message := fmt.Sprintf("Pair %s: %d deltas, min %.1f, max %.1f, mean %.1f",
				aggregate.Pair, summary.Count, summary.Min, summary.Max, summary.Mean)
			logger.Info(message, "engine")
		}
	}
}
