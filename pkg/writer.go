package deltat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// Writer stores one run in an HDF5 file:
//
//	/run/info       run identification and file counts
//	/run/stats      summed unpacking counters
//	/run/failures   files that could not be processed
//	/summary/pairs  totals per pixel pair
//	/summary/files  per-file cross-talk table
//	/deltas/<p1,p2> all differences of a pair, in file order
type Writer struct {
	File             *hdf5.File
	Filename         string
	RunGroup         *hdf5.Group
	SummaryGroup     *hdf5.Group
	DeltasGroup      *hdf5.Group
	RunInfoTable     *hdf5.Dataset
	StatsTable       *hdf5.Dataset
	FailuresTable    *hdf5.Dataset
	PairsTable       *hdf5.Dataset
	FilesTable       *hdf5.Dataset
	DeltaArrays      []*hdf5.Dataset
	CompressionLevel int
}

func NewWriter(filename string, compressionLevel int) (*Writer, error) {
	// Set string size for HDF5
	hdf5.SetStringLength(STRLEN)

	logger.Info(fmt.Sprintf("Creating file %s", filename), "hdf5writer")
	writer := &Writer{Filename: filename, CompressionLevel: compressionLevel}
	var err error
	if writer.File, err = openFile(filename); err != nil {
		return nil, err
	}
	if writer.RunGroup, err = createGroup(writer.File, "run"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.SummaryGroup, err = createGroup(writer.File, "summary"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.DeltasGroup, err = createGroup(writer.File, "deltas"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}

	tables := []struct {
		dset     **hdf5.Dataset
		group    *hdf5.Group
		name     string
		datatype interface{}
	}{
		{&writer.RunInfoTable, writer.RunGroup, "info", RunInfoHDF5{}},
		{&writer.StatsTable, writer.RunGroup, "stats", UnpackStatsHDF5{}},
		{&writer.FailuresTable, writer.RunGroup, "failures", FailureHDF5{}},
		{&writer.PairsTable, writer.SummaryGroup, "pairs", PairHDF5{}},
		{&writer.FilesTable, writer.SummaryGroup, "files", SummaryRowHDF5{}},
	}
	for _, table := range tables {
		*table.dset, err = createTable(table.group, table.name, table.datatype, compressionLevel)
		if err != nil {
			return nil, errors.Join(err, writer.Close())
		}
	}
	return writer, nil
}

// WriteResult writes every table of result. Tables start empty, so it
// must be called once per writer.
func (w *Writer) WriteResult(key ArtifactKey, result *AggregatedResult) error {
	info := RunInfoHDF5{
		runID:       convertToHdf5String(result.RunID),
		firstFile:   convertToHdf5String(key.FirstFile),
		lastFile:    convertToHdf5String(key.LastFile),
		fingerprint: key.Fingerprint,
		files:       int32(len(result.Files)),
		failures:    int32(len(result.Failures)),
	}
	if err := writeEntryToTable(w.RunInfoTable, info, 0); err != nil {
		return fmt.Errorf("error writing run info: %w", err)
	}

	stats := result.Stats
	statsRow := UnpackStatsHDF5{
		cycles:         int64(stats.Cycles),
		validWords:     int64(stats.ValidWords),
		invalidWords:   int64(stats.InvalidWords),
		malformedWords: int64(stats.MalformedWords),
		truncatedWords: int64(stats.TruncatedWords),
		missingTDC:     int64(stats.MissingTDC),
		missingOffset:  int64(stats.MissingOffset),
	}
	if err := writeEntryToTable(w.StatsTable, statsRow, 0); err != nil {
		return fmt.Errorf("error writing unpack stats: %w", err)
	}

	// The array MUST be allocated at creation, if not, HDF5 will panic
	failures := make([]FailureHDF5, len(result.Failures))
	for i, failure := range result.Failures {
		failures[i] = FailureHDF5{
			file:    convertToHdf5String(filepath.Base(failure.File)),
			message: convertToHdf5String(failure.Err.Error()),
		}
	}
	if err := writeArrayToTable(w.FailuresTable, &failures, 0); err != nil {
		return fmt.Errorf("error writing failures: %w", err)
	}

	files := make([]SummaryRowHDF5, len(result.Summary))
	for i, row := range result.Summary {
		files[i] = SummaryRowHDF5{
			file:        convertToHdf5String(row.File),
			pixel1:      int32(row.Pixel1),
			pixel2:      int32(row.Pixel2),
			timestamps1: int64(row.Timestamps1),
			timestamps2: int64(row.Timestamps2),
			deltas:      int64(row.Deltas),
			crossTalk:   row.CrossTalk,
		}
	}
	if err := writeArrayToTable(w.FilesTable, &files, 0); err != nil {
		return fmt.Errorf("error writing file summary: %w", err)
	}

	aggregates := result.SortedPairs()
	pairs := make([]PairHDF5, len(aggregates))
	for i, aggregate := range aggregates {
		summary := SummarizeDeltas(aggregate.Deltas)
		pairs[i] = PairHDF5{
			pixel1:      int32(aggregate.Pair.First),
			pixel2:      int32(aggregate.Pair.Second),
			timestamps1: int64(aggregate.Timestamps1),
			timestamps2: int64(aggregate.Timestamps2),
			deltas:      int64(aggregate.DeltaCount),
			files:       int32(aggregate.Files),
			mean:        summary.Mean,
			stdDev:      summary.StdDev,
		}
		if err := w.writeDeltas(aggregate); err != nil {
			return err
		}
	}
	if err := writeArrayToTable(w.PairsTable, &pairs, 0); err != nil {
		return fmt.Errorf("error writing pair summary: %w", err)
	}
	return nil
}

func (w *Writer) writeDeltas(aggregate *PairAggregate) error {
	dset, err := createArray[float64](w.DeltasGroup, aggregate.Pair.String(), w.CompressionLevel)
	if err != nil {
		return err
	}
	w.DeltaArrays = append(w.DeltaArrays, dset)
	if err := writeArrayToTable(dset, &aggregate.Deltas, 0); err != nil {
		return fmt.Errorf("error writing deltas of pair %s: %w", aggregate.Pair, err)
	}
	return nil
}

func (w *Writer) Close() error {
	var errs []error

	closeDataset := func(dset *hdf5.Dataset, name string) {
		if dset == nil {
			return
		}
		if err := dset.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", name, err))
		}
	}
	closeGroup := func(group *hdf5.Group, name string) {
		if group == nil {
			return
		}
		if err := group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s group: %w", name, err))
		}
	}

	for _, dset := range w.DeltaArrays {
		closeDataset(dset, "deltas")
	}
	closeDataset(w.RunInfoTable, "run info table")
	closeDataset(w.StatsTable, "stats table")
	closeDataset(w.FailuresTable, "failures table")
	closeDataset(w.PairsTable, "pairs table")
	closeDataset(w.FilesTable, "files table")
	closeGroup(w.RunGroup, "run")
	closeGroup(w.SummaryGroup, "summary")
	closeGroup(w.DeltasGroup, "deltas")
	if w.File != nil {
		if err := w.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// HDF5Store keeps one artifact per file set and configuration in Dir.
type HDF5Store struct {
	Dir              string
	CompressionLevel int
}

func NewHDF5Store(dir string, compressionLevel int) *HDF5Store {
	return &HDF5Store{Dir: dir, CompressionLevel: compressionLevel}
}

func (s *HDF5Store) Path(key ArtifactKey) string {
	return filepath.Join(s.Dir, key.Name()+".h5")
}

func (s *HDF5Store) Exists(key ArtifactKey) (bool, error) {
	_, err := os.Stat(s.Path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Save writes the artifact next to its final path and renames it, so an
// interrupted write never leaves a file that Exists would report.
func (s *HDF5Store) Save(key ArtifactKey, result *AggregatedResult) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	path := s.Path(key)
	tmp := path + ".tmp"

	writer, err := NewWriter(tmp, s.CompressionLevel)
	if err != nil {
		return err
	}
	writeErr := writer.WriteResult(key, result)
	if err := errors.Join(writeErr, writer.Close()); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("error moving artifact into place: %w", err)
	}

	if info, err := os.Stat(path); err == nil {
		message := fmt.Sprintf("Run %s written to %s (%s)", result.RunID, path, humanize.Bytes(uint64(info.Size())))
		logger.Info(message, "hdf5writer")
	}
	return nil
}
