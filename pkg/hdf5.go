package deltat

import (
	"fmt"

	"github.com/jmbenlloch/go-hdf5"
	"golang.org/x/exp/constraints"
)

type RunInfoHDF5 struct {
	runID       [STRLEN]byte
	firstFile   [STRLEN]byte
	lastFile    [STRLEN]byte
	fingerprint uint64
	files       int32
	failures    int32
}

type UnpackStatsHDF5 struct {
	cycles         int64
	validWords     int64
	invalidWords   int64
	malformedWords int64
	truncatedWords int64
	missingTDC     int64
	missingOffset  int64
}

type PairHDF5 struct {
	pixel1      int32
	pixel2      int32
	timestamps1 int64
	timestamps2 int64
	deltas      int64
	files       int32
	mean        float64
	stdDev      float64
}

type SummaryRowHDF5 struct {
	file        [STRLEN]byte
	pixel1      int32
	pixel2      int32
	timestamps1 int64
	timestamps2 int64
	deltas      int64
	crossTalk   float64
}

type FailureHDF5 struct {
	file    [STRLEN]byte
	message [STRLEN]byte
}

// STRLEN is the fixed length of every string column. Longer values are
// truncated.
const STRLEN = 128

func convertToHdf5String(s string) [STRLEN]byte {
	var byteArray [STRLEN]byte
	copy(byteArray[:], s)
	return byteArray
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

// nativeDatatype maps the numeric element types written by this package to
// their HDF5 memory types.
func nativeDatatype[T constraints.Integer | constraints.Float]() (*hdf5.Datatype, error) {
	var zero T
	switch any(zero).(type) {
	case float64:
		return hdf5.T_NATIVE_DOUBLE, nil
	case float32:
		return hdf5.T_NATIVE_FLOAT, nil
	case int64:
		return hdf5.T_NATIVE_INT64, nil
	case int32:
		return hdf5.T_NATIVE_INT32, nil
	case uint32:
		return hdf5.T_NATIVE_UINT32, nil
	default:
		return nil, fmt.Errorf("no HDF5 datatype for %T", zero)
	}
}

func datasetCreationList(chunk uint, compressionLevel int) (*hdf5.PropList, error) {
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, err
	}
	if err := plist.SetChunk([]uint{chunk}); err != nil {
		return nil, err
	}
	if compressionLevel > 0 {
		if err := plist.SetDeflate(compressionLevel); err != nil {
			return nil, err
		}
	}
	return plist, nil
}

// createArray creates an extendable one dimensional dataset of T.
func createArray[T constraints.Integer | constraints.Float](group *hdf5.Group, name string, compressionLevel int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := datasetCreationList(32768, compressionLevel)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	dtype, err := nativeDatatype[T]()
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compressionLevel int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := datasetCreationList(1024, compressionLevel)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	// create the memory data type
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

func writeEntryToTable[T any](dataset *hdf5.Dataset, data T, offset int) error {
	array := []T{data}
	return writeArrayToTable(dataset, &array, offset)
}

// writeArrayToTable appends data after the first offset rows of dataset.
func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, offset int) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dims := []uint{length}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	// extend
	rowsInFile := uint(offset)
	newsize := []uint{rowsInFile + length}
	if err := dataset.Resize(newsize); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{rowsInFile}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}
