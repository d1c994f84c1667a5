package deltat

import "fmt"

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error {
	return e.Err
}

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error {
	return e.Err
}

// ErrUnrecognizedFirmware is returned for any firmware tag without a known
// pixel layout. It is fatal for the whole run.
type ErrUnrecognizedFirmware struct {
	Tag string
}

func (e *ErrUnrecognizedFirmware) Error() string {
	return fmt.Sprintf("unrecognized firmware version %q, expected %q or %q",
		e.Tag, RowMajor.String(), ColumnMajor.String())
}

// ErrInvalidBoardNumber represents a board identifier that is missing or
// not given as a string.
type ErrInvalidBoardNumber struct {
	Field string
	Value string
}

func (e *ErrInvalidBoardNumber) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s should be a string, got %s", e.Field, e.Value)
}

type ErrPixelOutOfRange struct {
	Pixel      int
	PixelCount int
}

func (e *ErrPixelOutOfRange) Error() string {
	return fmt.Sprintf("pixel %d out of range [0, %d)", e.Pixel, e.PixelCount)
}

// ErrInvalidConfiguration wraps any other configuration value that
// prevents a run from starting.
type ErrInvalidConfiguration struct {
	Field  string
	Reason string
}

func (e *ErrInvalidConfiguration) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}
