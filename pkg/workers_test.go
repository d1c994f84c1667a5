package deltat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessFiles(t *testing.T) {
	files := make([]string, 20)
	for i := range files {
		files[i] = fmt.Sprintf("file%02d", i)
	}

	process := func(path string) (int, error) {
		switch path {
		case "file03":
			return 0, errors.New("bad file")
		case "file07":
			panic("decoder bug")
		}
		return len(path), nil
	}

	seen := make(map[string]workerOutcome[int])
	err := processFiles(context.Background(), files, 4, 0, process, func(outcome workerOutcome[int]) {
		seen[outcome.Path] = outcome
	})
	require.NoError(t, err)
	require.Len(t, seen, len(files))

	assert.EqualError(t, seen["file03"].Err, "bad file")
	assert.ErrorContains(t, seen["file07"].Err, "recovered from panic")
	assert.NoError(t, seen["file00"].Err)
	assert.Equal(t, 6, seen["file00"].Value)
}

func TestProcessFilesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	files := make([]string, 100)
	for i := range files {
		files[i] = fmt.Sprintf("file%02d", i)
	}

	processed := 0
	err := processFiles(ctx, files, 1, 0, func(path string) (string, error) {
		cancel()
		return path, nil
	}, func(outcome workerOutcome[string]) {
		processed++
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, processed, len(files))
}
