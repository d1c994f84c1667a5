package deltat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir string, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfiguration(t *testing.T) {
	config := DefaultConfiguration()
	assert.Equal(t, 512, config.TimestampsPerCycle)
	assert.Equal(t, 10e3, config.DeltaWindow)
	assert.True(t, config.ApplyTDCCalibration)
	assert.True(t, config.ApplyOffsetCalibration)
	assert.True(t, config.ApplyMask)
	assert.False(t, config.Rewrite)
	assert.Equal(t, DefaultPixelCount, config.PixelCount)
	assert.Equal(t, RowMajor, config.FirmwareVersion)

	// Board numbers have no default.
	var boardErr *ErrInvalidBoardNumber
	require.ErrorAs(t, config.Validate(), &boardErr)
}

func TestDecodeConfiguration(t *testing.T) {
	config := DefaultConfiguration()
	err := DecodeConfiguration([]byte(`{
		"daughterboard_number": "NL11",
		"motherboard_number": "#33",
		"firmware_version": "2212s",
		"delta_window": 20000,
		"pixels": [144, 145, 146]
	}`), &config)
	require.NoError(t, err)
	require.NoError(t, config.Validate())
	assert.Equal(t, ColumnMajor, config.FirmwareVersion)
	assert.Equal(t, 20000.0, config.DeltaWindow)
	assert.Equal(t, []int{144, 145, 146}, config.Pixels)
	assert.Equal(t, 512, config.TimestampsPerCycle, "defaults survive")
}

func TestDecodeConfigurationBoardNumberType(t *testing.T) {
	config := DefaultConfiguration()
	err := DecodeConfiguration([]byte(`{"daughterboard_number": 11, "motherboard_number": "#33"}`), &config)
	var boardErr *ErrInvalidBoardNumber
	require.ErrorAs(t, err, &boardErr)
	assert.Equal(t, "daughterboard_number", boardErr.Field)
	assert.Equal(t, "number", boardErr.Value)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Configuration)
		field  string
	}{
		{"timestamps", func(c *Configuration) { c.TimestampsPerCycle = 0 }, "timestamps_per_cycle"},
		{"window", func(c *Configuration) { c.DeltaWindow = -1 }, "delta_window"},
		{"pixels per channel", func(c *Configuration) { c.PixelsPerChannel = 5 }, "pixels_per_channel"},
		{"pixel count", func(c *Configuration) { c.PixelCount = 10 }, "pixel_count"},
		{"workers", func(c *Configuration) { c.NumWorkers = 0 }, "num_workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfiguration()
			tt.modify(&config)
			var configErr *ErrInvalidConfiguration
			require.ErrorAs(t, config.Validate(), &configErr)
			assert.Equal(t, tt.field, configErr.Field)
		})
	}
}

func TestLoadConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{
		"daughterboard_number": "NL11",
		"motherboard_number": "#33",
		"host": "file-host",
		"user": "file-user"
	}`)
	env := "DELTAT_DB_HOST=env-file-host\nDELTAT_DB_USER=env-file-user\nDELTAT_DB_DRIVER=sqlite\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644))
	t.Setenv(EnvDBUser, "process-user")

	config, err := LoadConfiguration(path)
	require.NoError(t, err)
	assert.Equal(t, "env-file-host", config.Host)
	assert.Equal(t, "process-user", config.User, "process environment wins")
	assert.Equal(t, "sqlite", config.DBDriver)
	assert.Equal(t, "NL11", config.DaughterboardNumber)
}

func TestLoadConfigurationErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfiguration(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := writeConfig(t, dir, `{
		"daughterboard_number": "NL11",
		"motherboard_number": "#33",
		"firmware_version": "9999b"
	}`)
	_, err = LoadConfiguration(path)
	var firmwareErr *ErrUnrecognizedFirmware
	require.ErrorAs(t, err, &firmwareErr)
	assert.Equal(t, "9999b", firmwareErr.Tag)
}
