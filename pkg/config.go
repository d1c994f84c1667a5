package deltat

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Configuration struct {
	Verbosity              int              `json:"verbosity"`
	DataPath               string           `json:"data_path"`
	FilePattern            string           `json:"file_pattern"`
	OutputPath             string           `json:"output_path"`
	DaughterboardNumber    string           `json:"daughterboard_number"`
	MotherboardNumber      string           `json:"motherboard_number"`
	FirmwareVersion        FirmwareRevision `json:"firmware_version"`
	PixelCount             int              `json:"pixel_count"`
	PixelsPerChannel       int              `json:"pixels_per_channel"`
	TimestampsPerCycle     int              `json:"timestamps_per_cycle"`
	DeltaWindow            float64          `json:"delta_window"`
	ApplyTDCCalibration    bool             `json:"apply_tdc_calibration"`
	ApplyOffsetCalibration bool             `json:"apply_offset_calibration"`
	ApplyMask              bool             `json:"apply_mask"`
	Rewrite                bool             `json:"rewrite"`
	Pixels                 []int            `json:"pixels"`
	PixelPairs             [][2]int         `json:"pixel_pairs"`
	NumWorkers             int              `json:"num_workers"`
	NoDB                   bool             `json:"no_db"`
	DBDriver               string           `json:"db_driver"`
	Host                   string           `json:"host"`
	User                   string           `json:"user"`
	Passwd                 string           `json:"pass"`
	DBName                 string           `json:"dbname"`
	CompressionLevel       int              `json:"compression_level"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Verbosity:              0,
		FilePattern:            "*.dat*",
		OutputPath:             "delta_ts_data",
		FirmwareVersion:        RowMajor,
		PixelCount:             256,
		PixelsPerChannel:       4,
		TimestampsPerCycle:     512,
		DeltaWindow:            10e3,
		ApplyTDCCalibration:    true,
		ApplyOffsetCalibration: true,
		ApplyMask:              true,
		Rewrite:                false,
		NumWorkers:             1,
		NoDB:                   false,
		DBDriver:               "mysql",
		Host:                   "localhost",
		User:                   "linospad",
		DBName:                 "LINOSPAD2",
		CompressionLevel:       4,
	}
}

// DecodeConfiguration unmarshals a JSON document on top of config, which
// should already hold the defaults.
func DecodeConfiguration(data []byte, config *Configuration) error {
	err := json.Unmarshal(data, config)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		switch typeErr.Field {
		case "daughterboard_number", "motherboard_number":
			return &ErrInvalidBoardNumber{Field: typeErr.Field, Value: typeErr.Value}
		}
	}
	return err
}

// Validate checks every value a run depends on. It never touches the
// filesystem so it can be called before any data file is opened.
func (c Configuration) Validate() error {
	if c.DaughterboardNumber == "" {
		return &ErrInvalidBoardNumber{Field: "daughterboard_number"}
	}
	if c.MotherboardNumber == "" {
		return &ErrInvalidBoardNumber{Field: "motherboard_number"}
	}
	if !c.FirmwareVersion.Valid() {
		return &ErrUnrecognizedFirmware{Tag: fmt.Sprintf("%d", int(c.FirmwareVersion))}
	}
	if c.TimestampsPerCycle <= 0 {
		return &ErrInvalidConfiguration{Field: "timestamps_per_cycle", Reason: "must be positive"}
	}
	if c.DeltaWindow <= 0 {
		return &ErrInvalidConfiguration{Field: "delta_window", Reason: "must be positive"}
	}
	if c.PixelsPerChannel <= 0 || c.PixelsPerChannel > maxPixelsPerChannel {
		return &ErrInvalidConfiguration{Field: "pixels_per_channel",
			Reason: fmt.Sprintf("must be in [1, %d]", maxPixelsPerChannel)}
	}
	if c.PixelCount <= 0 || c.PixelCount%c.PixelsPerChannel != 0 {
		return &ErrInvalidConfiguration{Field: "pixel_count",
			Reason: fmt.Sprintf("must be a positive multiple of %d", c.PixelsPerChannel)}
	}
	if c.NumWorkers <= 0 {
		return &ErrInvalidConfiguration{Field: "num_workers", Reason: "must be positive"}
	}
	return nil
}

// UnpackOptions returns the unpacking switches derived from the run
// configuration.
func (c Configuration) UnpackOptions() UnpackOptions {
	return UnpackOptions{
		TimestampsPerCycle: c.TimestampsPerCycle,
		ApplyTDC:           c.ApplyTDCCalibration,
		ApplyOffset:        c.ApplyOffsetCalibration,
	}
}

// Environment variables that override the database settings of the
// configuration file. They are also read from a .env file placed next to
// it; the process environment wins over the file.
const (
	EnvDBDriver = "DELTAT_DB_DRIVER"
	EnvDBHost   = "DELTAT_DB_HOST"
	EnvDBUser   = "DELTAT_DB_USER"
	EnvDBPass   = "DELTAT_DB_PASS"
	EnvDBName   = "DELTAT_DB_NAME"
)

// LoadConfiguration reads filename on top of the defaults, applies the
// database overrides and validates the result.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	if err := DecodeConfiguration(data, &config); err != nil {
		return config, err
	}

	env, err := readEnvFile(filepath.Join(filepath.Dir(filename), ".env"))
	if err != nil {
		return config, err
	}
	applyEnvironment(&config, env)

	return config, config.Validate()
}

func readEnvFile(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return env, nil
}

func applyEnvironment(config *Configuration, env map[string]string) {
	lookup := func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := env[key]
		return value, ok
	}
	overrides := []struct {
		key   string
		field *string
	}{
		{EnvDBDriver, &config.DBDriver},
		{EnvDBHost, &config.Host},
		{EnvDBUser, &config.User},
		{EnvDBPass, &config.Passwd},
		{EnvDBName, &config.DBName},
	}
	for _, override := range overrides {
		if value, ok := lookup(override.key); ok {
			*override.field = value
		}
	}
}
