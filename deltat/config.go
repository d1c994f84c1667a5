package main

import (
	"fmt"

	deltat "github.com/linospad2/deltat_go/pkg"
)

func printConfiguration(config deltat.Configuration) {
	logger.Info(fmt.Sprintf("Data path: %s", config.DataPath), "config")
	logger.Info(fmt.Sprintf("File pattern: %s", config.FilePattern), "config")
	logger.Info(fmt.Sprintf("Output path: %s", config.OutputPath), "config")
	logger.Info(fmt.Sprintf("Daughterboard: %s", config.DaughterboardNumber), "config")
	logger.Info(fmt.Sprintf("Motherboard: %s", config.MotherboardNumber), "config")
	logger.Info(fmt.Sprintf("Firmware: %s", config.FirmwareVersion), "config")
	logger.Info(fmt.Sprintf("Pixels: %d (%d per channel)", config.PixelCount, config.PixelsPerChannel), "config")
	logger.Info(fmt.Sprintf("Timestamps per cycle: %d", config.TimestampsPerCycle), "config")
	logger.Info(fmt.Sprintf("Delta window: %g ps", config.DeltaWindow), "config")
	logger.Info(fmt.Sprintf("TDC calibration: %t", config.ApplyTDCCalibration), "config")
	logger.Info(fmt.Sprintf("Offset calibration: %t", config.ApplyOffsetCalibration), "config")
	logger.Info(fmt.Sprintf("Mask: %t", config.ApplyMask), "config")
	logger.Info(fmt.Sprintf("Rewrite: %t", config.Rewrite), "config")
	logger.Info(fmt.Sprintf("Selected pixels: %v", config.Pixels), "config")
	logger.Info(fmt.Sprintf("Pixel pairs: %v", config.PixelPairs), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
}
