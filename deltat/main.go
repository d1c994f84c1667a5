package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	deltat "github.com/linospad2/deltat_go/pkg"
)

var logger deltat.SlogLogger

func init() {
	logger = deltat.NewSlogLogger(os.Stdout, os.Stderr)
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	rewrite := flag.Bool("rewrite", false, "Recompute even if the output file already exists")
	flag.Parse()

	configuration, err := deltat.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	if *rewrite {
		configuration.Rewrite = true
	}
	deltat.SetLogger(logger)

	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Reading configuration file: %s", *configFilename), "main")
		printConfiguration(configuration)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configuration); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, configuration deltat.Configuration) error {
	calibration, mask, err := loadLookupTables(configuration)
	if err != nil {
		return err
	}

	files, err := deltat.DiscoverFiles(configuration.DataPath, configuration.FilePattern)
	if err != nil {
		return err
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Found %d files in %s", len(files), configuration.DataPath)
		logger.Info(message, "main")
	}

	store := deltat.NewHDF5Store(configuration.OutputPath, configuration.CompressionLevel)
	engine, err := deltat.NewEngine(configuration, calibration, mask, store)
	if err != nil {
		return err
	}

	pairs := selectPairs(configuration)
	result, err := engine.Run(ctx, files, pairs)
	if err != nil {
		return err
	}
	if result.Cached {
		return nil
	}

	if len(configuration.PixelPairs) == 0 && len(configuration.Pixels) > 1 {
		reference := configuration.Pixels[0]
		for _, point := range deltat.CrossTalkByDistance(result.Summary, reference) {
			message := fmt.Sprintf("Pixel %d, distance %d: cross-talk %.4f%% +- %.4f%% (%d files)",
				reference, point.Distance, point.Mean, point.StdErr, point.Samples)
			logger.Info(message, "crosstalk")
		}
	}
	return nil
}

// loadLookupTables returns nil tables in no_db mode, which the engine
// treats as zero correction for every pixel.
func loadLookupTables(configuration deltat.Configuration) (*deltat.CalibrationTable, []int, error) {
	if configuration.NoDB {
		logger.Info("Database disabled, running without calibration or mask", "main")
		return nil, nil, nil
	}

	dbConn, err := deltat.ConnectToDatabase(configuration.DBDriver, configuration.User, configuration.Passwd,
		configuration.Host, configuration.DBName)
	if err != nil {
		return nil, nil, fmt.Errorf("Error connection to database: %w", err)
	}
	defer dbConn.Close()

	calibration, err := deltat.LoadCalibration(dbConn, configuration.DaughterboardNumber,
		configuration.MotherboardNumber, configuration.Verbosity)
	if err != nil {
		return nil, nil, err
	}
	var mask []int
	if configuration.ApplyMask {
		mask, err = deltat.LoadMask(dbConn, configuration.DaughterboardNumber, configuration.MotherboardNumber)
		if err != nil {
			return nil, nil, err
		}
	}
	return calibration, mask, nil
}

func selectPairs(configuration deltat.Configuration) []deltat.PixelPair {
	if len(configuration.PixelPairs) > 0 {
		pairs := make([]deltat.PixelPair, len(configuration.PixelPairs))
		for i, pair := range configuration.PixelPairs {
			pairs[i] = deltat.PixelPair{First: pair[0], Second: pair[1]}
		}
		return pairs
	}
	return deltat.ReferencePairs(configuration.Pixels)
}
