package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/dustin/go-humanize"
	deltat "github.com/linospad2/deltat_go/pkg"
)

var logger deltat.SlogLogger

func init() {
	logger = deltat.NewSlogLogger(os.Stdout, os.Stderr)
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	hottest := flag.Int("hottest", 10, "Number of pixels with most counts to print")
	flag.Parse()

	configuration, err := deltat.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	deltat.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := deltat.DiscoverFiles(configuration.DataPath, configuration.FilePattern)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Counting valid timestamps in %d files", len(files))
		logger.Info(message, "main")
	}

	validPerPixel, counted, err := deltat.CountValidTimestamps(ctx, files, configuration)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	mask, err := loadMask(configuration)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	printHottestPixels(validPerPixel, *hottest)
	rate := deltat.DarkCountRate(validPerPixel, mask, counted)
	message := fmt.Sprintf("Dark count rate: %.2f timestamps per pixel per file (%d files, %d masked pixels)",
		rate, counted, len(mask))
	logger.Info(message, "main")
}

func loadMask(configuration deltat.Configuration) ([]int, error) {
	if configuration.NoDB || !configuration.ApplyMask {
		return nil, nil
	}
	dbConn, err := deltat.ConnectToDatabase(configuration.DBDriver, configuration.User, configuration.Passwd,
		configuration.Host, configuration.DBName)
	if err != nil {
		return nil, fmt.Errorf("Error connection to database: %w", err)
	}
	defer dbConn.Close()
	return deltat.LoadMask(dbConn, configuration.DaughterboardNumber, configuration.MotherboardNumber)
}

func printHottestPixels(validPerPixel []int, n int) {
	pixels := make([]int, len(validPerPixel))
	for i := range pixels {
		pixels[i] = i
	}
	sort.SliceStable(pixels, func(i, j int) bool {
		return validPerPixel[pixels[i]] > validPerPixel[pixels[j]]
	})
	if n > len(pixels) {
		n = len(pixels)
	}
	for _, pixel := range pixels[:n] {
		message := fmt.Sprintf("Pixel %d: %s valid timestamps", pixel, humanize.Comma(int64(validPerPixel[pixel])))
		logger.Info(message, "darkcount")
	}
}
