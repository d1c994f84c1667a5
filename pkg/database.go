package deltat

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "modernc.org/sqlite"
)

// ConnectToDatabase opens the calibration database. The mysql driver is
// used for the shared lab server; sqlite reads a local copy where dbname
// is the file path.
func ConnectToDatabase(driver string, user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	switch driver {
	case "mysql":
		port := "3306"
		dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
		return sqlx.Connect("mysql", dbURI)
	case "sqlite":
		return sqlx.Connect("sqlite", dbname)
	default:
		return nil, &ErrInvalidConfiguration{Field: "db_driver", Reason: fmt.Sprintf("unknown driver %q", driver)}
	}
}

type TDCCalibrationEntry struct {
	Channel int     `db:"Channel"`
	Bin     int     `db:"Bin"`
	Value   float64 `db:"Value"`
}

type OffsetCalibrationEntry struct {
	Pixel  int     `db:"Pixel"`
	Offset float64 `db:"Value"`
}

type MaskEntry struct {
	Pixel int `db:"Pixel"`
}

// LoadCalibration reads the TDC and offset tables of one board pair. A
// channel whose bins are not all present is left out of the table, so its
// timestamps fall back to zero correction instead of mixing calibrated
// and nominal bins.
func LoadCalibration(db *sqlx.DB, daughterboard string, motherboard string, verbosity int) (*CalibrationTable, error) {
	table := NewCalibrationTable()

	query := "SELECT Channel, Bin, Value FROM TDCCalibration WHERE Daughterboard = ? AND Motherboard = ? ORDER BY Channel, Bin"
	if verbosity > 0 {
		message := fmt.Sprintf("Reading TDC calibration for %s/%s from database", daughterboard, motherboard)
		logger.Info(message, "database")
	}
	if verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s", query), "database")
	}
	rows, err := db.Queryx(query, daughterboard, motherboard)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	bins := make(map[int][]float64)
	for rows.Next() {
		result := TDCCalibrationEntry{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		if result.Bin < 0 || result.Bin >= TDCBins {
			continue
		}
		if bins[result.Channel] == nil {
			bins[result.Channel] = make([]float64, 0, TDCBins)
		}
		if len(bins[result.Channel]) != result.Bin {
			continue
		}
		bins[result.Channel] = append(bins[result.Channel], result.Value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading TDC calibration: %w", err)
	}
	for channel, values := range bins {
		if len(values) != TDCBins {
			message := fmt.Sprintf("TDC calibration of channel %d has %d of %d bins, channel left uncalibrated",
				channel, len(values), TDCBins)
			logger.Info(message, "database")
			continue
		}
		table.TDC[channel] = values
	}

	offsets := []OffsetCalibrationEntry{}
	query = "SELECT Pixel, Value FROM OffsetCalibration WHERE Daughterboard = ? AND Motherboard = ?"
	if err := db.Select(&offsets, query, daughterboard, motherboard); err != nil {
		return nil, fmt.Errorf("error reading offset calibration: %w", err)
	}
	for _, entry := range offsets {
		table.Offsets[entry.Pixel] = entry.Offset
	}

	if verbosity > 0 {
		message := fmt.Sprintf("Calibration loaded: %d TDC channels, %d pixel offsets", len(table.TDC), len(table.Offsets))
		logger.Info(message, "database")
	}
	return table, nil
}

// LoadMask reads the hot pixels of one board pair.
func LoadMask(db *sqlx.DB, daughterboard string, motherboard string) ([]int, error) {
	entries := []MaskEntry{}
	query := "SELECT Pixel FROM PixelMask WHERE Daughterboard = ? AND Motherboard = ? ORDER BY Pixel"
	if err := db.Select(&entries, query, daughterboard, motherboard); err != nil {
		return nil, fmt.Errorf("error reading pixel mask: %w", err)
	}
	mask := make([]int, len(entries))
	for i, entry := range entries {
		mask[i] = entry.Pixel
	}
	return mask, nil
}
