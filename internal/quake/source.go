// Package quake visualizes seismic events as a point cloud.
package quake

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/joeblew999/plat-viewer/internal/db"
)

// Event is one seismic event.
type Event struct {
	Time      time.Time
	Lon       float64
	Lat       float64
	Depth     float64 // km
	Magnitude float64
}

// EventSource loads the events to display.
type EventSource interface {
	Events(ctx context.Context) ([]Event, error)
}

// DuckDBSource reads events from a CSV file with DuckDB's CSV reader. The
// file needs Time, Longitude, Latitude, Depth and Magnitude columns.
type DuckDBSource struct {
	DB   *sql.DB
	Path string
}

func (s *DuckDBSource) Events(ctx context.Context) ([]Event, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("quake source: no csv path configured")
	}
	query := fmt.Sprintf(`SELECT CAST("Time" AS TIMESTAMP), "Longitude", "Latitude", "Depth", "Magnitude"
		FROM read_csv_auto(%s, header = true)
		ORDER BY 1`, db.Literal(s.Path))

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Path, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Time, &e.Lon, &e.Lat, &e.Depth, &e.Magnitude); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ EventSource = (*DuckDBSource)(nil)
