// Package store persists decoded channel samples in a session-scoped DuckDB
// file so that multi-million-sample captures can be windowed and decimated
// with SQL instead of being re-scanned in memory on every request.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcboeker/go-duckdb"

	"github.com/scope-visualizer/backend/internal/models"
)

// DuckStore holds the samples of one decode session.
type DuckStore struct {
	db       *sql.DB
	dbPath   string
	rowCount int64

	// Limits concurrent queries; rapid scroll/zoom on the frontend otherwise
	// stacks up expensive decimation queries.
	querySem chan struct{}
}

// NewDuckStore creates a session-scoped DuckDB file in tempDir.
func NewDuckStore(tempDir, sessionID string) (*DuckStore, error) {
	dbPath := filepath.Join(tempDir, fmt.Sprintf("session_%s.duckdb", sessionID))

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='1GB'",
			"PRAGMA threads=4",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE samples (
			channel VARCHAR NOT NULL,
			idx     BIGINT  NOT NULL,
			t       DOUBLE  NOT NULL,
			val     DOUBLE  NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("failed to create samples table: %w", err)
	}

	return &DuckStore{
		db:       db,
		dbPath:   dbPath,
		querySem: make(chan struct{}, 3),
	}, nil
}

// LoadChannel bulk-inserts one channel's time axis and values through the
// native Appender API. times and values must be the same length.
func (ds *DuckStore) LoadChannel(name string, times, values []float64) error {
	if len(times) != len(values) {
		return fmt.Errorf("channel %q: %d times vs %d values", name, len(times), len(values))
	}

	conn, err := ds.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "samples")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i := range times {
			if err := appender.AppendRow(name, int64(i), times[i], values[i]); err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	ds.rowCount += int64(len(times))
	return nil
}

// Finalize creates the lookup index once all channels are loaded. Indexing
// after the bulk load is much faster than maintaining it during inserts.
func (ds *DuckStore) Finalize() error {
	if _, err := ds.db.Exec("CREATE INDEX idx_channel_t ON samples(channel, t)"); err != nil {
		return fmt.Errorf("index creation failed: %w", err)
	}
	return nil
}

// Len returns the total number of stored samples across all channels.
func (ds *DuckStore) Len() int64 {
	return ds.rowCount
}

func (ds *DuckStore) acquire(ctx context.Context) error {
	select {
	case ds.querySem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ds *DuckStore) release() {
	<-ds.querySem
}

// QueryWindow returns the samples of channel with start <= t <= end. When the
// window holds more than maxPoints samples the result is min-max decimated:
// maxPoints/2 buckets, each contributing its extreme values in time order, so
// peaks survive for plotting.
func (ds *DuckStore) QueryWindow(ctx context.Context, channel string, start, end float64, maxPoints int) (*models.SampleBatch, error) {
	if err := ds.acquire(ctx); err != nil {
		return nil, err
	}
	defer ds.release()

	var total int
	err := ds.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM samples WHERE channel = ? AND t BETWEEN ? AND ?",
		channel, start, end).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count query failed: %w", err)
	}

	batch := &models.SampleBatch{Channel: channel, Total: total, Points: []models.SamplePoint{}}
	if total == 0 {
		return batch, nil
	}

	if maxPoints <= 0 || total <= maxPoints {
		rows, err := ds.db.QueryContext(ctx,
			"SELECT t, val FROM samples WHERE channel = ? AND t BETWEEN ? AND ? ORDER BY idx",
			channel, start, end)
		if err != nil {
			return nil, fmt.Errorf("window query failed: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var p models.SamplePoint
			if err := rows.Scan(&p.Time, &p.Value); err != nil {
				return nil, err
			}
			batch.Points = append(batch.Points, p)
		}
		return batch, rows.Err()
	}

	// Min-max decimation: two points per bucket.
	buckets := maxPoints / 2
	if buckets < 1 {
		buckets = 1
	}
	span := end - start
	if span <= 0 {
		span = 1
	}

	rows, err := ds.db.QueryContext(ctx, `
		SELECT arg_min(t, val), min(val), arg_max(t, val), max(val)
		FROM (
			SELECT t, val,
			       least(CAST((t - ?) / ? * ? AS BIGINT), ? - 1) AS bucket
			FROM samples
			WHERE channel = ? AND t BETWEEN ? AND ?
		)
		GROUP BY bucket
		ORDER BY bucket`,
		start, span, buckets, buckets, channel, start, end)
	if err != nil {
		return nil, fmt.Errorf("decimation query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tMin, vMin, tMax, vMax float64
		if err := rows.Scan(&tMin, &vMin, &tMax, &vMax); err != nil {
			return nil, err
		}
		lo := models.SamplePoint{Time: tMin, Value: vMin}
		hi := models.SamplePoint{Time: tMax, Value: vMax}
		if hi.Time < lo.Time {
			lo, hi = hi, lo
		}
		batch.Points = append(batch.Points, lo)
		if hi.Time != lo.Time {
			batch.Points = append(batch.Points, hi)
		}
	}
	batch.Decimated = true
	return batch, rows.Err()
}

// ValuesAtTime returns, per channel, the value of the last sample at or
// before t. Channels with no sample yet at t are absent from the result.
func (ds *DuckStore) ValuesAtTime(ctx context.Context, channels []string, t float64) (map[string]float64, error) {
	if len(channels) == 0 {
		return map[string]float64{}, nil
	}
	if err := ds.acquire(ctx); err != nil {
		return nil, err
	}
	defer ds.release()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(channels)), ",")
	args := make([]interface{}, 0, len(channels)+1)
	args = append(args, t)
	for _, ch := range channels {
		args = append(args, ch)
	}

	rows, err := ds.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT channel, arg_max(val, t) FROM samples WHERE t <= ? AND channel IN (%s) GROUP BY channel",
		placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("values-at-time query failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64, len(channels))
	for rows.Next() {
		var ch string
		var val float64
		if err := rows.Scan(&ch, &val); err != nil {
			return nil, err
		}
		out[ch] = val
	}
	return out, rows.Err()
}

// Close shuts the database down and removes the session file.
func (ds *DuckStore) Close() error {
	err := ds.db.Close()
	if rmErr := os.Remove(ds.dbPath); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}
