package measurement

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PowerStore persists power meter samples.
type PowerStore interface {
	Insert(ctx context.Context, m *PowerMeasurement) error
	ListByDevice(ctx context.Context, deviceID int64, limit int) ([]PowerMeasurement, error)
	HourlyReport(ctx context.Context, deviceID int64, since time.Time) ([]HourlyPower, error)
	Summary(ctx context.Context, deviceID int64) (*PowerSummary, error)
}

// TransformerStore persists transformer snapshots.
type TransformerStore interface {
	Insert(ctx context.Context, m *TransformerMeasurement) error
	ListByDevice(ctx context.Context, deviceID int64, limit int) ([]TransformerMeasurement, error)
}

// SQLitePowerStore is the SQLite-backed PowerStore.
type SQLitePowerStore struct {
	db *sql.DB
}

// NewSQLitePowerStore creates a power store backed by db.
func NewSQLitePowerStore(db *sql.DB) *SQLitePowerStore {
	return &SQLitePowerStore{db: db}
}

func (s *SQLitePowerStore) Insert(ctx context.Context, m *PowerMeasurement) error {
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO power_meter_measurements (device_id, power, recorded_at)
		VALUES (?, ?, ?)`,
		m.DeviceID, m.Power, m.RecordedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert power measurement: %w", err)
	}

	m.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert power measurement: last insert id: %w", err)
	}
	return nil
}

func (s *SQLitePowerStore) ListByDevice(ctx context.Context, deviceID int64, limit int) ([]PowerMeasurement, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, power, recorded_at
		FROM power_meter_measurements
		WHERE device_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list power measurements: %w", err)
	}
	defer rows.Close()

	var out []PowerMeasurement
	for rows.Next() {
		var m PowerMeasurement
		var recorded string
		if err := rows.Scan(&m.ID, &m.DeviceID, &m.Power, &recorded); err != nil {
			return nil, fmt.Errorf("scan power measurement: %w", err)
		}
		m.RecordedAt, _ = time.Parse(time.RFC3339, recorded)
		out = append(out, m)
	}
	return out, rows.Err()
}

// HourlyReport aggregates samples since the given time into per-hour
// average, peak and sample count, oldest hour first.
func (s *SQLitePowerStore) HourlyReport(ctx context.Context, deviceID int64, since time.Time) ([]HourlyPower, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%dT%H:00', recorded_at) AS hour,
		       AVG(power), MAX(power), COUNT(*)
		FROM power_meter_measurements
		WHERE device_id = ? AND recorded_at >= ?
		GROUP BY hour
		ORDER BY hour ASC`,
		deviceID, since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("hourly power report: %w", err)
	}
	defer rows.Close()

	var out []HourlyPower
	for rows.Next() {
		var h HourlyPower
		if err := rows.Scan(&h.Hour, &h.Average, &h.Peak, &h.Samples); err != nil {
			return nil, fmt.Errorf("scan hourly power report: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Summary aggregates the device's whole power history. A device with no
// samples yields a zero summary, not an error.
func (s *SQLitePowerStore) Summary(ctx context.Context, deviceID int64) (*PowerSummary, error) {
	var sum PowerSummary
	var avg, peak sql.NullFloat64
	var first, last sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT AVG(power), MAX(power), COUNT(*),
		       MIN(recorded_at), MAX(recorded_at)
		FROM power_meter_measurements
		WHERE device_id = ?`,
		deviceID,
	).Scan(&avg, &peak, &sum.Samples, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("power summary: %w", err)
	}

	sum.Average = avg.Float64
	sum.Peak = peak.Float64
	if first.Valid {
		sum.First, _ = time.Parse(time.RFC3339, first.String)
	}
	if last.Valid {
		sum.Last, _ = time.Parse(time.RFC3339, last.String)
	}
	return &sum, nil
}

// SQLiteTransformerStore is the SQLite-backed TransformerStore.
type SQLiteTransformerStore struct {
	db *sql.DB
}

// NewSQLiteTransformerStore creates a transformer store backed by db.
func NewSQLiteTransformerStore(db *sql.DB) *SQLiteTransformerStore {
	return &SQLiteTransformerStore{db: db}
}

func (s *SQLiteTransformerStore) Insert(ctx context.Context, m *TransformerMeasurement) error {
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transformer_measurements
			(device_id, state, current_a, current_b, current_c,
			 voltage_a, voltage_b, voltage_c, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.DeviceID, m.State, m.Ia, m.Ib, m.Ic, m.Va, m.Vb, m.Vc,
		m.RecordedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert transformer measurement: %w", err)
	}

	m.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert transformer measurement: last insert id: %w", err)
	}
	return nil
}

func (s *SQLiteTransformerStore) ListByDevice(ctx context.Context, deviceID int64, limit int) ([]TransformerMeasurement, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, state, current_a, current_b, current_c,
		       voltage_a, voltage_b, voltage_c, recorded_at
		FROM transformer_measurements
		WHERE device_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transformer measurements: %w", err)
	}
	defer rows.Close()

	var out []TransformerMeasurement
	for rows.Next() {
		var m TransformerMeasurement
		var recorded string
		if err := rows.Scan(&m.ID, &m.DeviceID, &m.State, &m.Ia, &m.Ib, &m.Ic,
			&m.Va, &m.Vb, &m.Vc, &recorded); err != nil {
			return nil, fmt.Errorf("scan transformer measurement: %w", err)
		}
		m.RecordedAt, _ = time.Parse(time.RFC3339, recorded)
		out = append(out, m)
	}
	return out, rows.Err()
}
