package measurement

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupMeasurementDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	// One connection so every query sees the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE power_meter_measurements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id INTEGER NOT NULL,
		power REAL NOT NULL,
		recorded_at TEXT NOT NULL
	);
	CREATE TABLE transformer_measurements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id INTEGER NOT NULL,
		state INTEGER NOT NULL,
		current_a REAL NOT NULL,
		current_b REAL NOT NULL,
		current_c REAL NOT NULL,
		voltage_a REAL NOT NULL,
		voltage_b REAL NOT NULL,
		voltage_c REAL NOT NULL,
		recorded_at TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func TestSQLitePowerStore_InsertAndList(t *testing.T) {
	db := setupMeasurementDB(t)
	store := NewSQLitePowerStore(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		m := &PowerMeasurement{
			DeviceID:   7,
			Power:      float64(1000 * (i + 1)),
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Insert(ctx, m); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if m.ID == 0 {
			t.Error("insert did not populate ID")
		}
	}
	// A sample for another device must not leak into the listing.
	other := &PowerMeasurement{DeviceID: 8, Power: 42, RecordedAt: base}
	if err := store.Insert(ctx, other); err != nil {
		t.Fatalf("insert other device: %v", err)
	}

	got, err := store.ListByDevice(ctx, 7, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 measurements, got %d", len(got))
	}
	// Newest first.
	if got[0].Power != 3000 || got[2].Power != 1000 {
		t.Errorf("unexpected ordering: %v, %v, %v", got[0].Power, got[1].Power, got[2].Power)
	}
	if !got[0].RecordedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("recorded_at round-trip: got %v", got[0].RecordedAt)
	}
}

func TestSQLitePowerStore_ListLimit(t *testing.T) {
	db := setupMeasurementDB(t)
	store := NewSQLitePowerStore(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		m := &PowerMeasurement{DeviceID: 7, Power: float64(i)}
		if err := store.Insert(ctx, m); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := store.ListByDevice(ctx, 7, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 measurements, got %d", len(got))
	}
}

func TestSQLitePowerStore_HourlyReport(t *testing.T) {
	db := setupMeasurementDB(t)
	store := NewSQLitePowerStore(db)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	samples := []struct {
		at    time.Time
		power float64
	}{
		{day.Add(9*time.Hour + 5*time.Minute), 1000},
		{day.Add(9*time.Hour + 35*time.Minute), 3000},
		{day.Add(10*time.Hour + 15*time.Minute), 500},
	}
	for _, s := range samples {
		m := &PowerMeasurement{DeviceID: 7, Power: s.power, RecordedAt: s.at}
		if err := store.Insert(ctx, m); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	report, err := store.HourlyReport(ctx, 7, day)
	if err != nil {
		t.Fatalf("hourly report: %v", err)
	}
	if len(report) != 2 {
		t.Fatalf("expected 2 hours, got %d", len(report))
	}

	nine := report[0]
	if nine.Hour != "2026-03-10T09:00" {
		t.Errorf("first hour = %q", nine.Hour)
	}
	if nine.Average != 2000 || nine.Peak != 3000 || nine.Samples != 2 {
		t.Errorf("09:00 aggregates = avg %v peak %v n %d", nine.Average, nine.Peak, nine.Samples)
	}

	ten := report[1]
	if ten.Average != 500 || ten.Peak != 500 || ten.Samples != 1 {
		t.Errorf("10:00 aggregates = avg %v peak %v n %d", ten.Average, ten.Peak, ten.Samples)
	}
}

func TestSQLitePowerStore_HourlyReportSinceFilter(t *testing.T) {
	db := setupMeasurementDB(t)
	store := NewSQLitePowerStore(db)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	old := &PowerMeasurement{DeviceID: 7, Power: 100, RecordedAt: day.Add(-time.Hour)}
	fresh := &PowerMeasurement{DeviceID: 7, Power: 200, RecordedAt: day.Add(time.Hour)}
	for _, m := range []*PowerMeasurement{old, fresh} {
		if err := store.Insert(ctx, m); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	report, err := store.HourlyReport(ctx, 7, day)
	if err != nil {
		t.Fatalf("hourly report: %v", err)
	}
	if len(report) != 1 {
		t.Fatalf("expected 1 hour, got %d", len(report))
	}
	if report[0].Peak != 200 {
		t.Errorf("old sample leaked into report: %+v", report[0])
	}
}

func TestSQLitePowerStore_Summary(t *testing.T) {
	db := setupMeasurementDB(t)
	store := NewSQLitePowerStore(db)
	ctx := context.Background()

	t.Run("no samples", func(t *testing.T) {
		sum, err := store.Summary(ctx, 7)
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		if sum.Samples != 0 || sum.Average != 0 || sum.Peak != 0 {
			t.Errorf("empty summary = %+v", sum)
		}
		if !sum.First.IsZero() || !sum.Last.IsZero() {
			t.Errorf("empty summary has timestamps: %+v", sum)
		}
	})

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	samples := []struct {
		at    time.Time
		power float64
	}{
		{day.Add(9 * time.Hour), 1000},
		{day.Add(10 * time.Hour), 3000},
		{day.Add(11 * time.Hour), 2000},
	}
	for _, s := range samples {
		m := &PowerMeasurement{DeviceID: 7, Power: s.power, RecordedAt: s.at}
		if err := store.Insert(ctx, m); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	other := &PowerMeasurement{DeviceID: 9, Power: 9000, RecordedAt: day}
	if err := store.Insert(ctx, other); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sum, err := store.Summary(ctx, 7)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Samples != 3 || sum.Average != 2000 || sum.Peak != 3000 {
		t.Errorf("aggregates = avg %v peak %v n %d", sum.Average, sum.Peak, sum.Samples)
	}
	if !sum.First.Equal(day.Add(9*time.Hour)) || !sum.Last.Equal(day.Add(11*time.Hour)) {
		t.Errorf("window = %v .. %v", sum.First, sum.Last)
	}
}

func TestSQLiteTransformerStore_InsertAndList(t *testing.T) {
	db := setupMeasurementDB(t)
	store := NewSQLiteTransformerStore(db)
	ctx := context.Background()

	m := &TransformerMeasurement{
		DeviceID: 3,
		State:    2,
		Ia:       1.5, Ib: 1.6, Ic: 1.7,
		Va: 230.0, Vb: 229.5, Vc: 231.2,
	}
	if err := store.Insert(ctx, m); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if m.ID == 0 {
		t.Error("insert did not populate ID")
	}
	if m.RecordedAt.IsZero() {
		t.Error("insert did not default RecordedAt")
	}

	unknown := &TransformerMeasurement{DeviceID: 3, State: StateUnknown}
	if err := store.Insert(ctx, unknown); err != nil {
		t.Fatalf("insert unknown state: %v", err)
	}

	got, err := store.ListByDevice(ctx, 3, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 measurements, got %d", len(got))
	}
	// Newest first; ties on recorded_at break by id.
	if got[0].State != StateUnknown {
		t.Errorf("first state = %d, want %d", got[0].State, StateUnknown)
	}
	full := got[1]
	if full.State != 2 || full.Ia != 1.5 || full.Vc != 231.2 {
		t.Errorf("round-trip mismatch: %+v", full)
	}
}
