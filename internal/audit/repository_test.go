package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupAuditDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	// In-memory SQLite gives every pooled connection its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema := `CREATE TABLE audit_logs (
		id         TEXT PRIMARY KEY,
		action     TEXT NOT NULL,
		device_id  INTEGER NOT NULL,
		outcome    TEXT NOT NULL,
		source     TEXT NOT NULL,
		details    TEXT,
		created_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func TestCreateGeneratesIDAndTimestamp(t *testing.T) {
	repo := NewSQLiteRepository(setupAuditDB(t))
	ctx := context.Background()

	entry := &Entry{
		Action:   ActionSetStatus,
		DeviceID: 7,
		Outcome:  OutcomeOK,
		Source:   "api",
		Details:  map[string]any{"enabled": false},
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if entry.ID == "" {
		t.Error("ID not generated")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestListFiltersAndPagination(t *testing.T) {
	repo := NewSQLiteRepository(setupAuditDB(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seed := []Entry{
		{Action: ActionRegister, DeviceID: 7, Outcome: OutcomeOK, Source: "coap", CreatedAt: base},
		{Action: ActionSetStatus, DeviceID: 7, Outcome: OutcomeRejected, Source: "api", CreatedAt: base.Add(time.Minute)},
		{Action: ActionSetStatus, DeviceID: 3, Outcome: OutcomeOK, Source: "api", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	t.Run("all newest first", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Total != 3 || len(result.Entries) != 3 {
			t.Fatalf("total = %d entries = %d, want 3/3", result.Total, len(result.Entries))
		}
		if result.Entries[0].DeviceID != 3 {
			t.Errorf("first entry device = %d, want newest (3)", result.Entries[0].DeviceID)
		}
	})

	t.Run("filter by action", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Action: ActionRegister})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Total != 1 || result.Entries[0].Action != ActionRegister {
			t.Errorf("result = %+v, want single register entry", result)
		}
	})

	t.Run("filter by device", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{DeviceID: 7})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Total != 2 {
			t.Errorf("total = %d, want 2", result.Total)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Total != 3 || len(result.Entries) != 1 {
			t.Errorf("total = %d entries = %d, want 3/1", result.Total, len(result.Entries))
		}
	})
}

func TestListDetailsRoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(setupAuditDB(t))
	ctx := context.Background()

	entry := &Entry{
		Action:   ActionSetMaxPower,
		DeviceID: 7,
		Outcome:  OutcomeOK,
		Source:   "api",
		Details:  map[string]any{"max_power_kw": 10.0},
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got := result.Entries[0].Details["max_power_kw"]; got != 10.0 {
		t.Errorf("details max_power_kw = %v, want 10", got)
	}
}

func TestListEmpty(t *testing.T) {
	repo := NewSQLiteRepository(setupAuditDB(t))

	result, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Entries == nil || len(result.Entries) != 0 {
		t.Errorf("entries = %v, want empty non-nil slice", result.Entries)
	}
}
