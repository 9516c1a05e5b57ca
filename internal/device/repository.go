package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the persistence operations against the device
// directory. This abstraction allows for different implementations
// (SQLite, mock) and enables unit testing without database dependencies.
type Repository interface {
	// RegisterOrFetch inserts a new identity for fullName or returns the
	// existing one. The directory's uniqueness constraint on full name is
	// the arbiter: concurrent calls for the same name converge to a single
	// id. On an existing identity only the recorded address is refreshed;
	// id, alias, class, max power and enabled state are returned unchanged.
	RegisterOrFetch(ctx context.Context, fullName string, class Class, alias, address string) (*Identity, error)

	// GetByID retrieves an identity by its stable id.
	// Returns ErrNotFound if the device does not exist.
	GetByID(ctx context.Context, id int64) (*Identity, error)

	// GetByFullName retrieves an identity by its unique full name.
	// Returns ErrNotFound if the device does not exist.
	GetByFullName(ctx context.Context, fullName string) (*Identity, error)

	// List retrieves all identities ordered by full name.
	List(ctx context.Context) ([]Identity, error)

	// UpdateEnabled sets the enabled flag of a device.
	// Returns ErrNotFound if the device does not exist.
	UpdateEnabled(ctx context.Context, id int64, enabled bool) error

	// UpdateMaxPower sets the max power (kW) of a device.
	// Returns ErrNotFound if the device does not exist.
	UpdateMaxPower(ctx context.Context, id int64, maxPower float64) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const identityColumns = `id, full_name, class, alias, address, enabled, max_power, created_at, updated_at`

// RegisterOrFetch inserts a new identity or refreshes the address of an
// existing one, then returns the stored row.
func (r *SQLiteRepository) RegisterOrFetch(ctx context.Context, fullName string, class Class, alias, address string) (*Identity, error) {
	if fullName == "" {
		return nil, ErrInvalidFullName
	}
	if !class.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidClass, class)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	// The upsert only touches the address on conflict: identity fields set
	// at first registration stay as they are, and the caller-observed
	// source address wins over whatever was recorded before.
	query := `
		INSERT INTO iot_devices (full_name, class, alias, address, enabled, max_power, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(full_name) DO UPDATE SET
			address = excluded.address,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		fullName,
		int(class),
		alias,
		address,
		class.DefaultMaxPower(),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting device: %w", err)
	}

	return r.GetByFullName(ctx, fullName)
}

// GetByID retrieves an identity by its stable id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM iot_devices WHERE id = ?`, id)

	ident, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return ident, nil
}

// GetByFullName retrieves an identity by its unique full name.
func (r *SQLiteRepository) GetByFullName(ctx context.Context, fullName string) (*Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM iot_devices WHERE full_name = ?`, fullName)

	ident, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying device by full name: %w", err)
	}
	return ident, nil
}

// List retrieves all identities ordered by full name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Identity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM iot_devices ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var identities []Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		identities = append(identities, *ident)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return identities, nil
}

// UpdateEnabled sets the enabled flag of a device.
func (r *SQLiteRepository) UpdateEnabled(ctx context.Context, id int64, enabled bool) error {
	return r.updateField(ctx, "enabled", boolToInt(enabled), id)
}

// UpdateMaxPower sets the max power (kW) of a device.
func (r *SQLiteRepository) UpdateMaxPower(ctx context.Context, id int64, maxPower float64) error {
	return r.updateField(ctx, "max_power", maxPower, id)
}

// updateField updates a single mutable column plus the updated_at stamp.
func (r *SQLiteRepository) updateField(ctx context.Context, column string, value any, id int64) error {
	query := fmt.Sprintf(
		"UPDATE iot_devices SET %s = ?, updated_at = ? WHERE id = ?", column)

	result, err := r.db.ExecContext(ctx, query,
		value,
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating device %s: %w", column, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanIdentity scans a row into an Identity.
func scanIdentity(scanner rowScanner) (*Identity, error) {
	var ident Identity
	var class, enabled int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&ident.ID,
		&ident.FullName,
		&class,
		&ident.Alias,
		&ident.Address,
		&enabled,
		&ident.MaxPower,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	ident.Class = Class(class)
	ident.Enabled = enabled != 0

	var parseErr error
	ident.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	ident.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &ident, nil
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
