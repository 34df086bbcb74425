package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// apptDB defines the database interface needed by the store
type apptDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PostgresStore persists appointments with pgx. Checked writes wrap the
// overlap probe and the write in one serializable transaction so racing
// bookings for the same staff member serialize at the database.
type PostgresStore struct {
	db apptDB
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

// NewPostgresStoreWithDB allows injecting a mock database for testing.
func NewPostgresStoreWithDB(db apptDB) *PostgresStore {
	return &PostgresStore{db: db}
}

const apptColumns = `id, org_id, staff_id, service_id, customer_id, customer_name,
	customer_phone, starts_at, ends_at, status, source, notes,
	cancelled_at, cancelled_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var notes *string
	var cancelledBy *string
	if err := row.Scan(
		&a.ID, &a.OrgID, &a.StaffID, &a.ServiceID, &a.CustomerID, &a.CustomerName,
		&a.CustomerPhone, &a.StartsAt, &a.EndsAt, &a.Status, &a.Source, &notes,
		&a.CancelledAt, &cancelledBy, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if notes != nil {
		a.Notes = *notes
	}
	if cancelledBy != nil {
		a.CancelledBy = *cancelledBy
	}
	return &a, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, orgID, id string) (*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE id = $1 AND org_id = $2`
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select by id: %w", err)
	}
	return appt, nil
}

func (s *PostgresStore) ListRange(ctx context.Context, orgID string, from, to time.Time) ([]*Appointment, error) {
	query := `
		SELECT ` + apptColumns + `
		FROM appointments
		WHERE org_id = $1 AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at
	`
	rows, err := s.db.Query(ctx, query, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointments: list range: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan row: %w", err)
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindBySource(ctx context.Context, orgID, source string) (*Appointment, error) {
	query := `
		SELECT ` + apptColumns + `
		FROM appointments
		WHERE org_id = $1 AND source = $2
		ORDER BY created_at
		LIMIT 1
	`
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, orgID, source))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select by source: %w", err)
	}
	return appt, nil
}

const overlapQuery = `
	SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE org_id = $1
		  AND staff_id = $2
		  AND status <> 'CANCELLED'
		  AND ($3::uuid IS NULL OR id <> $3::uuid)
		  AND starts_at < $5 AND ends_at > $4
	)
`

func (s *PostgresStore) HasOverlap(ctx context.Context, orgID, staffID, excludeID string, start, end time.Time) (bool, error) {
	if staffID == "" {
		return false, nil
	}
	var exclude *string
	if excludeID != "" {
		exclude = &excludeID
	}
	var exists bool
	if err := s.db.QueryRow(ctx, overlapQuery, orgID, staffID, exclude, start, end).Scan(&exists); err != nil {
		return false, fmt.Errorf("appointments: overlap probe: %w", err)
	}
	return exists, nil
}

// isSerializationFailure matches SQLSTATE 40001, which Postgres raises when
// two serializable transactions collide.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func (s *PostgresStore) CreateChecked(ctx context.Context, appt *Appointment) error {
	err := s.createCheckedOnce(ctx, appt)
	if isSerializationFailure(err) {
		err = s.createCheckedOnce(ctx, appt)
	}
	return err
}

func (s *PostgresStore) createCheckedOnce(ctx context.Context, appt *Appointment) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("appointments: begin create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if appt.StaffID != nil {
		var exists bool
		if err := tx.QueryRow(ctx, overlapQuery, appt.OrgID, *appt.StaffID, nil, appt.StartsAt, appt.EndsAt).Scan(&exists); err != nil {
			return fmt.Errorf("appointments: overlap check: %w", err)
		}
		if exists {
			return ErrConflict
		}
	}

	insert := `
		INSERT INTO appointments (id, org_id, staff_id, service_id, customer_id,
			customer_name, customer_phone, starts_at, ends_at, status, source, notes,
			cancelled_at, cancelled_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if _, err := tx.Exec(ctx, insert,
		appt.ID, appt.OrgID, appt.StaffID, appt.ServiceID, appt.CustomerID,
		appt.CustomerName, appt.CustomerPhone, appt.StartsAt, appt.EndsAt,
		appt.Status, appt.Source, nullableText(appt.Notes),
		appt.CancelledAt, nullableText(appt.CancelledBy),
	); err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit create: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateChecked(ctx context.Context, appt *Appointment) error {
	err := s.updateCheckedOnce(ctx, appt)
	if isSerializationFailure(err) {
		err = s.updateCheckedOnce(ctx, appt)
	}
	return err
}

func (s *PostgresStore) updateCheckedOnce(ctx context.Context, appt *Appointment) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("appointments: begin update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if appt.StaffID != nil {
		var exists bool
		if err := tx.QueryRow(ctx, overlapQuery, appt.OrgID, *appt.StaffID, &appt.ID, appt.StartsAt, appt.EndsAt).Scan(&exists); err != nil {
			return fmt.Errorf("appointments: overlap check: %w", err)
		}
		if exists {
			return ErrConflict
		}
	}

	ct, err := tx.Exec(ctx, updateSQL,
		appt.ID, appt.OrgID, appt.StaffID, appt.ServiceID, appt.CustomerID,
		appt.CustomerName, appt.CustomerPhone, appt.StartsAt, appt.EndsAt,
		appt.Status, appt.Source, nullableText(appt.Notes),
		appt.CancelledAt, nullableText(appt.CancelledBy),
	)
	if err != nil {
		return fmt.Errorf("appointments: update: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit update: %w", err)
	}
	return nil
}

const updateSQL = `
	UPDATE appointments
	SET staff_id = $3, service_id = $4, customer_id = $5, customer_name = $6,
		customer_phone = $7, starts_at = $8, ends_at = $9, status = $10,
		source = $11, notes = $12, cancelled_at = $13, cancelled_by = $14,
		updated_at = now()
	WHERE id = $1 AND org_id = $2
`

func (s *PostgresStore) Update(ctx context.Context, appt *Appointment) error {
	ct, err := s.db.Exec(ctx, updateSQL,
		appt.ID, appt.OrgID, appt.StaffID, appt.ServiceID, appt.CustomerID,
		appt.CustomerName, appt.CustomerPhone, appt.StartsAt, appt.EndsAt,
		appt.Status, appt.Source, nullableText(appt.Notes),
		appt.CancelledAt, nullableText(appt.CancelledBy),
	)
	if err != nil {
		return fmt.Errorf("appointments: update: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, orgID, id string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
