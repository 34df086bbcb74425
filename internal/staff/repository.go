package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// staffDB defines the database interface needed by the repository
type staffDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository resolves staff and service references scoped to an org.
type PostgresRepository struct {
	db staffDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("staff: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db staffDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetMember fetches a staff member scoped to the org. Ownership checks hang
// off the org filter in the WHERE clause: a staff id from another org is
// simply not found.
func (r *PostgresRepository) GetMember(ctx context.Context, orgID, staffID string) (*Member, error) {
	query := `
		SELECT id, org_id, name, active, created_at
		FROM staff_members
		WHERE id = $1 AND org_id = $2
	`
	var m Member
	if err := r.db.QueryRow(ctx, query, staffID, orgID).Scan(
		&m.ID, &m.OrgID, &m.Name, &m.Active, &m.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("staff: select member: %w", err)
	}
	return &m, nil
}

// GetService fetches a service scoped to the org.
func (r *PostgresRepository) GetService(ctx context.Context, orgID, serviceID string) (*Service, error) {
	query := `
		SELECT id, org_id, name, duration_min
		FROM services
		WHERE id = $1 AND org_id = $2
	`
	var s Service
	if err := r.db.QueryRow(ctx, query, serviceID, orgID).Scan(
		&s.ID, &s.OrgID, &s.Name, &s.DurationMin,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("staff: select service: %w", err)
	}
	return &s, nil
}

// ListMembers returns the org's roster ordered by name.
func (r *PostgresRepository) ListMembers(ctx context.Context, orgID string) ([]*Member, error) {
	query := `
		SELECT id, org_id, name, active, created_at
		FROM staff_members
		WHERE org_id = $1
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("staff: list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.OrgID, &m.Name, &m.Active, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("staff: scan member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}
