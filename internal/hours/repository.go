package hours

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// hoursDB defines the database interface needed by the repository
type hoursDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores opening-hours rows per org and weekday.
type PostgresRepository struct {
	db hoursDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("hours: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db hoursDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListForOrg returns the configured rows ordered by weekday. An empty result
// means the caller should apply DefaultSchedule semantics.
func (r *PostgresRepository) ListForOrg(ctx context.Context, orgID string) ([]Row, error) {
	query := `
		SELECT org_id, weekday, open_min, close_min
		FROM opening_hours
		WHERE org_id = $1
		ORDER BY weekday
	`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("hours: list for org: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.OrgID, &row.Weekday, &row.OpenMin, &row.CloseMin); err != nil {
			return nil, fmt.Errorf("hours: scan row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Upsert replaces one weekday's window for an org.
func (r *PostgresRepository) Upsert(ctx context.Context, row Row) error {
	query := `
		INSERT INTO opening_hours (org_id, weekday, open_min, close_min)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (org_id, weekday)
		DO UPDATE SET open_min = EXCLUDED.open_min, close_min = EXCLUDED.close_min
	`
	if _, err := r.db.Exec(ctx, query, row.OrgID, row.Weekday, row.OpenMin, row.CloseMin); err != nil {
		return fmt.Errorf("hours: upsert: %w", err)
	}
	return nil
}
