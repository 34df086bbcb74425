package orgs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// orgsDB defines the database interface needed by the repository
type orgsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores organizations in the relational database.
type PostgresRepository struct {
	db orgsDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("orgs: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db orgsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID fetches an organization. Settings jsonb is decoded here and
// nowhere else.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID string) (*Organization, error) {
	query := `
		SELECT id, name, timezone, settings, created_at
		FROM organizations
		WHERE id = $1
	`
	var org Organization
	var settings []byte
	if err := r.db.QueryRow(ctx, query, orgID).Scan(
		&org.ID,
		&org.Name,
		&org.Timezone,
		&settings,
		&org.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("orgs: select failed: %w", err)
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &org.Settings); err != nil {
			return nil, fmt.Errorf("orgs: decode settings: %w", err)
		}
	}
	return &org, nil
}

// SaveSettings persists the typed settings struct and validates the timezone
// before it can ever reach the scheduling core.
func (r *PostgresRepository) SaveSettings(ctx context.Context, orgID, timezone string, settings Settings) error {
	if err := ValidateTimezone(timezone); err != nil {
		return err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("orgs: encode settings: %w", err)
	}
	query := `
		UPDATE organizations
		SET timezone = $2, settings = $3
		WHERE id = $1
	`
	ct, err := r.db.Exec(ctx, query, orgID, timezone, data)
	if err != nil {
		return fmt.Errorf("orgs: update settings: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
