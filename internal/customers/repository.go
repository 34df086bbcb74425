package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// customersDB defines the database interface needed by the repository
type customersDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores customers in the relational database.
type PostgresRepository struct {
	db customersDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("customers: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db customersDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetOrCreateByPhone resolves the customer for a normalized phone, creating
// the row on first sight. An existing row keeps its name; the unique
// (org_id, phone) constraint makes the upsert race-safe.
func (r *PostgresRepository) GetOrCreateByPhone(ctx context.Context, orgID, name, phone string) (*Customer, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return nil, fmt.Errorf("customers: empty phone after normalization")
	}

	query := `
		INSERT INTO customers (id, org_id, name, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (org_id, phone)
		DO UPDATE SET phone = EXCLUDED.phone
		RETURNING id, org_id, name, phone, created_at
	`
	var c Customer
	if err := r.db.QueryRow(ctx, query, uuid.New(), orgID, name, normalized).Scan(
		&c.ID, &c.OrgID, &c.Name, &c.Phone, &c.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("customers: upsert by phone: %w", err)
	}
	return &c, nil
}

// GetByID fetches a customer scoped to the org.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID, id string) (*Customer, error) {
	query := `
		SELECT id, org_id, name, phone, created_at
		FROM customers
		WHERE id = $1 AND org_id = $2
	`
	var c Customer
	if err := r.db.QueryRow(ctx, query, id, orgID).Scan(
		&c.ID, &c.OrgID, &c.Name, &c.Phone, &c.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("customers: select failed: %w", err)
	}
	return &c, nil
}
