package preview

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists preview records in a previews table.
type PostgresStore struct {
	db Querier
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pool for dsn and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(pool), nil
}

// EnsureSchema creates the previews table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS previews (
			id             TEXT PRIMARY KEY,
			website_url    TEXT NOT NULL,
			chatbot_script TEXT NOT NULL,
			category       TEXT NOT NULL,
			name           TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create previews table: %w", err)
	}
	return nil
}

// Create inserts record, replacing an existing record with the same ID.
func (s *PostgresStore) Create(ctx context.Context, record Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO previews (id, website_url, chatbot_script, category, name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			website_url = EXCLUDED.website_url,
			chatbot_script = EXCLUDED.chatbot_script,
			category = EXCLUDED.category,
			name = EXCLUDED.name,
			created_at = EXCLUDED.created_at`,
		record.ID, record.WebsiteURL, record.ChatbotScript, record.Category, record.Name, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert preview %s: %w", record.ID, err)
	}
	return nil
}

// Get returns the record for id or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	var record Record
	err := s.db.QueryRow(ctx, `
		SELECT id, website_url, chatbot_script, category, name, created_at
		FROM previews WHERE id = $1`, id).
		Scan(&record.ID, &record.WebsiteURL, &record.ChatbotScript, &record.Category, &record.Name, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("select preview %s: %w", id, err)
	}
	return record, nil
}

// Delete removes the record for id or returns ErrNotFound.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM previews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete preview %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all records newest-first.
func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, website_url, chatbot_script, category, name, created_at
		FROM previews ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list previews: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(&record.ID, &record.WebsiteURL, &record.ChatbotScript, &record.Category, &record.Name, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan preview row: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preview rows: %w", err)
	}
	return out, nil
}
