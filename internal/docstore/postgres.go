package docstore

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps documents as jsonb rows in the documents table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Collection(name string) Collection {
	return &postgresCollection{pool: s.pool, name: name}
}

type postgresCollection struct {
	pool *pgxpool.Pool
	name string
}

func (c *postgresCollection) Set(ctx context.Context, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}
	const query = `
        INSERT INTO documents (collection, id, body)
        VALUES ($1, $2, $3::jsonb)
        ON CONFLICT (collection, id)
        DO UPDATE SET body = EXCLUDED.body, updated_at = now()
    `
	if _, err := c.pool.Exec(ctx, query, c.name, id, body); err != nil {
		return fmt.Errorf("upsert document %s/%s: %w", c.name, id, err)
	}
	return nil
}

func (c *postgresCollection) Get(ctx context.Context, id string, dst any) error {
	const query = `SELECT body FROM documents WHERE collection = $1 AND id = $2`
	var body []byte
	if err := c.pool.QueryRow(ctx, query, c.name, id).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get document %s/%s: %w", c.name, id, err)
	}
	return json.Unmarshal(body, dst)
}

func (c *postgresCollection) Where(ctx context.Context, field string, value any) ([]Document, error) {
	want, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode query value: %w", err)
	}
	const query = `
        SELECT id, body
        FROM documents
        WHERE collection = $1 AND body @> jsonb_build_object($2::text, $3::jsonb)
        ORDER BY id
    `
	rows, err := c.pool.Query(ctx, query, c.name, field, want)
	if err != nil {
		return nil, fmt.Errorf("query documents %s: %w", c.name, err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		out = append(out, Document{ID: id, decode: func(dst any) error {
			return json.Unmarshal(body, dst)
		}})
	}
	return out, rows.Err()
}
