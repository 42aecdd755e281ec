package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/messengerflow/inbox-service/internal/domain"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

const pgUndefinedTable = "42P01"

// PostgresBackend serves relay actions from a local pgx pool. Selected when
// POSTGRES_DSN is configured (self-hosted mode); the schema matches the
// hosted store's column names, so records are interchangeable between the
// two backends.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend wraps the pool.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// Ping verifies pool connectivity.
func (b *PostgresBackend) Ping(ctx context.Context) (PingResult, error) {
	if err := b.pool.Ping(ctx); err != nil {
		return PingResult{OK: false, Status: 503, Provider: "local/postgres"}, nil
	}
	return PingResult{OK: true, Status: 200, Provider: "local/postgres"}, nil
}

// Find lists rows as JSON objects, optionally narrowed to one id.
func (b *PostgresBackend) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	query := fmt.Sprintf(`SELECT to_jsonb(t) FROM %q t`, collection)
	args := []any{}
	if id, ok := filter["id"].(string); ok && id != "" {
		query += " WHERE t.id = $1"
		args = append(args, id)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(collection, err)
	}
	defer rows.Close()

	docs := []map[string]any{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(collection, err)
	}
	return docs, nil
}

// Upsert inserts or merges one record keyed by id. Only the columns present
// in the record are written, preserving merge-on-id semantics.
func (b *PostgresBackend) Upsert(ctx context.Context, collection string, record map[string]any) (string, error) {
	id, _ := record["id"].(string)

	cols := make([]string, 0, len(record))
	for col := range record {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	quoted := make([]string, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	updates := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		quoted = append(quoted, fmt.Sprintf("%q", col))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%q = EXCLUDED.%q", col, col))
		}
		args = append(args, pgValue(record[col]))
	}

	query := fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s`,
		collection,
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
	if len(updates) == 0 {
		query = fmt.Sprintf(`INSERT INTO %q (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, collection)
	}

	if _, err := b.pool.Exec(ctx, query, args...); err != nil {
		return "", mapPgError(collection, err)
	}
	return id, nil
}

// Delete removes one row by id; absence is not an error.
func (b *PostgresBackend) Delete(ctx context.Context, collection, id string) error {
	query := fmt.Sprintf(`DELETE FROM %q WHERE id = $1`, collection)
	if _, err := b.pool.Exec(ctx, query, id); err != nil {
		return mapPgError(collection, err)
	}
	return nil
}

// ListCollections reports existence and row count per known table.
func (b *PostgresBackend) ListCollections(ctx context.Context) ([]domain.CollectionStat, error) {
	stats := make([]domain.CollectionStat, 0, len(KnownCollections))
	for _, table := range KnownCollections {
		stat := domain.CollectionStat{Name: table}

		var count int
		err := b.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %q`, table)).Scan(&count)
		if err == nil {
			stat.Exists = true
			stat.Count = count
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// pgValue normalizes decoded-JSON values for pgx parameter binding. Arrays
// and objects target JSONB columns and are passed as encoded JSON.
func pgValue(v any) any {
	switch v.(type) {
	case []any, map[string]any:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return raw
	default:
		return v
	}
}

func mapPgError(collection string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return apperrors.NewSchemaMissing(fmt.Sprintf("table [%s] not found", collection))
	}
	return apperrors.NewRelayError(500, fmt.Sprintf("table [%s] error", collection), err.Error())
}
