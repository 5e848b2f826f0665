package artifact

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"simulacra/simerr"
)

// PostgresStore persists artifacts in a PostgreSQL table, for deployments
// that already run their artifact catalog centrally rather than shipping a
// per-run SQLite file. It implements the same Store contract as
// SQLiteStore, against the same one-row-per-key schema.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgresStore connects to dsn (a standard "postgres://" connection
// string) and ensures the artifacts table exists.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, simerr.NewConfigurationError("opening artifact store", err.Error())
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, simerr.NewConfigurationError("pinging artifact store", err.Error())
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS artifacts (
		key   TEXT PRIMARY KEY,
		kind  TEXT NOT NULL,
		value TEXT NOT NULL
	)`)
	if err != nil {
		return simerr.NewConfigurationError("migrating artifact store schema", err.Error())
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// Write persists value under key, replacing any prior value.
func (s *PostgresStore) Write(key string, value Value) error {
	var kind string
	var payload interface{}
	switch v := value.(type) {
	case *Frame:
		kind = "frame"
		payload = encodedFrame{Columns: v.Columns, Rows: v.Rows}
	default:
		kind = "scalar"
		payload = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding artifact %q: %w", key, err)
	}
	_, err = s.pool.Exec(context.Background(),
		`INSERT INTO artifacts (key, kind, value) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET kind = excluded.kind, value = excluded.value`,
		key, kind, string(raw),
	)
	if err != nil {
		return simerr.NewConfigurationError("writing artifact", err.Error())
	}
	return nil
}

// Load reads key, applying filters (a filter-term expression as described
// in spec §6) if the stored value is a Frame.
func (s *PostgresStore) Load(key string, filters string) (Value, error) {
	var kind, raw string
	err := s.pool.QueryRow(context.Background(),
		`SELECT kind, value FROM artifacts WHERE key = $1`, key).Scan(&kind, &raw)
	if err == pgx.ErrNoRows {
		return nil, simerr.NewConfigurationError("artifact key not found", key)
	}
	if err != nil {
		return nil, simerr.NewConfigurationError("loading artifact", err.Error())
	}
	switch kind {
	case "frame":
		var ef encodedFrame
		if err := json.Unmarshal([]byte(raw), &ef); err != nil {
			return nil, fmt.Errorf("decoding artifact %q: %w", key, err)
		}
		frame := &Frame{Columns: ef.Columns, Rows: ef.Rows}
		if filters != "" {
			frame = frame.Filter(filters)
		}
		return frame, nil
	default:
		var scalar interface{}
		if err := json.Unmarshal([]byte(raw), &scalar); err != nil {
			return nil, fmt.Errorf("decoding artifact %q: %w", key, err)
		}
		return scalar, nil
	}
}
