package artifact

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"simulacra/simerr"
)

// SQLiteStore persists artifacts in a single-file SQLite database: one row
// per key, holding a JSON-encoded Frame or scalar blob. modernc.org/sqlite
// is a pure-Go driver, so the store needs no cgo toolchain.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if absent) the artifact database at
// dir/artifact.db in WAL mode.
func OpenSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, simerr.NewConfigurationError("creating artifact store directory", err.Error())
	}
	dsn := filepath.Join(dir, "artifact.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, simerr.NewConfigurationError("opening artifact store", err.Error())
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, simerr.NewConfigurationError("pinging artifact store", err.Error())
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS artifacts (
		key   TEXT PRIMARY KEY,
		kind  TEXT NOT NULL,
		value TEXT NOT NULL
	)`)
	if err != nil {
		return simerr.NewConfigurationError("migrating artifact store schema", err.Error())
	}
	return nil
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

type encodedFrame struct {
	Columns map[string][]interface{} `json:"columns"`
	Rows    int                      `json:"rows"`
}

// Write persists value under key, replacing any prior value.
func (s *SQLiteStore) Write(key string, value Value) error {
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
	_, err = s.db.Exec(
		`INSERT INTO artifacts (key, kind, value) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET kind=excluded.kind, value=excluded.value`,
		key, kind, string(raw),
	)
	if err != nil {
		return simerr.NewConfigurationError("writing artifact", err.Error())
	}
	return nil
}

// Load reads key, applying filters (a filter-term expression as described
// in spec §6) if the stored value is a Frame. Absent keys are a
// configuration error: the core is expected to load only keys a model
// specification actually declares.
func (s *SQLiteStore) Load(key string, filters string) (Value, error) {
	var kind, raw string
	err := s.db.QueryRow(`SELECT kind, value FROM artifacts WHERE key = ?`, key).Scan(&kind, &raw)
	if err == sql.ErrNoRows {
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
