package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/pkg/filesystem"
	"github.com/doeshing/ridepilot/internal/ports"
)

// SQLiteStore persists interactions in a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// DefaultPath is ~/.ridepilot/memory/interactions.db.
func DefaultPath() string {
	return filepath.Join(filesystem.UserHomeDir(), ".ridepilot", "memory", "interactions.db")
}

// OpenSQLite creates (or opens) the database at path and ensures the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultPath()
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
			return nil, fmt.Errorf("create memory directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open interaction store: %w", err)
	}
	// pragmas are per connection; a single connection keeps them in force and serializes writers
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect interaction store: %w", err)
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS interactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		ts INTEGER NOT NULL,
		feature TEXT NOT NULL,
		query TEXT NOT NULL,
		response TEXT NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_feature_ts ON interactions(feature, ts);
	CREATE INDEX IF NOT EXISTS idx_interactions_ts ON interactions(ts);`)
	if err != nil {
		return fmt.Errorf("create interaction schema: %w", err)
	}
	return nil
}

// Append inserts a new interaction.
func (s *SQLiteStore) Append(ctx context.Context, in domain.Interaction) error {
	var meta []byte
	if len(in.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(in.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO interactions
		(id, ts, feature, query, response, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID,
		in.Timestamp.UnixNano(),
		string(in.Feature),
		in.Query,
		in.Response,
		nullableString(meta),
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// Recent returns the newest interactions for feature, oldest first.
func (s *SQLiteStore) Recent(ctx context.Context, feature domain.Feature, limit int) ([]domain.Interaction, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, ts, feature, query, response, metadata
		FROM interactions
		WHERE feature = ?
		ORDER BY ts DESC, seq DESC
		LIMIT ?`, string(feature), limit)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		var (
			rec     domain.Interaction
			ts      int64
			feat    string
			rawMeta sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ts, &feat, &rec.Query, &rec.Response, &rawMeta); err != nil {
			return nil, err
		}
		rec.Timestamp = time.Unix(0, ts).UTC()
		rec.Feature = domain.Feature(feat)
		if rawMeta.Valid && rawMeta.String != "" {
			if err := json.Unmarshal([]byte(rawMeta.String), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// DeleteBefore removes interactions strictly older than cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM interactions WHERE ts < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune interactions: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored interactions.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM interactions").Scan(&n)
	return n, err
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

var _ ports.InteractionStore = (*SQLiteStore)(nil)
