package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens an embedded SQLite database file. Suited to single-node
// deployments where standing up PostgreSQL is not worth it.
func OpenSQLite(path string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	logger.Info("sqlite-opened", zap.String("path", path))

	return db, nil
}

// SQLiteStore implements Store on an embedded SQLite table holding one cache domain.
type SQLiteStore struct {
	db     *sql.DB
	table  string
	logger *zap.Logger
	ownsDB bool
}

// NewSQLiteStore creates a store over one cache-domain table.
func NewSQLiteStore(db *sql.DB, table string, logger *zap.Logger) (*SQLiteStore, error) {
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	return &SQLiteStore{
		db:     db,
		table:  table,
		logger: logger,
	}, nil
}

// OwnDB marks this store as the one responsible for closing the shared handle.
func (s *SQLiteStore) OwnDB() *SQLiteStore {
	s.ownsDB = true
	return s
}

// EnsureSchema creates the cache table if it does not exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cache_key  TEXT PRIMARY KEY,
			record     TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`, s.table)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	return nil
}

// Get fetches the record stored under key. A missing key is (zero, false, nil).
func (s *SQLiteStore) Get(ctx context.Context, key string) (Record, bool, error) {
	StoreGetsTotal.Inc()

	query := fmt.Sprintf(`SELECT record FROM %s WHERE cache_key = ?`, s.table)

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		StoreErrorsTotal.Inc()
		return Record{}, false, fmt.Errorf("select record: %w", err)
	}

	var record Record
	err = json.Unmarshal(raw, &record)
	if err != nil {
		StoreErrorsTotal.Inc()
		return Record{}, false, fmt.Errorf("unmarshal record: %w", err)
	}

	return record, true, nil
}

// Put upserts the record unconditionally. Last writer wins.
func (s *SQLiteStore) Put(ctx context.Context, record Record) error {
	StorePutsTotal.Inc()

	raw, err := json.Marshal(record)
	if err != nil {
		StoreErrorsTotal.Inc()
		return fmt.Errorf("marshal record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (cache_key, record, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE
		SET record = excluded.record, expires_at = excluded.expires_at
	`, s.table)

	_, err = s.db.ExecContext(ctx, query, record.Metadata.Key, raw, record.ExpiresAt())
	if err != nil {
		StoreErrorsTotal.Inc()
		return fmt.Errorf("upsert record: %w", err)
	}

	s.logger.Debug("record-stored",
		zap.String("table", s.table),
		zap.String("key", record.Metadata.Key),
		zap.Int32("ttl-seconds", record.Metadata.TTLSeconds))

	return nil
}

// Close closes the shared handle if this store owns it.
func (s *SQLiteStore) Close() error {
	if !s.ownsDB {
		return nil
	}

	s.logger.Info("closing-sqlite-store", zap.String("table", s.table))
	return s.db.Close()
}
