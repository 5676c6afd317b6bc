package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// OpenPostgres opens and pings a shared PostgreSQL connection pool.
// One pool serves all per-domain stores.
func OpenPostgres(cfg *PostgresConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return db, nil
}

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStore implements Store on a PostgreSQL table holding one cache domain.
type PostgresStore struct {
	db     *sql.DB
	table  string
	logger *zap.Logger

	// ownsDB marks the store that closes the shared pool on Close.
	ownsDB bool
}

// NewPostgresStore creates a store over one cache-domain table. The table
// name is interpolated into SQL, so it is restricted to identifier characters.
func NewPostgresStore(db *sql.DB, table string, logger *zap.Logger) (*PostgresStore, error) {
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	return &PostgresStore{
		db:     db,
		table:  table,
		logger: logger,
	}, nil
}

// OwnDB marks this store as the one responsible for closing the shared pool.
func (p *PostgresStore) OwnDB() *PostgresStore {
	p.ownsDB = true
	return p
}

// EnsureSchema creates the cache table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cache_key  TEXT PRIMARY KEY,
			record     JSONB NOT NULL,
			expires_at BIGINT NOT NULL
		)
	`, p.table)

	_, err := p.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("create table %s: %w", p.table, err)
	}

	return nil
}

// Get fetches the record stored under key. A missing key is (zero, false, nil).
func (p *PostgresStore) Get(ctx context.Context, key string) (Record, bool, error) {
	StoreGetsTotal.Inc()

	query := fmt.Sprintf(`SELECT record FROM %s WHERE cache_key = $1`, p.table)

	var raw []byte
	err := p.db.QueryRowContext(ctx, query, key).Scan(&raw)
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
func (p *PostgresStore) Put(ctx context.Context, record Record) error {
	StorePutsTotal.Inc()

	raw, err := json.Marshal(record)
	if err != nil {
		StoreErrorsTotal.Inc()
		return fmt.Errorf("marshal record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (cache_key, record, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE
		SET record = EXCLUDED.record, expires_at = EXCLUDED.expires_at
	`, p.table)

	_, err = p.db.ExecContext(ctx, query, record.Metadata.Key, raw, record.ExpiresAt())
	if err != nil {
		StoreErrorsTotal.Inc()
		return fmt.Errorf("upsert record: %w", err)
	}

	p.logger.Debug("record-stored",
		zap.String("table", p.table),
		zap.String("key", record.Metadata.Key),
		zap.Int32("ttl-seconds", record.Metadata.TTLSeconds))

	return nil
}

// Close closes the shared pool if this store owns it.
func (p *PostgresStore) Close() error {
	if !p.ownsDB {
		return nil
	}

	p.logger.Info("closing-postgres-store", zap.String("table", p.table))
	return p.db.Close()
}
