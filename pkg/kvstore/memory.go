package kvstore

import (
	"context"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// MemoryStore is a Store backed by Ristretto. It is the development and test
// driver: records do not survive a restart, and its native TTL eviction is
// advisory only since the cache engine re-checks freshness on every read.
type MemoryStore struct {
	cache  *ristretto.Cache
	logger *zap.Logger
}

// MemoryConfig holds configuration for the in-memory store.
type MemoryConfig struct {
	NumCounters int64 // number of keys to track frequency (10x max items)
	MaxCost     int64 // maximum number of records held
	BufferItems int64 // keys per Get buffer
	Logger      *zap.Logger
}

// NewMemoryStore creates a new Ristretto-backed store.
func NewMemoryStore(cfg *MemoryConfig) (*MemoryStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &MemoryStore{
		cache:  cache,
		logger: cfg.Logger,
	}, nil
}

// Get fetches the record stored under key.
func (m *MemoryStore) Get(_ context.Context, key string) (Record, bool, error) {
	StoreGetsTotal.Inc()

	value, found := m.cache.Get(key)
	if !found {
		return Record{}, false, nil
	}

	record, ok := value.(Record)
	if !ok {
		return Record{}, false, nil
	}

	return record, true, nil
}

// Put stores the record, overwriting any existing one at the same key.
func (m *MemoryStore) Put(_ context.Context, record Record) error {
	StorePutsTotal.Inc()

	// Cost = 1, counting records rather than bytes.
	m.cache.SetWithTTL(record.Metadata.Key, record, 1, record.TTL())

	m.logger.Debug("record-stored",
		zap.String("key", record.Metadata.Key),
		zap.Int32("ttl-seconds", record.Metadata.TTLSeconds))

	return nil
}

// Wait blocks until all pending writes have been applied. Ristretto buffers
// writes, so tests call this before reading back.
func (m *MemoryStore) Wait() {
	m.cache.Wait()
}

// Close releases the underlying cache.
func (m *MemoryStore) Close() error {
	m.cache.Close()
	m.logger.Info("memory-store-closed")
	return nil
}
