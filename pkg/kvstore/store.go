package kvstore

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
)

// Metadata carries the bookkeeping fields of a cached record, kept separate
// from the domain payload so consumers never have to filter them back out.
type Metadata struct {
	Key        string `json:"key"`
	StoredAt   int64  `json:"storedAt"` // epoch milliseconds, stamped by the cache engine at write time
	TTLSeconds int32  `json:"ttlSeconds"`
}

// Record is the unit stored under one cache key.
type Record struct {
	Metadata Metadata        `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

// ExpiresAt returns the advisory expiry moment in epoch seconds. Stores may
// use it for their native sweeps; freshness is always re-checked on read.
func (r Record) ExpiresAt() int64 {
	return r.Metadata.StoredAt/1000 + int64(r.Metadata.TTLSeconds)
}

// TTL returns the record's freshness window as a duration.
func (r Record) TTL() time.Duration {
	return time.Duration(r.Metadata.TTLSeconds) * time.Second
}

// Store is the minimal get/put abstraction over a keyed durable store.
//
// Get returns (record, true, nil) when the key exists and (zero, false, nil)
// when it does not; absence is a normal outcome, never an error. Put
// overwrites any existing record at the same key unconditionally.
type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Put(ctx context.Context, record Record) error
	Close() error
}
