// Package cache implements the read-through cache engine sitting between the
// research operations and the upstream providers. The engine owns the
// freshness decision; the durable store only holds bytes.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/finsight/finsight-api/pkg/kvstore"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Spec is the per-call configuration for one cached fetch. It is built fresh
// on every inbound request and discarded after the call returns.
type Spec struct {
	// Key identifies the logical query.
	Key string

	// TTL is the freshness window. The engine judges staleness against this
	// value, not against whatever TTL an older record was written with.
	TTL time.Duration

	// ForceRefresh treats any stored record as stale, forcing a remote fetch.
	ForceRefresh bool

	// Fetch calls the upstream provider. Required.
	Fetch func(ctx context.Context) (any, error)

	// Transform optionally reshapes the raw provider response before it is
	// stored. Nil means the response is stored as-is.
	Transform func(raw any) (any, error)
}

// Engine is a stampede-naive read-through cache. Concurrent misses on the
// same key each fetch and each write; the last write wins. A failed refresh
// is propagated even when a stale record exists.
type Engine struct {
	store  kvstore.Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates an engine over the given store.
func New(store kvstore.Store, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the engine's clock. Used by tests to sit exactly on the
// freshness boundary.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Fetch returns the cached payload for spec.Key when fresh, otherwise calls
// spec.Fetch, stamps and write-throughs the result, and returns it.
//
// A hit is returned verbatim as stored; the TTL is the only freshness signal.
// On a miss, a fetch or transform failure propagates to the caller and
// nothing is written. A failed store write after a successful fetch is logged
// and tolerated: the caller still gets the fresh value, the cache just loses
// one fill.
func (e *Engine) Fetch(ctx context.Context, spec Spec) (json.RawMessage, error) {
	record, found, err := e.store.Get(ctx, spec.Key)
	if err != nil {
		return nil, fmt.Errorf("store get %s: %w", spec.Key, err)
	}

	if found && !spec.ForceRefresh && e.fresh(record, spec.TTL) {
		HitsTotal.Inc()
		e.logger.Debug("cache-hit", zap.String("key", spec.Key))
		return record.Payload, nil
	}

	MissesTotal.Inc()
	e.logger.Debug("cache-miss",
		zap.String("key", spec.Key),
		zap.Bool("had-stale", found),
		zap.Bool("force-refresh", spec.ForceRefresh))

	raw, err := spec.Fetch(ctx)
	if err != nil {
		RefreshErrorsTotal.Inc()
		return nil, fmt.Errorf("refresh %s: %w", spec.Key, err)
	}

	result := raw
	if spec.Transform != nil {
		result, err = spec.Transform(raw)
		if err != nil {
			RefreshErrorsTotal.Inc()
			return nil, fmt.Errorf("transform %s: %w", spec.Key, err)
		}
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal payload %s: %w", spec.Key, err)
	}

	fresh := kvstore.Record{
		Metadata: kvstore.Metadata{
			Key:        spec.Key,
			StoredAt:   e.now().UnixMilli(),
			TTLSeconds: int32(spec.TTL / time.Second),
		},
		Payload: payload,
	}

	err = e.store.Put(ctx, fresh)
	if err != nil {
		// Degrades to an uncached fetch; the value still goes back.
		WriteFailuresTotal.Inc()
		e.logger.Warn("cache-write-failed",
			zap.String("key", spec.Key),
			zap.Error(err))
	}

	return payload, nil
}

// fresh reports whether the record is inside the freshness window, judged by
// the timestamp embedded in the record rather than any store-side metadata.
func (e *Engine) fresh(record kvstore.Record, ttl time.Duration) bool {
	age := e.now().UnixMilli() - record.Metadata.StoredAt
	return age < ttl.Milliseconds()
}

// FetchAs runs engine.Fetch and decodes the payload into T.
func FetchAs[T any](ctx context.Context, engine *Engine, spec Spec) (T, error) {
	var out T

	payload, err := engine.Fetch(ctx, spec)
	if err != nil {
		return out, err
	}

	err = json.Unmarshal(payload, &out)
	if err != nil {
		return out, fmt.Errorf("decode payload %s: %w", spec.Key, err)
	}

	return out, nil
}
