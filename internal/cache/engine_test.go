package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/finsight/finsight-api/pkg/kvstore"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// fakeStore is an in-memory Store with injectable failures.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]kvstore.Record
	getErr  error
	putErr  error
	puts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]kvstore.Record)}
}

func (f *fakeStore) Get(_ context.Context, key string) (kvstore.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return kvstore.Record{}, false, f.getErr
	}

	record, found := f.records[key]
	return record, found, nil
}

func (f *fakeStore) Put(_ context.Context, record kvstore.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.puts++
	if f.putErr != nil {
		return f.putErr
	}

	f.records[record.Metadata.Key] = record
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) record(key string) (kvstore.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, found := f.records[key]
	return record, found
}

// fixedClock is a settable engine clock.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestEngine(store kvstore.Store) (*Engine, *fixedClock) {
	clock := &fixedClock{now: time.Unix(1700000000, 0)}
	engine := New(store, zap.NewNop()).WithClock(clock.Now)
	return engine, clock
}

func TestFetch_ColdMissFetchesAndStores(t *testing.T) {
	store := newFakeStore()
	engine, clock := newTestEngine(store)

	fetches := 0
	payload, err := engine.Fetch(context.Background(), Spec{
		Key: "AAPL",
		TTL: 2592000 * time.Second,
		Fetch: func(_ context.Context) (any, error) {
			fetches++
			return map[string]string{"symbol": "AAPL"}, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fetches != 1 {
		t.Errorf("expected 1 remote fetch, got %d", fetches)
	}

	var decoded map[string]string
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded["symbol"] != "AAPL" {
		t.Errorf("expected payload symbol AAPL, got %q", decoded["symbol"])
	}

	record, found := store.record("AAPL")
	if !found {
		t.Fatal("expected record to be written through")
	}
	if record.Metadata.Key != "AAPL" {
		t.Errorf("expected metadata key AAPL, got %q", record.Metadata.Key)
	}
	if record.Metadata.StoredAt != clock.Now().UnixMilli() {
		t.Errorf("expected storedAt %d, got %d", clock.Now().UnixMilli(), record.Metadata.StoredAt)
	}
	if record.Metadata.TTLSeconds != 2592000 {
		t.Errorf("expected ttlSeconds 2592000, got %d", record.Metadata.TTLSeconds)
	}
}

func TestFetch_HitDoesNotCallRemote(t *testing.T) {
	store := newFakeStore()
	engine, _ := newTestEngine(store)

	fetches := 0
	spec := Spec{
		Key: "AAPL",
		TTL: 2592000 * time.Second,
		Fetch: func(_ context.Context) (any, error) {
			fetches++
			return "payload", nil
		},
	}

	first, err := engine.Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	second, err := engine.Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if fetches != 1 {
		t.Errorf("expected 1 remote fetch across both calls, got %d", fetches)
	}
	if string(first) != string(second) {
		t.Errorf("expected hit to return stored payload verbatim: %s vs %s", first, second)
	}
}

func TestFetch_FreshnessBoundary(t *testing.T) {
	store := newFakeStore()
	engine, clock := newTestEngine(store)

	ttl := 60 * time.Second
	storedAt := clock.Now()

	fetches := 0
	spec := Spec{
		Key: "MSFT",
		TTL: ttl,
		Fetch: func(_ context.Context) (any, error) {
			fetches++
			return fetches, nil
		},
	}

	if _, err := engine.Fetch(context.Background(), spec); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}

	// One millisecond inside the window: hit.
	clock.Set(storedAt.Add(ttl - time.Millisecond))
	if _, err := engine.Fetch(context.Background(), spec); err != nil {
		t.Fatalf("fetch inside window: %v", err)
	}
	if fetches != 1 {
		t.Errorf("expected hit at ttl-1ms, remote fetches = %d", fetches)
	}

	// One millisecond past the window: miss.
	clock.Set(storedAt.Add(ttl + time.Millisecond))
	if _, err := engine.Fetch(context.Background(), spec); err != nil {
		t.Fatalf("fetch past window: %v", err)
	}
	if fetches != 2 {
		t.Errorf("expected miss at ttl+1ms, remote fetches = %d", fetches)
	}

	record, _ := store.record("MSFT")
	if record.Metadata.StoredAt != clock.Now().UnixMilli() {
		t.Errorf("expected refresh to update storedAt to %d, got %d",
			clock.Now().UnixMilli(), record.Metadata.StoredAt)
	}
}

func TestFetch_UpstreamFailureColdKeyWritesNothing(t *testing.T) {
	store := newFakeStore()
	engine, _ := newTestEngine(store)

	upstreamErr := errors.New("status 500")
	_, err := engine.Fetch(context.Background(), Spec{
		Key: "NVDA",
		TTL: time.Minute,
		Fetch: func(_ context.Context) (any, error) {
			return nil, upstreamErr
		},
	})
	if !errors.Is(err, upstreamErr) {
		t.Fatalf("expected upstream error to propagate, got %v", err)
	}

	if _, found := store.record("NVDA"); found {
		t.Error("expected no record written after failed refresh")
	}
	if store.puts != 0 {
		t.Errorf("expected zero puts, got %d", store.puts)
	}
}

func TestFetch_NoStaleFallback(t *testing.T) {
	store := newFakeStore()
	engine, clock := newTestEngine(store)

	spec := Spec{
		Key: "GOOG",
		TTL: time.Minute,
		Fetch: func(_ context.Context) (any, error) {
			return "fresh", nil
		},
	}
	if _, err := engine.Fetch(context.Background(), spec); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	stale, _ := store.record("GOOG")

	clock.Set(clock.Now().Add(2 * time.Minute))

	upstreamErr := errors.New("provider down")
	spec.Fetch = func(_ context.Context) (any, error) {
		return nil, upstreamErr
	}

	_, err := engine.Fetch(context.Background(), spec)
	if !errors.Is(err, upstreamErr) {
		t.Fatalf("expected failure, not the stale payload; got err=%v", err)
	}

	// The stale record is left alone, not refreshed and not returned.
	after, _ := store.record("GOOG")
	if after.Metadata.StoredAt != stale.Metadata.StoredAt {
		t.Error("expected stale record to be untouched by the failed refresh")
	}
}

func TestFetch_ForceRefreshBypassesFreshRecord(t *testing.T) {
	store := newFakeStore()
	engine, _ := newTestEngine(store)

	fetches := 0
	spec := Spec{
		Key: "portfolio-digest",
		TTL: time.Hour,
		Fetch: func(_ context.Context) (any, error) {
			fetches++
			return fmt.Sprintf("assessment-%d", fetches), nil
		},
	}

	if _, err := engine.Fetch(context.Background(), spec); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}

	spec.ForceRefresh = true
	payload, err := engine.Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("forced fetch: %v", err)
	}

	if fetches != 2 {
		t.Errorf("expected forced refresh to call remote again, fetches = %d", fetches)
	}

	var text string
	_ = json.Unmarshal(payload, &text)
	if text != "assessment-2" {
		t.Errorf("expected regenerated payload, got %q", text)
	}
}

func TestFetch_PutFailureStillReturnsValue(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("store unreachable")
	engine, _ := newTestEngine(store)

	payload, err := engine.Fetch(context.Background(), Spec{
		Key: "AMZN",
		TTL: time.Minute,
		Fetch: func(_ context.Context) (any, error) {
			return "value", nil
		},
	})
	if err != nil {
		t.Fatalf("expected fetched value despite put failure, got error: %v", err)
	}

	var text string
	_ = json.Unmarshal(payload, &text)
	if text != "value" {
		t.Errorf("expected fetched value back, got %q", text)
	}
}

func TestFetch_TransformApplied(t *testing.T) {
	store := newFakeStore()
	engine, _ := newTestEngine(store)

	payload, err := engine.Fetch(context.Background(), Spec{
		Key: "BRK-B",
		TTL: time.Minute,
		Fetch: func(_ context.Context) (any, error) {
			return []string{"first", "second"}, nil
		},
		Transform: func(raw any) (any, error) {
			return raw.([]string)[0], nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var text string
	_ = json.Unmarshal(payload, &text)
	if text != "first" {
		t.Errorf("expected transformed payload, got %q", text)
	}

	record, _ := store.record("BRK-B")
	var stored string
	_ = json.Unmarshal(record.Payload, &stored)
	if stored != "first" {
		t.Errorf("expected transformed payload stored, got %q", stored)
	}
}

func TestFetch_TransformErrorWritesNothing(t *testing.T) {
	store := newFakeStore()
	engine, _ := newTestEngine(store)

	transformErr := errors.New("unusable shape")
	_, err := engine.Fetch(context.Background(), Spec{
		Key: "TSLA",
		TTL: time.Minute,
		Fetch: func(_ context.Context) (any, error) {
			return "raw", nil
		},
		Transform: func(_ any) (any, error) {
			return nil, transformErr
		},
	})
	if !errors.Is(err, transformErr) {
		t.Fatalf("expected transform error to propagate, got %v", err)
	}

	if store.puts != 0 {
		t.Errorf("expected no write after transform failure, puts = %d", store.puts)
	}
}

func TestFetch_ConcurrentColdMissesBothFetch(t *testing.T) {
	store := newFakeStore()
	engine, _ := newTestEngine(store)

	var fetchMu sync.Mutex
	fetches := 0
	release := make(chan struct{})

	spec := func(value string) Spec {
		return Spec{
			Key: "MSFT",
			TTL: time.Minute,
			Fetch: func(_ context.Context) (any, error) {
				fetchMu.Lock()
				fetches++
				fetchMu.Unlock()
				<-release // hold both fetches in flight together
				return value, nil
			},
		}
	}

	var wg sync.WaitGroup
	results := make([]string, 2)
	errs := make([]error, 2)

	for i, value := range []string{"a", "b"} {
		i, value := i, value
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := engine.Fetch(context.Background(), spec(value))
			errs[i] = err
			if err == nil {
				_ = json.Unmarshal(payload, &results[i])
			}
		}()
	}

	// Wait until both misses are in flight, then let them finish.
	for {
		fetchMu.Lock()
		inFlight := fetches
		fetchMu.Unlock()
		if inFlight == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	if fetches != 2 {
		t.Errorf("expected both concurrent misses to fetch (no dedup), got %d", fetches)
	}
	for i := range errs {
		if errs[i] != nil {
			t.Errorf("caller %d: unexpected error %v", i, errs[i])
		}
		if results[i] != "a" && results[i] != "b" {
			t.Errorf("caller %d: expected a valid payload, got %q", i, results[i])
		}
	}

	// Exactly one write landed last; the stored record is one of the two.
	record, found := store.record("MSFT")
	if !found {
		t.Fatal("expected a record after concurrent misses")
	}
	var stored string
	_ = json.Unmarshal(record.Payload, &stored)
	if stored != "a" && stored != "b" {
		t.Errorf("expected last write to be one of the fetched values, got %q", stored)
	}
}

func TestFetch_StoreGetErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("store timeout")
	engine, _ := newTestEngine(store)

	_, err := engine.Fetch(context.Background(), Spec{
		Key: "AAPL",
		TTL: time.Minute,
		Fetch: func(_ context.Context) (any, error) {
			t.Fatal("remote must not be called when the store get fails")
			return nil, nil
		},
	})
	if !errors.Is(err, store.getErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}

func TestFetchAs_DecodesPayload(t *testing.T) {
	store := newFakeStore()
	engine, _ := newTestEngine(store)

	type quote struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}

	got, err := FetchAs[quote](context.Background(), engine, Spec{
		Key: "quote:AAPL",
		TTL: time.Minute,
		Fetch: func(_ context.Context) (any, error) {
			return quote{Symbol: "AAPL", Price: 187.5}, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Symbol != "AAPL" || got.Price != 187.5 {
		t.Errorf("unexpected decoded quote: %+v", got)
	}
}
