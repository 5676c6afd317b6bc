// Package snapshot assembles the daily market snapshot: a composite of
// independently cached sub-series fetched in parallel. If any leg fails the
// whole build fails; a partial snapshot is never produced.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/finsight/finsight-api/internal/providers"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DataSource provides the cached per-series operations the snapshot is built
// from. Each call caches its own result under its own key and TTL,
// independent of the snapshot's.
type DataSource interface {
	MacroSeries(ctx context.Context, seriesID string) (providers.SeriesObservations, error)
	Sentiment(ctx context.Context) (providers.SentimentReading, error)
	MarketOdds(ctx context.Context, slug string) (providers.Market, error)
	Quote(ctx context.Context, symbol string) (providers.Quote, error)
}

// Default composition of the daily snapshot.
var (
	defaultSeries  = []string{"CPIAUCSL", "UNRATE", "FEDFUNDS", "DGS10"}
	defaultSlugs   = []string{"us-recession-in-2026", "fed-decision-in-september"}
	defaultSymbols = []string{"SPY", "QQQ", "DIA"}
)

// Config holds the builder's collaborators and composition.
type Config struct {
	Source DataSource
	Logger *zap.Logger

	// Optional overrides of the default composition.
	Series  []string
	Slugs   []string
	Symbols []string
}

// Builder assembles daily snapshots.
type Builder struct {
	source  DataSource
	logger  *zap.Logger
	series  []string
	slugs   []string
	symbols []string
}

// New creates a snapshot builder.
func New(cfg *Config) *Builder {
	b := &Builder{
		source:  cfg.Source,
		logger:  cfg.Logger,
		series:  cfg.Series,
		slugs:   cfg.Slugs,
		symbols: cfg.Symbols,
	}

	if len(b.series) == 0 {
		b.series = defaultSeries
	}
	if len(b.slugs) == 0 {
		b.slugs = defaultSlugs
	}
	if len(b.symbols) == 0 {
		b.symbols = defaultSymbols
	}

	return b
}

// Snapshot is one assembled daily composite.
type Snapshot struct {
	Date      string                                  `json:"date"`
	Macro     map[string]providers.SeriesObservations `json:"macro"`
	Sentiment providers.SentimentReading              `json:"sentiment"`
	Markets   map[string]providers.Market             `json:"markets"`
	Quotes    map[string]providers.Quote              `json:"quotes"`
	BuiltAt   time.Time                               `json:"builtAt"`
}

// Build fetches all legs in parallel and assembles the snapshot. The join is
// fail-fast: the first leg error cancels the rest and fails the build.
func (b *Builder) Build(ctx context.Context) (Snapshot, error) {
	started := time.Now().UTC()

	snap := Snapshot{
		Date:    started.Format("2006-01-02"),
		Macro:   make(map[string]providers.SeriesObservations, len(b.series)),
		Markets: make(map[string]providers.Market, len(b.slugs)),
		Quotes:  make(map[string]providers.Quote, len(b.symbols)),
		BuiltAt: started,
	}

	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex

	for _, seriesID := range b.series {
		seriesID := seriesID
		g.Go(func() error {
			series, err := b.source.MacroSeries(gctx, seriesID)
			if err != nil {
				return err
			}
			mu.Lock()
			snap.Macro[seriesID] = series
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		reading, err := b.source.Sentiment(gctx)
		if err != nil {
			return err
		}
		mu.Lock()
		snap.Sentiment = reading
		mu.Unlock()
		return nil
	})

	for _, slug := range b.slugs {
		slug := slug
		g.Go(func() error {
			market, err := b.source.MarketOdds(gctx, slug)
			if err != nil {
				return err
			}
			mu.Lock()
			snap.Markets[slug] = market
			mu.Unlock()
			return nil
		})
	}

	for _, symbol := range b.symbols {
		symbol := symbol
		g.Go(func() error {
			quote, err := b.source.Quote(gctx, symbol)
			if err != nil {
				return err
			}
			mu.Lock()
			snap.Quotes[symbol] = quote
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		BuildFailuresTotal.Inc()
		return Snapshot{}, err
	}

	BuildsTotal.Inc()
	b.logger.Info("snapshot-built",
		zap.String("date", snap.Date),
		zap.Int("series", len(snap.Macro)),
		zap.Int("markets", len(snap.Markets)),
		zap.Int("quotes", len(snap.Quotes)),
		zap.Duration("elapsed", time.Since(started)))

	return snap, nil
}
