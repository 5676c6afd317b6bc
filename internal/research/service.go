// Package research implements the cached data operations behind the API
// surface: each operation derives a key, consults its cache engine, and falls
// through to the owning provider on a miss.
package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finsight/finsight-api/internal/cache"
	"github.com/finsight/finsight-api/internal/providers"
	"github.com/finsight/finsight-api/internal/snapshot"
	"github.com/finsight/finsight-api/pkg/cachekey"
	"github.com/finsight/finsight-api/pkg/config"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// allowedSeries is the closed set of macro series the app exposes. Requests
// outside it fail fast, before key derivation or any I/O.
var allowedSeries = map[string]bool{
	"CPIAUCSL":     true, // CPI, all urban consumers
	"UNRATE":       true, // unemployment rate
	"FEDFUNDS":     true, // effective federal funds rate
	"GDP":          true,
	"DGS10":        true, // 10-year treasury yield
	"T10Y2Y":       true, // 10y-2y spread
	"MORTGAGE30US": true,
}

// Config holds the service's collaborators, all constructed at bootstrap.
type Config struct {
	Fundamentals *providers.FundamentalsClient
	Macro        *providers.MacroClient
	Sentiment    *providers.SentimentClient
	Markets      *providers.MarketsClient
	Assessment   *providers.AssessmentClient

	// One engine per cache domain, each over its own store table.
	FundamentalsCache *cache.Engine
	QuotesCache       *cache.Engine
	MacroCache        *cache.Engine
	AssessmentCache   *cache.Engine
	SnapshotCache     *cache.Engine

	TTL    config.TTLPolicy
	Logger *zap.Logger
}

// Service exposes the cached research operations.
type Service struct {
	fundamentals *providers.FundamentalsClient
	macro        *providers.MacroClient
	sentiment    *providers.SentimentClient
	markets      *providers.MarketsClient
	assessment   *providers.AssessmentClient

	fundamentalsCache *cache.Engine
	quotesCache       *cache.Engine
	macroCache        *cache.Engine
	assessmentCache   *cache.Engine
	snapshotCache     *cache.Engine

	builder *snapshot.Builder
	ttl     config.TTLPolicy
	logger  *zap.Logger
}

// New creates the research service and its daily snapshot builder.
func New(cfg *Config) *Service {
	s := &Service{
		fundamentals:      cfg.Fundamentals,
		macro:             cfg.Macro,
		sentiment:         cfg.Sentiment,
		markets:           cfg.Markets,
		assessment:        cfg.Assessment,
		fundamentalsCache: cfg.FundamentalsCache,
		quotesCache:       cfg.QuotesCache,
		macroCache:        cfg.MacroCache,
		assessmentCache:   cfg.AssessmentCache,
		snapshotCache:     cfg.SnapshotCache,
		ttl:               cfg.TTL,
		logger:            cfg.Logger,
	}

	s.builder = snapshot.New(&snapshot.Config{
		Source: s,
		Logger: cfg.Logger,
	})

	return s
}

// Profile returns the cached company profile for a symbol.
func (s *Service) Profile(ctx context.Context, symbol string) (providers.CompanyProfile, error) {
	if strings.TrimSpace(symbol) == "" {
		return providers.CompanyProfile{}, ErrMissingSymbol
	}

	sym := cachekey.Symbol(symbol)

	return cache.FetchAs[providers.CompanyProfile](ctx, s.fundamentalsCache, cache.Spec{
		Key: "profile:" + sym,
		TTL: s.ttl.Profile,
		Fetch: func(ctx context.Context) (any, error) {
			profiles, err := s.fundamentals.FetchProfile(ctx, sym)
			if err != nil {
				return nil, err
			}
			if len(profiles) == 0 {
				return nil, fmt.Errorf("profile %s: %w", sym, ErrNoData)
			}
			return profiles, nil
		},
		Transform: func(raw any) (any, error) {
			profiles := raw.([]providers.CompanyProfile)
			return profiles[0], nil
		},
	})
}

// Statements returns the cached financial statements for a symbol. stmtType
// is income, balance or cashflow; period is annual or quarter.
func (s *Service) Statements(ctx context.Context, symbol, stmtType, period string) ([]json.RawMessage, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, ErrMissingSymbol
	}

	endpoint, ok := providers.StatementEndpoint(stmtType)
	if !ok {
		return nil, fmt.Errorf("%q: %w", stmtType, ErrInvalidStatementType)
	}

	if period != "annual" && period != "quarter" {
		return nil, fmt.Errorf("%q: %w", period, ErrInvalidPeriod)
	}

	sym := cachekey.Symbol(symbol)

	return cache.FetchAs[[]json.RawMessage](ctx, s.fundamentalsCache, cache.Spec{
		Key: cachekey.Statement(sym, stmtType, period),
		TTL: s.ttl.Statements,
		Fetch: func(ctx context.Context) (any, error) {
			rows, err := s.fundamentals.FetchStatements(ctx, endpoint, sym, period)
			if err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				return nil, fmt.Errorf("statements %s: %w", sym, ErrNoData)
			}
			return rows, nil
		},
	})
}

// Quote returns the cached quote for a symbol.
func (s *Service) Quote(ctx context.Context, symbol string) (providers.Quote, error) {
	if strings.TrimSpace(symbol) == "" {
		return providers.Quote{}, ErrMissingSymbol
	}

	sym := cachekey.Symbol(symbol)

	return cache.FetchAs[providers.Quote](ctx, s.quotesCache, cache.Spec{
		Key: "quote:" + sym,
		TTL: s.ttl.Quote,
		Fetch: func(ctx context.Context) (any, error) {
			quotes, err := s.fundamentals.FetchQuote(ctx, sym)
			if err != nil {
				return nil, err
			}
			if len(quotes) == 0 {
				return nil, fmt.Errorf("quote %s: %w", sym, ErrNoData)
			}
			return quotes, nil
		},
		Transform: func(raw any) (any, error) {
			quotes := raw.([]providers.Quote)
			return quotes[0], nil
		},
	})
}

// MacroSeries returns the cached observations for one series of the allowed set.
func (s *Service) MacroSeries(ctx context.Context, seriesID string) (providers.SeriesObservations, error) {
	if !allowedSeries[seriesID] {
		return providers.SeriesObservations{}, fmt.Errorf("%q: %w", seriesID, ErrUnknownSeries)
	}

	return cache.FetchAs[providers.SeriesObservations](ctx, s.macroCache, cache.Spec{
		Key: "macro:" + seriesID,
		TTL: s.ttl.Macro,
		Fetch: func(ctx context.Context) (any, error) {
			series, err := s.macro.FetchSeries(ctx, seriesID)
			if err != nil {
				return nil, err
			}
			if len(series.Observations) == 0 {
				return nil, fmt.Errorf("series %s: %w", seriesID, ErrNoData)
			}
			return series, nil
		},
	})
}

// Sentiment returns the cached fear/greed reading.
func (s *Service) Sentiment(ctx context.Context) (providers.SentimentReading, error) {
	return cache.FetchAs[providers.SentimentReading](ctx, s.macroCache, cache.Spec{
		Key: "sentiment",
		TTL: s.ttl.Sentiment,
		Fetch: func(ctx context.Context) (any, error) {
			return s.sentiment.FetchIndex(ctx)
		},
	})
}

// MarketOdds returns the cached prediction market matching a slug.
func (s *Service) MarketOdds(ctx context.Context, slug string) (providers.Market, error) {
	if strings.TrimSpace(slug) == "" {
		return providers.Market{}, ErrMissingSlug
	}

	return cache.FetchAs[providers.Market](ctx, s.macroCache, cache.Spec{
		Key: "market:" + slug,
		TTL: s.ttl.Markets,
		Fetch: func(ctx context.Context) (any, error) {
			markets, err := s.markets.FetchMarketBySlug(ctx, slug)
			if err != nil {
				return nil, err
			}
			if len(markets) == 0 {
				return nil, fmt.Errorf("market %s: %w", slug, ErrNoData)
			}
			return markets, nil
		},
		Transform: func(raw any) (any, error) {
			markets := raw.([]providers.Market)
			return markets[0], nil
		},
	})
}

// Holding is one position in an assessment request.
type Holding struct {
	Ticker string  `json:"ticker"`
	Weight float64 `json:"weight"`
}

// AssessmentRequest is the inbound body of the assessment endpoint.
type AssessmentRequest struct {
	ForceRefresh bool      `json:"forceRefresh"`
	UserID       string    `json:"userId"`
	Investor     string    `json:"investor"`
	Holdings     []Holding `json:"holdings"`
}

// Assessment is a generated portfolio assessment.
type Assessment struct {
	ID          string    `json:"id"`
	Investor    string    `json:"investor"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// assessmentKeyInput is the semantic identity of an assessment request.
// ForceRefresh deliberately stays out: it changes fetch behavior, not the query.
type assessmentKeyInput struct {
	Investor string    `json:"investor"`
	UserID   string    `json:"userId"`
	Holdings []Holding `json:"holdings"`
}

// Assess returns the cached AI assessment for a portfolio, generating one on
// a miss or when the request forces a refresh.
func (s *Service) Assess(ctx context.Context, req AssessmentRequest) (Assessment, error) {
	if req.UserID == "" || req.Investor == "" || len(req.Holdings) == 0 {
		return Assessment{}, ErrInvalidAssessment
	}

	key, err := cachekey.Digest(assessmentKeyInput{
		Investor: req.Investor,
		UserID:   req.UserID,
		Holdings: req.Holdings,
	})
	if err != nil {
		return Assessment{}, fmt.Errorf("derive assessment key: %w", err)
	}

	return cache.FetchAs[Assessment](ctx, s.assessmentCache, cache.Spec{
		Key:          key,
		TTL:          s.ttl.Assessment,
		ForceRefresh: req.ForceRefresh,
		Fetch: func(ctx context.Context) (any, error) {
			text, err := s.assessment.Generate(ctx, assessmentSystemPrompt(req.Investor), assessmentUserPrompt(req))
			if err != nil {
				return nil, err
			}
			return Assessment{
				ID:          uuid.New().String(),
				Investor:    req.Investor,
				Text:        text,
				GeneratedAt: time.Now().UTC(),
			}, nil
		},
	})
}

func assessmentSystemPrompt(investor string) string {
	return fmt.Sprintf(
		"You are %s. Assess the portfolio below in your own investment style: strengths, risks, and what you would change. Be concise.",
		investor)
}

func assessmentUserPrompt(req AssessmentRequest) string {
	var b strings.Builder
	b.WriteString("Portfolio holdings:\n")
	for _, h := range req.Holdings {
		fmt.Fprintf(&b, "- %s: %.1f%%\n", cachekey.Symbol(h.Ticker), h.Weight)
	}
	return b.String()
}

// DailySnapshot returns the cached composite snapshot for today (UTC),
// assembling it on the first request of the day.
func (s *Service) DailySnapshot(ctx context.Context) (snapshot.Snapshot, error) {
	return cache.FetchAs[snapshot.Snapshot](ctx, s.snapshotCache, cache.Spec{
		Key: cachekey.Daily("snapshot"),
		TTL: s.ttl.Snapshot,
		Fetch: func(ctx context.Context) (any, error) {
			return s.builder.Build(ctx)
		},
	})
}
