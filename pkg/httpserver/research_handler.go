package httpserver

import (
	"errors"
	"net/http"

	"github.com/finsight/finsight-api/internal/providers"
	"github.com/finsight/finsight-api/internal/research"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// ResearchHandler handles the research API endpoints. It owns user-facing
// presentation only; cache and refresh behavior live in the service.
type ResearchHandler struct {
	service *research.Service
	logger  *zap.Logger
}

// NewResearchHandler creates a new research handler.
func NewResearchHandler(service *research.Service, logger *zap.Logger) *ResearchHandler {
	return &ResearchHandler{
		service: service,
		logger:  logger,
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleProfile handles GET /api/profile?symbol=<ticker>.
func (h *ResearchHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		h.writeError(w, "missing required query parameter: symbol", http.StatusBadRequest)
		return
	}

	profile, err := h.service.Profile(r.Context(), symbol)
	if err != nil {
		h.writeFailure(w, "profile", err)
		return
	}

	h.writeJSON(w, profile)
}

// HandleStatements handles GET /api/statements?symbol=<ticker>&type=<t>&period=<p>.
// type defaults to income, period to annual.
func (h *ResearchHandler) HandleStatements(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		h.writeError(w, "missing required query parameter: symbol", http.StatusBadRequest)
		return
	}

	stmtType := r.URL.Query().Get("type")
	if stmtType == "" {
		stmtType = "income"
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "annual"
	}

	rows, err := h.service.Statements(r.Context(), symbol, stmtType, period)
	if err != nil {
		h.writeFailure(w, "statements", err)
		return
	}

	h.writeJSON(w, rows)
}

// HandleQuote handles GET /api/quote?symbol=<ticker>.
func (h *ResearchHandler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		h.writeError(w, "missing required query parameter: symbol", http.StatusBadRequest)
		return
	}

	quote, err := h.service.Quote(r.Context(), symbol)
	if err != nil {
		h.writeFailure(w, "quote", err)
		return
	}

	h.writeJSON(w, quote)
}

// HandleMacro handles GET /api/macro?series=<id>.
func (h *ResearchHandler) HandleMacro(w http.ResponseWriter, r *http.Request) {
	seriesID := r.URL.Query().Get("series")
	if seriesID == "" {
		h.writeError(w, "missing required query parameter: series", http.StatusBadRequest)
		return
	}

	series, err := h.service.MacroSeries(r.Context(), seriesID)
	if err != nil {
		h.writeFailure(w, "macro", err)
		return
	}

	h.writeJSON(w, series)
}

// HandleSentiment handles GET /api/sentiment.
func (h *ResearchHandler) HandleSentiment(w http.ResponseWriter, r *http.Request) {
	reading, err := h.service.Sentiment(r.Context())
	if err != nil {
		h.writeFailure(w, "sentiment", err)
		return
	}

	h.writeJSON(w, reading)
}

// HandleMarketOdds handles GET /api/markets?slug=<market-slug>.
func (h *ResearchHandler) HandleMarketOdds(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		h.writeError(w, "missing required query parameter: slug", http.StatusBadRequest)
		return
	}

	market, err := h.service.MarketOdds(r.Context(), slug)
	if err != nil {
		h.writeFailure(w, "markets", err)
		return
	}

	h.writeJSON(w, market)
}

// HandleSnapshot handles GET /api/snapshot.
func (h *ResearchHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.DailySnapshot(r.Context())
	if err != nil {
		h.writeFailure(w, "snapshot", err)
		return
	}

	h.writeJSON(w, snap)
}

// HandleAssessment handles POST /api/assessment.
func (h *ResearchHandler) HandleAssessment(w http.ResponseWriter, r *http.Request) {
	var req research.AssessmentRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	assessment, err := h.service.Assess(r.Context(), req)
	if err != nil {
		h.writeFailure(w, "assessment", err)
		return
	}

	h.writeJSON(w, assessment)
}

// writeFailure maps the error taxonomy onto HTTP status codes: validation
// errors are the client's fault, a domain-empty result is a 404, an upstream
// non-2xx is a bad gateway, anything else is internal.
func (h *ResearchHandler) writeFailure(w http.ResponseWriter, operation string, err error) {
	var statusErr *providers.StatusError

	switch {
	case errors.Is(err, research.ErrMissingSymbol),
		errors.Is(err, research.ErrMissingSlug),
		errors.Is(err, research.ErrInvalidStatementType),
		errors.Is(err, research.ErrInvalidPeriod),
		errors.Is(err, research.ErrUnknownSeries),
		errors.Is(err, research.ErrInvalidAssessment):
		h.writeError(w, err.Error(), http.StatusBadRequest)

	case errors.Is(err, research.ErrNoData):
		h.writeError(w, err.Error(), http.StatusNotFound)

	case errors.As(err, &statusErr):
		h.logger.Error("upstream-failure",
			zap.String("operation", operation),
			zap.String("provider", statusErr.Provider),
			zap.Int("status", statusErr.StatusCode))
		h.writeError(w, "upstream provider error", http.StatusBadGateway)

	default:
		h.logger.Error("request-failed",
			zap.String("operation", operation),
			zap.Error(err))
		h.writeError(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON writes a 200 JSON response.
func (h *ResearchHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *ResearchHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
