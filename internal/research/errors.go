package research

import "errors"

// Validation errors, rejected before any cache or remote I/O.
var (
	ErrMissingSymbol        = errors.New("missing symbol")
	ErrMissingSlug          = errors.New("missing market slug")
	ErrInvalidStatementType = errors.New("statement type must be income, balance or cashflow")
	ErrInvalidPeriod        = errors.New("period must be annual or quarter")
	ErrUnknownSeries        = errors.New("unknown macro series")
	ErrInvalidAssessment    = errors.New("assessment request requires userId, investor and holdings")
)

// ErrNoData is the domain-level not-found: the upstream call succeeded but
// yielded nothing usable. Distinct from a transport or status failure.
var ErrNoData = errors.New("no data for request")
