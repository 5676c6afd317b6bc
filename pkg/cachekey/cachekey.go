// Package cachekey derives stable cache keys from logical requests.
// Derivation is pure: the same semantic input always yields the same key,
// and no I/O happens here. Input validation (closed identifier sets and the
// like) belongs to callers, before derivation.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Symbol canonicalizes a ticker symbol for use as a cache key and as the
// upstream query parameter. Applying it before both keeps cache and remote
// in lockstep. Dots become dashes (BRK.B -> BRK-B), the provider's convention.
func Symbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	return strings.ReplaceAll(s, ".", "-")
}

// Statement builds the key for one statement lookup: symbol, statement type
// and reporting period together identify the query.
func Statement(symbol, stmtType, period string) string {
	return fmt.Sprintf("%s:%s:%s", Symbol(symbol), stmtType, period)
}

// Digest derives a collision-resistant key for a composite request by hashing
// a canonical JSON rendering of it. The value is round-tripped through a
// generic decode so that map keys end up sorted regardless of how the input
// struct declares its fields; two independently constructed but semantically
// equal requests therefore digest identically.
func Digest(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal input: %w", err)
	}

	var generic any
	err = json.Unmarshal(raw, &generic)
	if err != nil {
		return "", fmt.Errorf("normalize input: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("canonicalize input: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Daily appends the current UTC calendar date to name, so the first request
// of each day naturally misses and repopulates. "Today" is evaluated here,
// at request time, never at process start.
func Daily(name string) string {
	return DailyAt(name, time.Now())
}

// DailyAt is Daily with an explicit clock reading.
func DailyAt(name string, now time.Time) string {
	return fmt.Sprintf("%s:%s", name, now.UTC().Format("2006-01-02"))
}
