package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

func TestDecodeStatementRows_IndexedObject(t *testing.T) {
	// Integer keys out of order, metadata fields mixed in.
	body := []byte(`{
		"2": {"year": 2023},
		"0": {"year": 2025},
		"10": {"year": 2015},
		"1": {"year": 2024},
		"lastUpdated": "2026-08-31",
		"symbol": "AAPL"
	}`)

	rows, err := decodeStatementRows(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 4 {
		t.Fatalf("expected 4 data rows with metadata excluded, got %d", len(rows))
	}

	years := make([]int, len(rows))
	for i, row := range rows {
		var decoded struct {
			Year int `json:"year"`
		}
		if err := json.Unmarshal(row, &decoded); err != nil {
			t.Fatalf("decode row %d: %v", i, err)
		}
		years[i] = decoded.Year
	}

	// Numeric ordering: 0, 1, 2, 10 — not lexicographic.
	want := []int{2025, 2024, 2023, 2015}
	for i := range want {
		if years[i] != want[i] {
			t.Errorf("row %d: expected year %d, got %d", i, want[i], years[i])
		}
	}
}

func TestDecodeStatementRows_PlainArray(t *testing.T) {
	body := []byte(`[{"year": 2025}, {"year": 2024}]`)

	rows, err := decodeStatementRows(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
}

func TestDecodeStatementRows_EmptyObject(t *testing.T) {
	rows, err := decodeStatementRows([]byte(`{"lastUpdated": "2026-08-31", "symbol": "AAPL"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no data rows from metadata-only object, got %d", len(rows))
	}
}

func TestStatementEndpoint(t *testing.T) {
	tests := []struct {
		stmtType string
		want     string
		ok       bool
	}{
		{"income", "income-statement", true},
		{"balance", "balance-sheet-statement", true},
		{"cashflow", "cash-flow-statement", true},
		{"proxy", "", false},
	}

	for _, tt := range tests {
		got, ok := StatementEndpoint(tt.stmtType)
		if ok != tt.ok || got != tt.want {
			t.Errorf("StatementEndpoint(%q) = (%q, %v), want (%q, %v)", tt.stmtType, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFundamentalsClient_FetchProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profile/AAPL" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("apikey") != "test-key" {
			t.Errorf("expected apikey query parameter, got %q", r.URL.Query().Get("apikey"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol":"AAPL","companyName":"Apple Inc.","mktCap":2900000000000}]`))
	}))
	defer server.Close()

	client := NewFundamentalsClient(server.URL, "test-key", 5*time.Second, zap.NewNop())

	profiles, err := client.FetchProfile(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
	if profiles[0].CompanyName != "Apple Inc." {
		t.Errorf("unexpected company name %q", profiles[0].CompanyName)
	}
}

func TestFundamentalsClient_NonSuccessIsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewFundamentalsClient(server.URL, "test-key", 5*time.Second, zap.NewNop())

	_, err := client.FetchQuote(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", statusErr.StatusCode)
	}
	if statusErr.Provider != "fundamentals" {
		t.Errorf("expected provider fundamentals, got %q", statusErr.Provider)
	}
}
