package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"econbot/bank"
	"econbot/database"
	"econbot/economy"
	"econbot/metrics"
	"econbot/models"
)

const token = "s3cret"

func newTestServer(t *testing.T) (*Server, *economy.Ledger) {
	t.Helper()
	store, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)
	ledger := economy.NewLedger(store, nil, nil)
	ledger.SetClock(func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) })
	s := New(token, nil, Deps{
		Ledger:  ledger,
		Bank:    bank.NewService(ledger, nil),
		Metrics: metrics.NewCollector(nil),
	})
	return s, ledger
}

func do(t *testing.T, s *Server, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/metrics", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
}

func TestAdminRoutesNeedToken(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := do(t, s, http.MethodGet, "/v1/accounts/ann", "", false); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d", rec.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/ann", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d", rec.Code)
	}
}

func TestAdminRoutesDisabledWithoutToken(t *testing.T) {
	_, ledger := newTestServer(t)
	s := New("", nil, Deps{Ledger: ledger})
	if rec := do(t, s, http.MethodGet, "/v1/leaderboard", "", true); rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestGrantAndRead(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/accounts/ann/grant", `{"delta":750,"reason":"event prize"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("grant status %d: %s", rec.Code, rec.Body.String())
	}
	var granted struct {
		Balance int64 `json:"balance"`
	}
	decodeBody(t, rec, &granted)
	if granted.Balance != 750 {
		t.Fatalf("balance = %d", granted.Balance)
	}

	rec = do(t, s, http.MethodGet, "/v1/accounts/ann", "", true)
	var acct models.Account
	decodeBody(t, rec, &acct)
	if acct.Balance != 750 {
		t.Fatalf("account = %+v", acct)
	}

	rec = do(t, s, http.MethodGet, "/v1/accounts/ann/transactions?limit=5", "", true)
	var hist struct {
		Rows []models.Transaction `json:"rows"`
	}
	decodeBody(t, rec, &hist)
	if len(hist.Rows) != 1 || hist.Rows[0].Kind != models.KindAdmin || hist.Rows[0].BalanceAfter != 750 {
		t.Fatalf("history = %+v", hist.Rows)
	}

	rec = do(t, s, http.MethodGet, "/v1/leaderboard", "", true)
	var board struct {
		Rows []models.Account `json:"rows"`
	}
	decodeBody(t, rec, &board)
	if len(board.Rows) == 0 || board.Rows[0].ID != "ann" {
		t.Fatalf("leaderboard = %+v", board.Rows)
	}
}

func TestGrantErrors(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := do(t, s, http.MethodPost, "/v1/accounts/ann/grant", `{"delta":-5}`, true); rec.Code != http.StatusBadRequest {
		t.Fatalf("overdraw: status %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/v1/accounts/ann/grant", `{"delta":0}`, true); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero: status %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/v1/accounts/ann/grant", `{"amount":5}`, true); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status %d", rec.Code)
	}
	var e struct {
		Error string `json:"error"`
	}
	rec := do(t, s, http.MethodPost, "/v1/accounts/ann/grant", `{"delta":-5}`, true)
	decodeBody(t, rec, &e)
	if !strings.Contains(e.Error, "insufficient funds") {
		t.Fatalf("error = %q", e.Error)
	}
}

func TestExportStreamsLedger(t *testing.T) {
	s, ledger := newTestServer(t)
	ctx := context.Background()
	for _, id := range []string{"ann", "bob"} {
		if _, err := ledger.Grant(ctx, id, 100, "seed"); err != nil {
			t.Fatal(err)
		}
	}

	rec := do(t, s, http.MethodGet, "/v1/export", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got []string
	err := economy.ReadExport(rec.Body, func(tx models.Transaction) error {
		got = append(got, tx.AccountID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("exported %v", got)
	}

	if rec := do(t, s, http.MethodGet, "/v1/export?since=yesterday", "", true); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad since: status %d", rec.Code)
	}
}

func TestWriteDomainError(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{models.ErrNotFound, http.StatusNotFound},
		{models.ErrInvalidBet, http.StatusBadRequest},
		{models.ErrNotAuthorized, http.StatusForbidden},
		{models.ErrTxConflict, http.StatusConflict},
		{models.ErrInvariantViolation, http.StatusInternalServerError},
	} {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		if rec.Code != tc.want {
			t.Errorf("%v: status %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}
