package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-serial-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-serial-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-serial-ledger/pkg/serializer"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	queue := serializer.New(16, serializer.WithLogger(discardLogger()))
	queue.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = queue.Shutdown(ctx)
	})

	ledger := usecase.NewLedger(memory.NewAccountStore(), memory.NewTransactionStore())
	core := usecase.NewCoreUseCase(ledger, queue, usecase.WithLogger(discardLogger()))
	srv := httptest.NewServer(NewRouter(core, discardLogger()))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp
}

func TestHandler_AccountLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var account domain.Account
	resp := do(t, http.MethodPost, srv.URL+"/accounts", &account)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != fmt.Sprintf("/accounts/%d", account.ID) {
		t.Fatalf("location header %q", loc)
	}

	var tran domain.Transaction
	resp = do(t, http.MethodPost, fmt.Sprintf("%s/accounts/%d/recharge?amount=100", srv.URL, account.ID), &tran)
	if resp.StatusCode != http.StatusOK || tran.Type != domain.TransactionTypeRecharge {
		t.Fatalf("recharge status %d, tran %+v", resp.StatusCode, tran)
	}

	resp = do(t, http.MethodPost, fmt.Sprintf("%s/accounts/%d/withdraw?amount=30", srv.URL, account.ID), &tran)
	if resp.StatusCode != http.StatusOK || !tran.Amount.Equal(decimal.NewFromInt(-30)) {
		t.Fatalf("withdraw status %d, tran %+v", resp.StatusCode, tran)
	}

	var got domain.Account
	resp = do(t, http.MethodGet, fmt.Sprintf("%s/accounts/%d", srv.URL, account.ID), &got)
	if resp.StatusCode != http.StatusOK || !got.Balance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("get status %d, account %+v", resp.StatusCode, got)
	}

	var errResp ErrorResponse
	resp = do(t, http.MethodPost, fmt.Sprintf("%s/accounts/%d/withdraw?amount=1000", srv.URL, account.ID), &errResp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("overdraw status %d", resp.StatusCode)
	}

	var history []domain.Transaction
	resp = do(t, http.MethodGet, fmt.Sprintf("%s/accounts/%d/transactions", srv.URL, account.ID), &history)
	if resp.StatusCode != http.StatusOK || len(history) != 2 {
		t.Fatalf("history status %d, %d entries", resp.StatusCode, len(history))
	}

	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/accounts/%d", srv.URL, account.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/accounts/%d", srv.URL, account.ID), &errResp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, fmt.Sprintf("%s/accounts/%d/transactions", srv.URL, account.ID), &errResp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("history of deleted account status %d", resp.StatusCode)
	}
}

func TestHandler_Transfer(t *testing.T) {
	srv := newTestServer(t)

	var a, b domain.Account
	do(t, http.MethodPost, srv.URL+"/accounts", &a)
	do(t, http.MethodPost, srv.URL+"/accounts", &b)
	do(t, http.MethodPost, fmt.Sprintf("%s/accounts/%d/recharge?amount=50.5", srv.URL, a.ID), nil)

	var tran domain.Transaction
	resp := do(t, http.MethodPost, fmt.Sprintf("%s/accounts/%d/transfer?to=%d&amount=20.25&desc=rent", srv.URL, a.ID, b.ID), &tran)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transfer status %d", resp.StatusCode)
	}
	if tran.From != a.ID || tran.To != b.ID || tran.Description != "rent" || !tran.Amount.Equal(decimal.RequireFromString("20.25")) {
		t.Fatalf("unexpected transaction %+v", tran)
	}

	var accounts []domain.Account
	do(t, http.MethodGet, srv.URL+"/accounts", &accounts)
	total := decimal.Zero
	for _, acc := range accounts {
		total = total.Add(acc.Balance)
	}
	if len(accounts) != 2 || !total.Equal(decimal.RequireFromString("50.5")) {
		t.Fatalf("expected total 50.5 across 2 accounts, got %s across %d", total, len(accounts))
	}

	var errResp ErrorResponse
	resp = do(t, http.MethodPost, fmt.Sprintf("%s/accounts/%d/transfer?to=999&amount=1", srv.URL, a.ID), &errResp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("transfer to missing account status %d", resp.StatusCode)
	}
}

func TestHandler_MalformedInput(t *testing.T) {
	srv := newTestServer(t)
	var a domain.Account
	do(t, http.MethodPost, srv.URL+"/accounts", &a)

	tests := map[string]string{
		"non numeric id":    "/accounts/abc/recharge?amount=1",
		"missing amount":    fmt.Sprintf("/accounts/%d/recharge", a.ID),
		"bad amount":        fmt.Sprintf("/accounts/%d/recharge?amount=ten", a.ID),
		"negative amount":   fmt.Sprintf("/accounts/%d/recharge?amount=-1", a.ID),
		"bad destination":   fmt.Sprintf("/accounts/%d/transfer?to=x&amount=1", a.ID),
		"negative withdraw": fmt.Sprintf("/accounts/%d/withdraw?amount=-5", a.ID),
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			var errResp ErrorResponse
			resp := do(t, http.MethodPost, srv.URL+path, &errResp)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status %d, body %+v", resp.StatusCode, errResp)
			}
		})
	}
}

func TestHandler_GetMissingAccount(t *testing.T) {
	srv := newTestServer(t)
	var errResp ErrorResponse
	resp := do(t, http.MethodGet, srv.URL+"/accounts/42", &errResp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestHandler_Health(t *testing.T) {
	srv := newTestServer(t)
	var body map[string]string
	resp := do(t, http.MethodGet, srv.URL+"/health", &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("status %d, body %v", resp.StatusCode, body)
	}
}

// failingService 的 ListAccounts 固定回傳 err
type failingService struct {
	LedgerService
	err error
}

func (s failingService) ListAccounts(context.Context) ([]domain.Account, error) {
	return nil, s.err
}

func TestHandler_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"timeout", fmt.Errorf("list accounts: %w: %w", domain.ErrTimeout, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"closed", fmt.Errorf("list accounts: %w: %w", domain.ErrInternal, serializer.ErrClosed), http.StatusServiceUnavailable},
		{"worker died", fmt.Errorf("list accounts: %w: %w", domain.ErrInternal, serializer.ErrWorkerDied), http.StatusServiceUnavailable},
		{"internal", fmt.Errorf("list accounts: %w: %w", domain.ErrInternal, errors.New("boom")), http.StatusInternalServerError},
		{"not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"invalid", domain.ErrNegativeAmount, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(failingService{err: tt.err}, discardLogger())
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts", nil))
			if rec.Code != tt.want {
				t.Fatalf("status %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
