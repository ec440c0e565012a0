package usecase_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-serial-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-serial-ledger/internal/app/core/usecase"
)

var fixedNow = time.Date(2024, 4, 20, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger(opts ...usecase.LedgerOption) *usecase.Ledger {
	opts = append([]usecase.LedgerOption{
		usecase.WithClock(func() time.Time { return fixedNow }),
		usecase.WithLedgerLogger(discardLogger()),
	}, opts...)
	return usecase.NewLedger(memory.NewAccountStore(), memory.NewTransactionStore(), opts...)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func balanceOf(t *testing.T, l *usecase.Ledger, id int64) decimal.Decimal {
	t.Helper()
	account, ok := l.FindAccount(id)
	if !ok {
		t.Fatalf("account %d not found", id)
	}
	return account.Balance
}

func TestLedger_CreateAccountAllocatesSequentialIDs(t *testing.T) {
	l := newTestLedger()

	first := l.CreateAccount()
	second := l.CreateAccount()

	if !first.Balance.IsZero() {
		t.Fatalf("new account balance should be 0, got %s", first.Balance)
	}
	if second.ID != first.ID+1 {
		t.Fatalf("expected sequential ids, got %d then %d", first.ID, second.ID)
	}
	if !l.DeleteAccount(second.ID) {
		t.Fatal("delete should report existing account")
	}
	third := l.CreateAccount()
	if third.ID == second.ID {
		t.Fatal("ids must not be reused after delete")
	}
	if got := len(l.ListAccounts()); got != 2 {
		t.Fatalf("expected 2 live accounts, got %d", got)
	}
}

func TestLedger_RechargeWithdrawScenario(t *testing.T) {
	l := newTestLedger()
	id := l.CreateAccount().ID

	if _, err := l.Recharge(id, dec("100")); err != nil {
		t.Fatalf("recharge: %v", err)
	}
	if got := balanceOf(t, l, id); !got.Equal(dec("100")) {
		t.Fatalf("expected balance 100, got %s", got)
	}

	if _, err := l.Withdraw(id, dec("30")); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := balanceOf(t, l, id); !got.Equal(dec("70")) {
		t.Fatalf("expected balance 70, got %s", got)
	}

	_, err := l.Withdraw(id, dec("1000"))
	if !errors.Is(err, domain.ErrInvalidArgument) || !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if got := balanceOf(t, l, id); !got.Equal(dec("70")) {
		t.Fatalf("failed withdraw must not change balance, got %s", got)
	}

	history, err := l.ListTransactions(id)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(history))
	}

	recharge := history[0]
	if recharge.From != id || recharge.To != id || !recharge.Amount.Equal(dec("100")) ||
		recharge.Description != domain.RechargeDescription || recharge.Type != domain.TransactionTypeRecharge {
		t.Fatalf("unexpected recharge record: %+v", recharge)
	}
	withdraw := history[1]
	if !withdraw.Amount.Equal(dec("-30")) || withdraw.Description != domain.WithdrawDescription {
		t.Fatalf("unexpected withdraw record: %+v", withdraw)
	}
	if !withdraw.Timestamp.Equal(fixedNow) {
		t.Fatalf("timestamp should come from the injected clock, got %v", withdraw.Timestamp)
	}
}

func TestLedger_RejectsNegativeAmounts(t *testing.T) {
	l := newTestLedger()
	a := l.CreateAccount().ID
	b := l.CreateAccount().ID
	if _, err := l.Recharge(a, dec("10")); err != nil {
		t.Fatalf("recharge: %v", err)
	}

	tests := []struct {
		name string
		run  func() error
	}{
		{"recharge", func() error { _, err := l.Recharge(a, dec("-1")); return err }},
		{"withdraw", func() error { _, err := l.Withdraw(a, dec("-1")); return err }},
		{"transfer", func() error { _, err := l.Transfer(a, b, dec("-1"), ""); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, domain.ErrNegativeAmount) {
				t.Fatalf("expected ErrNegativeAmount, got %v", err)
			}
			if domain.KindOf(err) != domain.KindInvalidArgument {
				t.Fatalf("expected invalid argument kind, got %s", domain.KindOf(err))
			}
		})
	}

	if got := balanceOf(t, l, a); !got.Equal(dec("10")) {
		t.Fatalf("balance changed after rejected operations: %s", got)
	}
	history, _ := l.ListTransactions(a)
	if len(history) != 1 {
		t.Fatalf("rejected operations must not record transactions, got %d", len(history))
	}
}

func TestLedger_MissingAccount(t *testing.T) {
	l := newTestLedger()
	existing := l.CreateAccount().ID
	if _, err := l.Recharge(existing, dec("50")); err != nil {
		t.Fatalf("recharge: %v", err)
	}
	const missing = int64(999)

	if _, err := l.Recharge(missing, dec("1")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("recharge: expected not found, got %v", err)
	}
	if _, err := l.Withdraw(missing, dec("1")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("withdraw: expected not found, got %v", err)
	}
	if _, err := l.Transfer(missing, existing, dec("10"), ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("transfer from missing: expected not found, got %v", err)
	}
	if _, err := l.Transfer(existing, missing, dec("10"), ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("transfer to missing: expected not found, got %v", err)
	}
	if _, err := l.ListTransactions(missing); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("list: expected not found, got %v", err)
	}
	if l.DeleteAccount(missing) {
		t.Fatal("deleting a missing account should return false")
	}
	if _, ok := l.FindAccount(missing); ok {
		t.Fatal("missing account should not be found")
	}

	if got := balanceOf(t, l, existing); !got.Equal(dec("50")) {
		t.Fatalf("balance changed: %s", got)
	}
}

func TestLedger_TransferRecordsSingleTransaction(t *testing.T) {
	l := newTestLedger()
	a := l.CreateAccount().ID
	b := l.CreateAccount().ID
	if _, err := l.Recharge(a, dec("100")); err != nil {
		t.Fatalf("recharge: %v", err)
	}

	tran, err := l.Transfer(a, b, dec("10"), "x")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := balanceOf(t, l, a); !got.Equal(dec("90")) {
		t.Fatalf("source balance: %s", got)
	}
	if got := balanceOf(t, l, b); !got.Equal(dec("10")) {
		t.Fatalf("destination balance: %s", got)
	}

	fromHistory, _ := l.ListTransactions(a)
	toHistory, _ := l.ListTransactions(b)
	if len(toHistory) != 1 {
		t.Fatalf("destination should have one record, got %d", len(toHistory))
	}
	last := fromHistory[len(fromHistory)-1]
	for _, rec := range []domain.Transaction{last, toHistory[0]} {
		if rec.ID != tran.ID {
			t.Fatalf("both sides must reference the same record, got %s and %s", rec.ID, tran.ID)
		}
		if !rec.Amount.Equal(dec("10")) || rec.Description != "x" || !rec.Timestamp.Equal(fixedNow) {
			t.Fatalf("unexpected record %+v", rec)
		}
	}

	if _, err := l.Transfer(b, a, dec("10.01"), ""); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestLedger_SelfTransfer(t *testing.T) {
	l := newTestLedger()
	a := l.CreateAccount().ID
	if _, err := l.Recharge(a, dec("5")); err != nil {
		t.Fatalf("recharge: %v", err)
	}

	if _, err := l.Transfer(a, a, dec("5"), "self"); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if got := balanceOf(t, l, a); !got.Equal(dec("5")) {
		t.Fatalf("self transfer should not change balance, got %s", got)
	}
	history, _ := l.ListTransactions(a)
	if len(history) != 2 {
		t.Fatalf("self transfer must be indexed once, got %d records", len(history))
	}
}

func TestLedger_DeletedAccountHistoryIsHidden(t *testing.T) {
	l := newTestLedger()
	a := l.CreateAccount().ID
	b := l.CreateAccount().ID
	if _, err := l.Recharge(a, dec("20")); err != nil {
		t.Fatalf("recharge: %v", err)
	}
	if _, err := l.Transfer(a, b, dec("5"), ""); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if !l.DeleteAccount(a) {
		t.Fatal("delete should succeed")
	}
	if _, err := l.ListTransactions(a); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	// 對方帳戶的紀錄仍然保留
	history, err := l.ListTransactions(b)
	if err != nil || len(history) != 1 || history[0].From != a {
		t.Fatalf("counterparty history should survive, got %v %v", history, err)
	}
}

type failingJournal struct{ err error }

func (j failingJournal) Append(any) error { return j.err }

type recordingJournal struct{ entries []any }

func (j *recordingJournal) Append(v any) error {
	j.entries = append(j.entries, v)
	return nil
}

func TestLedger_JournalFailureLeavesStateUntouched(t *testing.T) {
	l := newTestLedger(usecase.WithJournal(failingJournal{err: errors.New("disk full")}))
	a := l.CreateAccount().ID

	_, err := l.Recharge(a, dec("10"))
	if domain.KindOf(err) != domain.KindInternal {
		t.Fatalf("expected internal fault, got %v", err)
	}
	if got := balanceOf(t, l, a); !got.IsZero() {
		t.Fatalf("balance must stay 0, got %s", got)
	}
	history, _ := l.ListTransactions(a)
	if len(history) != 0 {
		t.Fatalf("no transaction should be stored, got %d", len(history))
	}
}

func TestLedger_JournalReceivesEveryMutation(t *testing.T) {
	journal := &recordingJournal{}
	l := newTestLedger(usecase.WithJournal(journal))
	a := l.CreateAccount().ID
	b := l.CreateAccount().ID

	_, _ = l.Recharge(a, dec("10"))
	_, _ = l.Withdraw(a, dec("1"))
	_, _ = l.Transfer(a, b, dec("2"), "")
	_, _ = l.Withdraw(a, dec("100")) // rejected

	if len(journal.entries) != 3 {
		t.Fatalf("expected 3 journal entries, got %d", len(journal.entries))
	}
}
