package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
)

// Ledger 帳務核心 (業務規則)
//
// Ledger 的所有方法都必須在 serializer worker 內執行：
// 它假設對兩個 store 是單執行緒、不可重入的存取，內部沒有任何鎖。
// 所有檢查都在異動前完成 (validate-then-apply)，失敗不會留下部分狀態。
type Ledger struct {
	accounts     AccountStore
	transactions TransactionStore
	journal      Journal
	clock        func() time.Time
	newID        func() uuid.UUID
	logger       *slog.Logger

	// 最後一個分配出去的帳戶 ID，只增不減，刪除後也不會重用
	lastAccountID int64
}

// LedgerOption Ledger 的配置選項函數
type LedgerOption func(*Ledger)

// WithClock 注入交易時間來源 (測試用)
func WithClock(clock func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithJournal 設定稽核日誌
func WithJournal(journal Journal) LedgerOption {
	return func(l *Ledger) {
		l.journal = journal
	}
}

// WithLedgerLogger 設定 logger
func WithLedgerLogger(logger *slog.Logger) LedgerOption {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// NewLedger 建立帳務核心
//
// 參數:
//
//	accounts: 帳戶儲存
//	transactions: 交易紀錄儲存
//	opts: 可選配置
//
// 回傳:
//
//	*Ledger: Ledger 實例
func NewLedger(accounts AccountStore, transactions TransactionStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		accounts:     accounts,
		transactions: transactions,
		clock:        time.Now,
		newID:        uuid.New,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateAccount 建立餘額為 0 的新帳戶
func (l *Ledger) CreateAccount() domain.Account {
	l.lastAccountID++
	account := domain.NewAccount(l.lastAccountID)
	l.accounts.Save(account)
	return account
}

// FindAccount 查詢帳戶，不存在不是錯誤
func (l *Ledger) FindAccount(id int64) (domain.Account, bool) {
	return l.accounts.Find(id)
}

// ListAccounts 目前所有帳戶的快照
func (l *Ledger) ListAccounts() []domain.Account {
	return l.accounts.List()
}

// DeleteAccount 刪除帳戶，不檢查交易紀錄；回傳帳戶是否存在
func (l *Ledger) DeleteAccount(id int64) bool {
	return l.accounts.Delete(id)
}

// Recharge 存款
//
// 參數:
//
//	id: 帳戶 ID
//	amount: 存款金額 (不可為負)
//
// 回傳:
//
//	domain.Transaction: 交易紀錄
//	error: ErrAccountNotFound, ErrNegativeAmount 或日誌寫入錯誤
func (l *Ledger) Recharge(id int64, amount decimal.Decimal) (domain.Transaction, error) {
	account, ok := l.accounts.Find(id)
	if !ok {
		l.logger.Warn("recharge rejected: account not found", "account_id", id)
		return domain.Transaction{}, fmt.Errorf("recharge account %d: %w", id, domain.ErrAccountNotFound)
	}
	recharged, err := account.Recharge(amount)
	if err != nil {
		l.logger.Warn("recharge rejected", "account_id", id, "amount", amount.String(), "error", err)
		return domain.Transaction{}, fmt.Errorf("recharge account %d: %w", id, err)
	}

	tran := l.newTransaction(domain.TransactionTypeRecharge, id, id, amount, domain.RechargeDescription)
	if err := l.writeJournal(tran); err != nil {
		return domain.Transaction{}, err
	}
	l.accounts.Save(recharged)
	l.transactions.Append(tran)
	return tran, nil
}

// Withdraw 提款，交易金額記為負數
func (l *Ledger) Withdraw(id int64, amount decimal.Decimal) (domain.Transaction, error) {
	account, ok := l.accounts.Find(id)
	if !ok {
		l.logger.Warn("withdraw rejected: account not found", "account_id", id)
		return domain.Transaction{}, fmt.Errorf("withdraw account %d: %w", id, domain.ErrAccountNotFound)
	}
	withdrawn, err := account.Withdraw(amount)
	if err != nil {
		l.logger.Warn("withdraw rejected",
			"account_id", id,
			"balance", account.Balance.String(),
			"amount", amount.String(),
			"error", err)
		return domain.Transaction{}, fmt.Errorf("withdraw account %d: %w", id, err)
	}

	tran := l.newTransaction(domain.TransactionTypeWithdraw, id, id, amount.Neg(), domain.WithdrawDescription)
	if err := l.writeJournal(tran); err != nil {
		return domain.Transaction{}, err
	}
	l.accounts.Save(withdrawn)
	l.transactions.Append(tran)
	return tran, nil
}

// Transfer 轉帳
//
// 先檢查來源帳戶再檢查目的帳戶，接著檢查金額與餘額。
// 扣款、入帳與唯一一筆交易紀錄在同一個工作單元內完成。
//
// 參數:
//
//	fromID: 來源帳戶
//	toID: 目的帳戶
//	amount: 金額 (不可為負)
//	description: 描述
//
// 回傳:
//
//	domain.Transaction: 交易紀錄
//	error: ErrAccountNotFound, ErrNegativeAmount, ErrInsufficientBalance 或日誌寫入錯誤
func (l *Ledger) Transfer(fromID, toID int64, amount decimal.Decimal, description string) (domain.Transaction, error) {
	source, ok := l.accounts.Find(fromID)
	if !ok {
		l.logger.Warn("transfer rejected: source account not found", "from", fromID, "to", toID)
		return domain.Transaction{}, fmt.Errorf("transfer from account %d: %w", fromID, domain.ErrAccountNotFound)
	}
	target, ok := l.accounts.Find(toID)
	if !ok {
		l.logger.Warn("transfer rejected: destination account not found", "from", fromID, "to", toID)
		return domain.Transaction{}, fmt.Errorf("transfer to account %d: %w", toID, domain.ErrAccountNotFound)
	}

	debited, err := source.Withdraw(amount)
	if err != nil {
		l.logger.Warn("transfer rejected",
			"from", fromID,
			"to", toID,
			"balance", source.Balance.String(),
			"amount", amount.String(),
			"error", err)
		return domain.Transaction{}, fmt.Errorf("transfer from account %d to %d: %w", fromID, toID, err)
	}
	// 自己轉給自己時入帳要基於扣款後的值
	if toID == fromID {
		target = debited
	}
	credited, err := target.Recharge(amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transfer from account %d to %d: %w", fromID, toID, err)
	}

	tran := l.newTransaction(domain.TransactionTypeTransfer, fromID, toID, amount, description)
	if err := l.writeJournal(tran); err != nil {
		return domain.Transaction{}, err
	}
	l.accounts.Save(debited)
	l.accounts.Save(credited)
	l.transactions.Append(tran)
	return tran, nil
}

// ListTransactions 帳戶參與過的交易
// 帳戶目前必須存在，即使刪除前的交易紀錄還在
func (l *Ledger) ListTransactions(id int64) ([]domain.Transaction, error) {
	if _, ok := l.accounts.Find(id); !ok {
		return nil, fmt.Errorf("list transactions of account %d: %w", id, domain.ErrAccountNotFound)
	}
	return l.transactions.ListFor(id), nil
}

func (l *Ledger) newTransaction(t domain.TransactionType, from, to int64, amount decimal.Decimal, description string) domain.Transaction {
	return domain.Transaction{
		ID:          l.newID(),
		From:        from,
		To:          to,
		Amount:      amount,
		Description: description,
		Timestamp:   l.clock(),
		Type:        t,
	}
}

// writeJournal 寫入稽核日誌 (Critical Path)
func (l *Ledger) writeJournal(tran domain.Transaction) error {
	if l.journal == nil {
		return nil
	}
	if err := l.journal.Append(tran); err != nil {
		l.logger.Error("journal write failed", "transaction_id", tran.ID.String(), "error", err)
		return fmt.Errorf("%w: journal write: %w", domain.ErrInternal, err)
	}
	return nil
}
