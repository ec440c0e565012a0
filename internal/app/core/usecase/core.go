package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-serial-ledger/pkg/serializer"
)

// DefaultRequestTimeout 預設等待結果的時間
const DefaultRequestTimeout = 5 * time.Second

// Submitter 可送出工作單元的執行佇列 (*serializer.Serializer)
type Submitter interface {
	Submit(ctx context.Context, task serializer.Task) (*serializer.Handle, error)
}

// CoreUseCase 是核心業務邏輯層的入口 (Request Facade)
//
// 每個操作都包成一個工作單元交給 serializer，
// 呼叫端最多等待 timeout，逾時只代表不再等待，工作不會被取消。
type CoreUseCase struct {
	ledger    *Ledger
	queue     Submitter
	timeout   time.Duration
	publisher EventPublisher
	logger    *slog.Logger
}

// CoreOption CoreUseCase 的配置選項函數
type CoreOption func(*CoreUseCase)

// WithRequestTimeout 設定等待結果的時間
func WithRequestTimeout(timeout time.Duration) CoreOption {
	return func(c *CoreUseCase) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithPublisher 設定交易完成事件的發布者
func WithPublisher(publisher EventPublisher) CoreOption {
	return func(c *CoreUseCase) {
		c.publisher = publisher
	}
}

// WithLogger 設定 logger
func WithLogger(logger *slog.Logger) CoreOption {
	return func(c *CoreUseCase) {
		c.logger = logger
	}
}

func NewCoreUseCase(ledger *Ledger, queue Submitter, opts ...CoreOption) *CoreUseCase {
	c := &CoreUseCase{
		ledger:  ledger,
		queue:   queue,
		timeout: DefaultRequestTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateAccount 建立帳戶
func (c *CoreUseCase) CreateAccount(ctx context.Context) (domain.Account, error) {
	return execute(ctx, c, "create account", func() (domain.Account, error) {
		return c.ledger.CreateAccount(), nil
	})
}

// FindAccount 查詢帳戶，不存在時 found 為 false 且 err 為 nil
func (c *CoreUseCase) FindAccount(ctx context.Context, id int64) (account domain.Account, found bool, err error) {
	type lookup struct {
		account domain.Account
		found   bool
	}
	res, err := execute(ctx, c, "find account", func() (lookup, error) {
		account, found := c.ledger.FindAccount(id)
		return lookup{account: account, found: found}, nil
	})
	return res.account, res.found, err
}

// ListAccounts 所有帳戶的一致快照
func (c *CoreUseCase) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return execute(ctx, c, "list accounts", func() ([]domain.Account, error) {
		return c.ledger.ListAccounts(), nil
	})
}

// DeleteAccount 刪除帳戶，回傳帳戶原本是否存在
func (c *CoreUseCase) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	return execute(ctx, c, "delete account", func() (bool, error) {
		return c.ledger.DeleteAccount(id), nil
	})
}

// Recharge 存款
func (c *CoreUseCase) Recharge(ctx context.Context, id int64, amount decimal.Decimal) (domain.Transaction, error) {
	tran, err := execute(ctx, c, "recharge", func() (domain.Transaction, error) {
		return c.ledger.Recharge(id, amount)
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	c.publish(ctx, tran)
	return tran, nil
}

// Withdraw 提款
func (c *CoreUseCase) Withdraw(ctx context.Context, id int64, amount decimal.Decimal) (domain.Transaction, error) {
	tran, err := execute(ctx, c, "withdraw", func() (domain.Transaction, error) {
		return c.ledger.Withdraw(id, amount)
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	c.publish(ctx, tran)
	return tran, nil
}

// Transfer 轉帳
func (c *CoreUseCase) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, description string) (domain.Transaction, error) {
	tran, err := execute(ctx, c, "transfer", func() (domain.Transaction, error) {
		return c.ledger.Transfer(fromID, toID, amount, description)
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	c.publish(ctx, tran)
	return tran, nil
}

// ListTransactions 帳戶的交易紀錄
func (c *CoreUseCase) ListTransactions(ctx context.Context, id int64) ([]domain.Transaction, error) {
	return execute(ctx, c, "list transactions", func() ([]domain.Transaction, error) {
		return c.ledger.ListTransactions(id)
	})
}

// execute 把 fn 送進 serializer 並等待結果
//
// Submit(排隊) -> Wait(最多 timeout) -> 錯誤轉換
func execute[T any](ctx context.Context, c *CoreUseCase, op string, fn func() (T, error)) (T, error) {
	var zero T

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	handle, err := c.queue.Submit(ctx, func() (any, error) {
		v, err := fn()
		return v, err
	})
	if err != nil {
		return zero, c.mapError(op, err)
	}

	value, err := handle.Wait(ctx)
	if err != nil {
		return zero, c.mapError(op, err)
	}
	result, ok := value.(T)
	if !ok {
		return zero, c.mapError(op, fmt.Errorf("unexpected result type %T", value))
	}
	return result, nil
}

// mapError 業務錯誤原樣回傳；等待逾時轉為 ErrTimeout；其餘一律為 ErrInternal
func (c *CoreUseCase) mapError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidArgument):
		return err
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, domain.ErrInternal):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.logger.Warn("stopped waiting for ledger operation", "op", op, "error", err)
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTimeout, err)
	default:
		c.logger.Error("ledger operation failed", "op", op, "error", err)
		return fmt.Errorf("%s: %w: %w", op, domain.ErrInternal, err)
	}
}

// publish 發布交易完成事件，失敗只記錄，不影響操作結果
func (c *CoreUseCase) publish(ctx context.Context, tran domain.Transaction) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(context.WithoutCancel(ctx), tran); err != nil {
		c.logger.Error("publish transaction event failed",
			"transaction_id", tran.ID.String(),
			"error", err)
	}
}
