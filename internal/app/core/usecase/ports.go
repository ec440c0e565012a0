package usecase

import (
	"context"

	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
)

// AccountStore 帳戶儲存
type AccountStore interface {
	Save(account domain.Account)
	Find(id int64) (domain.Account, bool)
	List() []domain.Account
	Delete(id int64) bool
}

// TransactionStore 交易紀錄儲存 (只增不改)
type TransactionStore interface {
	Append(tran domain.Transaction)
	ListFor(id int64) []domain.Transaction
}

// Journal 稽核日誌，在套用異動前寫入 (write-ahead)
type Journal interface {
	Append(v any) error
}

// EventPublisher 交易完成後的事件發布
type EventPublisher interface {
	Publish(ctx context.Context, tran domain.Transaction) error
}
