package domain

import "time"

// EventTransactionCompleted 交易成功套用後發出的事件類型
const EventTransactionCompleted = "transaction.completed"

// TransactionCompleted 交易完成事件
type TransactionCompleted struct {
	Type        string      `json:"type"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Transaction Transaction `json:"transaction"`
}

// NewTransactionCompleted 以交易本身的時間建立事件
func NewTransactionCompleted(tran Transaction) TransactionCompleted {
	return TransactionCompleted{
		Type:        EventTransactionCompleted,
		OccurredAt:  tran.Timestamp,
		Transaction: tran,
	}
}
