package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 存款/提款交易的固定描述
const (
	RechargeDescription = "Recharge"
	WithdrawDescription = "Withdraw"
)

// TransactionType 交易類型
type TransactionType uint8

const (
	// 存款
	TransactionTypeRecharge TransactionType = 1
	// 提款
	TransactionTypeWithdraw TransactionType = 2
	// 轉帳
	TransactionTypeTransfer TransactionType = 3
)

func (t TransactionType) String() string {
	switch t {
	case TransactionTypeRecharge:
		return "recharge"
	case TransactionTypeWithdraw:
		return "withdraw"
	case TransactionTypeTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// MarshalText 讓 JSON 輸出可讀的類型名稱
func (t TransactionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText 解析 MarshalText 的輸出
func (t *TransactionType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "recharge":
		*t = TransactionTypeRecharge
	case "withdraw":
		*t = TransactionTypeWithdraw
	case "transfer":
		*t = TransactionTypeTransfer
	default:
		return fmt.Errorf("unknown transaction type %q", text)
	}
	return nil
}

// Transaction 交易紀錄，寫入後不可修改
//
// 存款/提款的 From 與 To 相同；Amount 是來源端的變動量
// (存款與轉帳為正，提款為負)。
type Transaction struct {
	// ID: 每筆紀錄的唯一識別 (UUID)
	ID          uuid.UUID       `json:"id"`
	From        int64           `json:"from"`
	To          int64           `json:"to"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        TransactionType `json:"type"`
}

// Participants 回傳參與這筆交易的帳戶，From == To 時只回傳一個
func (t Transaction) Participants() []int64 {
	if t.From == t.To {
		return []int64{t.From}
	}
	return []int64{t.From, t.To}
}
