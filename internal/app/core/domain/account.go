package domain

import "github.com/shopspring/decimal"

// Account 帳戶
//
// Account 是不可變的值：每次金額異動都會產生新的 Account，
// 由呼叫端存回 store。身分只看 ID。
type Account struct {
	ID      int64           `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

// NewAccount 建立餘額為 0 的帳戶
func NewAccount(id int64) Account {
	return Account{
		ID:      id,
		Balance: decimal.Zero,
	}
}

// Recharge 存款，回傳新的帳戶值
func (a Account) Recharge(amount decimal.Decimal) (Account, error) {
	if amount.IsNegative() {
		return a, ErrNegativeAmount
	}
	return Account{ID: a.ID, Balance: a.Balance.Add(amount)}, nil
}

// Withdraw 提款，回傳新的帳戶值
//
// 參數:
//
//	amount: 提款金額 (不可為負)
//
// 回傳:
//
//	Account: 扣款後的帳戶
//	error: ErrNegativeAmount 或 ErrInsufficientBalance
func (a Account) Withdraw(amount decimal.Decimal) (Account, error) {
	if amount.IsNegative() {
		return a, ErrNegativeAmount
	}
	if a.Balance.LessThan(amount) {
		return a, ErrInsufficientBalance
	}
	return Account{ID: a.ID, Balance: a.Balance.Sub(amount)}, nil
}
