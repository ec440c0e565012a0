package domain

import (
	"errors"
	"fmt"
)

// 錯誤分類 (Kind)，對外邊界只會看到這四種
var (
	// ErrNotFound 參照的帳戶不存在
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument 金額為負或餘額不足
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTimeout 在等待時間內沒有拿到 serializer 的結果
	ErrTimeout = errors.New("timeout")

	// ErrInternal 非業務規則的非預期錯誤
	ErrInternal = errors.New("internal fault")
)

var (
	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)

	// ErrNegativeAmount 金額不可為負數
	ErrNegativeAmount = fmt.Errorf("%w: amount must not be negative", ErrInvalidArgument)

	// ErrInsufficientBalance 餘額不足
	ErrInsufficientBalance = fmt.Errorf("%w: insufficient balance", ErrInvalidArgument)
)

// Kind 錯誤分類
type Kind uint8

const (
	KindNone Kind = iota
	KindNotFound
	KindInvalidArgument
	KindTimeout
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// KindOf 回傳 err 對應的錯誤分類，未知錯誤一律視為 KindInternal
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	default:
		return KindInternal
	}
}
