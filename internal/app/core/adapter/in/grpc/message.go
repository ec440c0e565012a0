package grpc

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
)

// 訊息欄位名稱
const (
	fieldID           = "id"
	fieldAccountID    = "account_id"
	fieldFrom         = "from"
	fieldTo           = "to"
	fieldAmount       = "amount"
	fieldBalance      = "balance"
	fieldDescription  = "description"
	fieldTimestamp    = "timestamp"
	fieldType         = "type"
	fieldFound        = "found"
	fieldExisted      = "existed"
	fieldAccount      = "account"
	fieldAccounts     = "accounts"
	fieldTransactions = "transactions"
)

func accountValue(a domain.Account) map[string]any {
	return map[string]any{
		fieldID:      a.ID,
		fieldBalance: a.Balance.String(),
	}
}

func transactionValue(t domain.Transaction) map[string]any {
	return map[string]any{
		fieldID:          t.ID.String(),
		fieldFrom:        t.From,
		fieldTo:          t.To,
		fieldAmount:      t.Amount.String(),
		fieldDescription: t.Description,
		fieldTimestamp:   t.Timestamp.UTC().Format(time.RFC3339Nano),
		fieldType:        t.Type.String(),
	}
}

func accountMessage(a domain.Account) (*structpb.Struct, error) {
	return structpb.NewStruct(accountValue(a))
}

func transactionMessage(t domain.Transaction) (*structpb.Struct, error) {
	return structpb.NewStruct(transactionValue(t))
}

func accountsMessage(accounts []domain.Account) (*structpb.Struct, error) {
	list := make([]any, 0, len(accounts))
	for _, a := range accounts {
		list = append(list, accountValue(a))
	}
	return structpb.NewStruct(map[string]any{fieldAccounts: list})
}

func transactionsMessage(trans []domain.Transaction) (*structpb.Struct, error) {
	list := make([]any, 0, len(trans))
	for _, t := range trans {
		list = append(list, transactionValue(t))
	}
	return structpb.NewStruct(map[string]any{fieldTransactions: list})
}

// int64Field 讀取整數欄位，接受 number 或十進位字串
func int64Field(msg *structpb.Struct, key string) (int64, error) {
	v, ok := msg.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, key)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidArgument, key)
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidArgument, key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidArgument, key)
	}
}

// decimalField 讀取金額欄位，建議用字串傳遞以免浮點誤差
func decimalField(msg *structpb.Struct, key string) (decimal.Decimal, error) {
	v, ok := msg.GetFields()[key]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, key)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(kind.StringValue)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: %s is not a decimal", domain.ErrInvalidArgument, key)
		}
		return d, nil
	case *structpb.Value_NumberValue:
		if math.IsNaN(kind.NumberValue) || math.IsInf(kind.NumberValue, 0) {
			return decimal.Decimal{}, fmt.Errorf("%w: %s is not a decimal", domain.ErrInvalidArgument, key)
		}
		return decimal.NewFromFloat(kind.NumberValue), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: %s is not a decimal", domain.ErrInvalidArgument, key)
	}
}

func stringField(msg *structpb.Struct, key string) string {
	return msg.GetFields()[key].GetStringValue()
}

func accountFromValue(fields map[string]*structpb.Value) (domain.Account, error) {
	balance, err := decimal.NewFromString(fields[fieldBalance].GetStringValue())
	if err != nil {
		return domain.Account{}, fmt.Errorf("decode balance: %w", err)
	}
	return domain.Account{
		ID:      int64(fields[fieldID].GetNumberValue()),
		Balance: balance,
	}, nil
}

func transactionFromValue(fields map[string]*structpb.Value) (domain.Transaction, error) {
	id, err := uuid.Parse(fields[fieldID].GetStringValue())
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("decode transaction id: %w", err)
	}
	amount, err := decimal.NewFromString(fields[fieldAmount].GetStringValue())
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("decode amount: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, fields[fieldTimestamp].GetStringValue())
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("decode timestamp: %w", err)
	}
	var typ domain.TransactionType
	if err := typ.UnmarshalText([]byte(fields[fieldType].GetStringValue())); err != nil {
		return domain.Transaction{}, err
	}
	return domain.Transaction{
		ID:          id,
		From:        int64(fields[fieldFrom].GetNumberValue()),
		To:          int64(fields[fieldTo].GetNumberValue()),
		Amount:      amount,
		Description: fields[fieldDescription].GetStringValue(),
		Timestamp:   ts,
		Type:        typ,
	}, nil
}
