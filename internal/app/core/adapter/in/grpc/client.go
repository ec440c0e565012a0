package grpc

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
)

// Client LedgerService 的客戶端，把 structpb 訊息轉回 domain 型別
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateAccount(ctx context.Context) (domain.Account, error) {
	out, err := c.invoke(ctx, "CreateAccount", nil)
	if err != nil {
		return domain.Account{}, err
	}
	return accountFromValue(out.GetFields())
}

func (c *Client) GetAccount(ctx context.Context, id int64) (domain.Account, bool, error) {
	out, err := c.invoke(ctx, "GetAccount", map[string]any{fieldAccountID: id})
	if err != nil {
		return domain.Account{}, false, err
	}
	if !out.GetFields()[fieldFound].GetBoolValue() {
		return domain.Account{}, false, nil
	}
	account, err := accountFromValue(out.GetFields()[fieldAccount].GetStructValue().GetFields())
	return account, err == nil, err
}

func (c *Client) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	out, err := c.invoke(ctx, "ListAccounts", nil)
	if err != nil {
		return nil, err
	}
	values := out.GetFields()[fieldAccounts].GetListValue().GetValues()
	accounts := make([]domain.Account, 0, len(values))
	for _, v := range values {
		account, err := accountFromValue(v.GetStructValue().GetFields())
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (c *Client) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	out, err := c.invoke(ctx, "DeleteAccount", map[string]any{fieldAccountID: id})
	if err != nil {
		return false, err
	}
	return out.GetFields()[fieldExisted].GetBoolValue(), nil
}

func (c *Client) Recharge(ctx context.Context, id int64, amount decimal.Decimal) (domain.Transaction, error) {
	return c.transaction(ctx, "Recharge", map[string]any{
		fieldAccountID: id,
		fieldAmount:    amount.String(),
	})
}

func (c *Client) Withdraw(ctx context.Context, id int64, amount decimal.Decimal) (domain.Transaction, error) {
	return c.transaction(ctx, "Withdraw", map[string]any{
		fieldAccountID: id,
		fieldAmount:    amount.String(),
	})
}

func (c *Client) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, description string) (domain.Transaction, error) {
	return c.transaction(ctx, "Transfer", map[string]any{
		fieldFrom:        fromID,
		fieldTo:          toID,
		fieldAmount:      amount.String(),
		fieldDescription: description,
	})
}

func (c *Client) ListTransactions(ctx context.Context, id int64) ([]domain.Transaction, error) {
	out, err := c.invoke(ctx, "ListTransactions", map[string]any{fieldAccountID: id})
	if err != nil {
		return nil, err
	}
	values := out.GetFields()[fieldTransactions].GetListValue().GetValues()
	trans := make([]domain.Transaction, 0, len(values))
	for _, v := range values {
		tran, err := transactionFromValue(v.GetStructValue().GetFields())
		if err != nil {
			return nil, err
		}
		trans = append(trans, tran)
	}
	return trans, nil
}

func (c *Client) transaction(ctx context.Context, method string, req map[string]any) (domain.Transaction, error) {
	out, err := c.invoke(ctx, method, req)
	if err != nil {
		return domain.Transaction{}, err
	}
	return transactionFromValue(out.GetFields())
}
