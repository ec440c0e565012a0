package memory

import (
	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-serial-ledger/internal/app/core/usecase"
)

// AccountStore 帳戶 ID -> 帳戶 的記憶體 Map
//
// 沒有任何鎖：只允許在 serializer worker 內存取 (single writer)。
type AccountStore struct {
	accounts map[int64]domain.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[int64]domain.Account),
	}
}

// Save 寫入 (或取代) 帳戶
func (s *AccountStore) Save(account domain.Account) {
	s.accounts[account.ID] = account
}

// Find 查詢帳戶，不存在時 ok 為 false
func (s *AccountStore) Find(id int64) (domain.Account, bool) {
	account, ok := s.accounts[id]
	return account, ok
}

// List 回傳目前所有帳戶的快照，不保證順序
func (s *AccountStore) List() []domain.Account {
	accounts := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account)
	}
	return accounts
}

// Delete 移除帳戶，回傳帳戶原本是否存在
func (s *AccountStore) Delete(id int64) bool {
	if _, ok := s.accounts[id]; !ok {
		return false
	}
	delete(s.accounts, id)
	return true
}

var _ usecase.AccountStore = (*AccountStore)(nil)
