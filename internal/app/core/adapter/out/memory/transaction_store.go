package memory

import (
	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-serial-ledger/internal/app/core/usecase"
)

// TransactionStore 帳戶 ID -> 參與過的交易 (依寫入順序)
//
// 只增不改；同 AccountStore，只允許在 serializer worker 內存取。
type TransactionStore struct {
	byAccount map[int64][]domain.Transaction
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		byAccount: make(map[int64][]domain.Transaction),
	}
}

// Append 寫入交易
// From != To 時兩邊帳戶各記一筆，From == To 時只記一次
func (s *TransactionStore) Append(tran domain.Transaction) {
	for _, id := range tran.Participants() {
		s.byAccount[id] = append(s.byAccount[id], tran)
	}
}

// ListFor 回傳帳戶參與過的交易副本，沒有交易時回傳空 slice
func (s *TransactionStore) ListFor(id int64) []domain.Transaction {
	history := s.byAccount[id]
	out := make([]domain.Transaction, len(history))
	copy(out, history)
	return out
}

var _ usecase.TransactionStore = (*TransactionStore)(nil)
