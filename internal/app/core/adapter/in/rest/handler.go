package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-serial-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-serial-ledger/pkg/serializer"
)

// LedgerService REST 層依賴的帳務操作 (*usecase.CoreUseCase)
type LedgerService interface {
	CreateAccount(ctx context.Context) (domain.Account, error)
	FindAccount(ctx context.Context, id int64) (domain.Account, bool, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	DeleteAccount(ctx context.Context, id int64) (bool, error)
	Recharge(ctx context.Context, id int64, amount decimal.Decimal) (domain.Transaction, error)
	Withdraw(ctx context.Context, id int64, amount decimal.Decimal) (domain.Transaction, error)
	Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, description string) (domain.Transaction, error)
	ListTransactions(ctx context.Context, id int64) ([]domain.Transaction, error)
}

type Handler struct {
	service LedgerService
	logger  *slog.Logger
}

func NewHandler(service LedgerService, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// NewRouter 建立掛好所有路由的 mux.Router
func NewRouter(service LedgerService, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()
	NewHandler(service, logger).RegisterRoutes(router)
	return router
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	router.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}", h.GetAccount).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}", h.DeleteAccount).Methods(http.MethodDelete)
	router.HandleFunc("/accounts/{id}/recharge", h.Recharge).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}/withdraw", h.Withdraw).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}/transfer", h.Transfer).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}/transactions", h.ListTransactions).Methods(http.MethodGet)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.CreateAccount(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "create account")
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/accounts/%d", account.ID))
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "list accounts")
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	account, found, err := h.service.FindAccount(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err, "get account")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "account not found", "")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	existed, err := h.service.DeleteAccount(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err, "delete account")
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "account not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Recharge(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	amount, ok := h.queryAmount(w, r)
	if !ok {
		return
	}

	tran, err := h.service.Recharge(r.Context(), id, amount)
	if err != nil {
		h.handleServiceError(w, err, "recharge")
		return
	}
	writeJSON(w, http.StatusOK, tran)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	amount, ok := h.queryAmount(w, r)
	if !ok {
		return
	}

	tran, err := h.service.Withdraw(r.Context(), id, amount)
	if err != nil {
		h.handleServiceError(w, err, "withdraw")
		return
	}
	writeJSON(w, http.StatusOK, tran)
}

// Transfer POST /accounts/{id}/transfer?to=&amount=&desc=
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	fromID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	toID, err := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid destination account id", err.Error())
		return
	}
	amount, ok := h.queryAmount(w, r)
	if !ok {
		return
	}

	tran, err := h.service.Transfer(r.Context(), fromID, toID, amount, r.URL.Query().Get("desc"))
	if err != nil {
		h.handleServiceError(w, err, "transfer")
		return
	}
	writeJSON(w, http.StatusOK, tran)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	trans, err := h.service.ListTransactions(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err, "list transactions")
		return
	}
	writeJSON(w, http.StatusOK, trans)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id", err.Error())
		return 0, false
	}
	return id, true
}

func (h *Handler) queryAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	raw := r.URL.Query().Get("amount")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "amount is required", "")
		return decimal.Decimal{}, false
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return decimal.Decimal{}, false
	}
	return amount, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error, action string) {
	// serializer 已關閉或 worker 已死亡，整個服務無法再處理請求
	if errors.Is(err, serializer.ErrClosed) || errors.Is(err, serializer.ErrWorkerDied) {
		h.logger.Error("ledger unavailable during "+action, "error", err.Error())
		writeError(w, http.StatusServiceUnavailable, "ledger unavailable", "")
		return
	}

	switch domain.KindOf(err) {
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, "account not found", err.Error())
	case domain.KindInvalidArgument:
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
	case domain.KindTimeout:
		writeError(w, http.StatusGatewayTimeout, "request timed out", "")
	default:
		h.logger.Error("internal server error during "+action, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal server error", "")
	}
}
