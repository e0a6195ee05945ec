// Package ledgerdelivery manages delivery layer of money movement operations.
package ledgerdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-abel/nile-bank/internal/accountservice"
	"github.com/go-abel/nile-bank/internal/domain"
	"github.com/go-abel/nile-bank/internal/ledgerservice"
	"github.com/go-abel/nile-bank/internal/middleware"
	"github.com/go-abel/nile-bank/pkg/errorspkg"
	"github.com/go-abel/nile-bank/pkg/tokenpkg"
	"github.com/go-abel/nile-bank/pkg/web"
)

// IdempotencyKeyHeader carries the optional client-chosen operation key.
const IdempotencyKeyHeader = "X-Idempotency-Key"

// Service provides service layer interface needed by ledger delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package ledgerdelivery
type Service interface {
	Deposit(ctx context.Context, arg ledgerservice.DepositParams) (ledgerservice.DepositResult, error)
	Withdraw(ctx context.Context, arg ledgerservice.WithdrawParams) (ledgerservice.WithdrawResult, error)
	Transfer(ctx context.Context, arg ledgerservice.TransferParams) (ledgerservice.TransferResult, error)
	ExternalTransfer(ctx context.Context, arg ledgerservice.WithdrawParams) (ledgerservice.WithdrawResult, error)
	ListTransactions(ctx context.Context, accountID int32) ([]domain.Transaction, error)
}

// Handler facilitates ledger delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns ledger handler.
func NewHandler(ls Service) Handler {
	return Handler{service: ls}
}

type transactionData struct {
	Account     domain.AccountProfile    `json:"account"`
	Transaction domain.Transaction       `json:"transaction"`
	Status      domain.TransactionStatus `json:"status,omitempty"`
}
type transactionResponse struct {
	Data transactionData `json:"data,omitempty"`
}

// idempotencyKey reads and validates the optional idempotency key header.
func idempotencyKey(gctx *gin.Context) (string, bool) {
	key := gctx.GetHeader(IdempotencyKeyHeader)
	if key == "" {
		return "", true
	}

	if _, err := uuid.Parse(key); err != nil {
		gctx.JSON(http.StatusBadRequest, web.Response{Error: IdempotencyKeyHeader + " header must be a valid UUID"})
		return "", false
	}

	return key, true
}

// writeLedgerError maps ledger errors to http responses.
func writeLedgerError(gctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrRecipientNotFound):
		gctx.JSON(http.StatusNotFound, web.Error(err))
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrRecipientIneligible),
		errors.Is(err, domain.ErrSelfTransfer),
		errors.Is(err, domain.ErrPinNotConfigured):
		gctx.JSON(http.StatusBadRequest, web.Error(err))
	case errors.Is(err, domain.ErrInvalidPin):
		gctx.JSON(http.StatusForbidden, web.Error(err))
	case errors.Is(err, domain.ErrDuplicateOperation):
		gctx.JSON(http.StatusConflict, web.Error(err))
	case errors.Is(err, errorspkg.ErrTransient):
		gctx.JSON(http.StatusServiceUnavailable, web.Error(err))
	default:
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}

type depositRequest struct {
	AmountCents     int64  `json:"amount_cents" binding:"required,gt=0"`
	SettlementToken string `json:"settlement_token"`
}

// Deposit handles http request to deposit money.
func (h *Handler) Deposit(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(gctx)

	var req depositRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		var (
			ve     validator.ValidationErrors
			errMsg string
		)

		if errors.As(err, &ve) {
			field := ve[0]
			errMsg = field.Field() + web.GetErrorMsg(field)
		}

		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})

		return
	}

	key, ok := idempotencyKey(gctx)
	if !ok {
		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	result, err := h.service.Deposit(ctx, ledgerservice.DepositParams{
		AccountID:       authPayload.AccountID,
		AmountCents:     req.AmountCents,
		SettlementToken: req.SettlementToken,
		IdempotencyKey:  key,
	})
	if err != nil {
		writeLedgerError(gctx, err)
		return
	}

	res := transactionResponse{
		Data: transactionData{
			Account:     accountservice.NewAccountProfile(result.Account),
			Transaction: result.Transaction,
			Status:      result.Status,
		},
	}

	gctx.JSON(http.StatusOK, res)
}

type beneficiaryRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"omitempty,email"`
	Bank    string `json:"bank" binding:"required"`
	Account string `json:"account" binding:"required"`
	Routing string `json:"routing"`
	Swift   string `json:"swift"`
	Iban    string `json:"iban"`
}

func (r beneficiaryRequest) beneficiary() domain.Beneficiary {
	return domain.Beneficiary{
		Name:    r.Name,
		Email:   r.Email,
		Bank:    r.Bank,
		Account: r.Account,
		Routing: r.Routing,
		Swift:   r.Swift,
		Iban:    r.Iban,
	}
}

type withdrawRequest struct {
	AmountCents int64              `json:"amount_cents" binding:"required,gt=0"`
	Pin         string             `json:"pin" binding:"required,pin"`
	Beneficiary beneficiaryRequest `json:"beneficiary" binding:"required"`
}

// Withdraw handles http request to withdraw money to an external beneficiary.
func (h *Handler) Withdraw(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(gctx)

	var req withdrawRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		var (
			ve     validator.ValidationErrors
			errMsg string
		)

		if errors.As(err, &ve) {
			field := ve[0]
			errMsg = field.Field() + web.GetErrorMsg(field)
		}

		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})

		return
	}

	key, ok := idempotencyKey(gctx)
	if !ok {
		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	result, err := h.service.Withdraw(ctx, ledgerservice.WithdrawParams{
		AccountID:      authPayload.AccountID,
		AmountCents:    req.AmountCents,
		Pin:            req.Pin,
		Beneficiary:    req.Beneficiary.beneficiary(),
		IdempotencyKey: key,
	})
	if err != nil {
		writeLedgerError(gctx, err)
		return
	}

	res := transactionResponse{
		Data: transactionData{
			Account:     accountservice.NewAccountProfile(result.Account),
			Transaction: result.Transaction,
		},
	}

	gctx.JSON(http.StatusOK, res)
}

type transferRequest struct {
	ToAccountNumber string `json:"to_account_number" binding:"required,accnumber"`
	AmountCents     int64  `json:"amount_cents" binding:"required,gt=0"`
	Pin             string `json:"pin" binding:"required,pin"`
}

// Transfer handles http request to transfer money to another internal account.
func (h *Handler) Transfer(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(gctx)

	var req transferRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		var (
			ve     validator.ValidationErrors
			errMsg string
		)

		if errors.As(err, &ve) {
			field := ve[0]
			errMsg = field.Field() + web.GetErrorMsg(field)
		}

		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})

		return
	}

	key, ok := idempotencyKey(gctx)
	if !ok {
		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	result, err := h.service.Transfer(ctx, ledgerservice.TransferParams{
		FromAccountID:   authPayload.AccountID,
		ToAccountNumber: req.ToAccountNumber,
		AmountCents:     req.AmountCents,
		Pin:             req.Pin,
		IdempotencyKey:  key,
	})
	if err != nil {
		writeLedgerError(gctx, err)
		return
	}

	// Only the sender's side is exposed; the recipient's balance is not
	// the sender's business.
	res := transactionResponse{
		Data: transactionData{
			Account:     accountservice.NewAccountProfile(result.FromAccount),
			Transaction: result.FromTransaction,
		},
	}

	gctx.JSON(http.StatusOK, res)
}

type externalTransferRequest struct {
	AmountCents int64              `json:"amount_cents" binding:"required,gt=0"`
	Pin         string             `json:"pin" binding:"required,pin"`
	Beneficiary beneficiaryRequest `json:"beneficiary" binding:"required"`
}

// ExternalTransfer handles http request to transfer money to another bank.
func (h *Handler) ExternalTransfer(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(gctx)

	var req externalTransferRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		var (
			ve     validator.ValidationErrors
			errMsg string
		)

		if errors.As(err, &ve) {
			field := ve[0]
			errMsg = field.Field() + web.GetErrorMsg(field)
		}

		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})

		return
	}

	key, ok := idempotencyKey(gctx)
	if !ok {
		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	result, err := h.service.ExternalTransfer(ctx, ledgerservice.WithdrawParams{
		AccountID:      authPayload.AccountID,
		AmountCents:    req.AmountCents,
		Pin:            req.Pin,
		Beneficiary:    req.Beneficiary.beneficiary(),
		IdempotencyKey: key,
	})
	if err != nil {
		writeLedgerError(gctx, err)
		return
	}

	res := transactionResponse{
		Data: transactionData{
			Account:     accountservice.NewAccountProfile(result.Account),
			Transaction: result.Transaction,
		},
	}

	gctx.JSON(http.StatusOK, res)
}

type transactionsData struct {
	Transactions []domain.Transaction `json:"transactions"`
}
type transactionsResponse struct {
	Data transactionsData `json:"data,omitempty"`
}

// ListTransactions handles http request to list the account's transactions.
func (h *Handler) ListTransactions(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	transactions, err := h.service.ListTransactions(ctx, authPayload.AccountID)
	if err != nil {
		writeLedgerError(gctx, err)
		return
	}

	res := transactionsResponse{
		Data: transactionsData{Transactions: transactions},
	}

	gctx.JSON(http.StatusOK, res)
}
