package ledgerdelivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/go-abel/nile-bank/internal/accountdelivery"
	"github.com/go-abel/nile-bank/internal/domain"
	"github.com/go-abel/nile-bank/internal/ledgerservice"
	"github.com/go-abel/nile-bank/internal/middleware"
	"github.com/go-abel/nile-bank/pkg/randompkg"
	"github.com/go-abel/nile-bank/pkg/tokenpkg"
	"github.com/go-abel/nile-bank/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("pin", accountdelivery.ValidPin); err != nil {
			panic(err)
		}

		if err := v.RegisterValidation("accnumber", accountdelivery.ValidAccountNumber); err != nil {
			panic(err)
		}
	}

	os.Exit(m.Run())
}

func randomAccount() domain.Account {
	return domain.Account{
		ID:            int32(randompkg.Intn(1000) + 1),
		Name:          randompkg.Owner(),
		Email:         randompkg.Email(),
		AccountNumber: randompkg.AccountNumber(),
		BalanceCents:  randompkg.AmountCentsBetween(1000, 100_000),
		CreatedAt:     time.Now(),
	}
}

type testServer struct {
	router     *gin.Engine
	tokenMaker tokenpkg.Maker
}

func newTestServer(t *testing.T, service Service) testServer {
	t.Helper()

	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	handler := NewHandler(service)

	router := gin.New()

	authorized := router.Group("/").Use(middleware.AuthMiddleware(tokenMaker))
	authorized.POST("/transactions/deposit", handler.Deposit)
	authorized.POST("/transactions/withdraw", handler.Withdraw)
	authorized.POST("/transactions/transfer", handler.Transfer)
	authorized.POST("/transactions/external-transfer", handler.ExternalTransfer)
	authorized.GET("/transactions", handler.ListTransactions)

	return testServer{router: router, tokenMaker: tokenMaker}
}

func (s testServer) request(t *testing.T, account domain.Account, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	request, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)

	for k, v := range headers {
		request.Header.Set(k, v)
	}

	middleware.AddAuthorization(t, request, s.tokenMaker,
		middleware.AuthTypeBearer, account.ID, account.AccountNumber, time.Minute)

	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, request)

	return recorder
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()

	var res web.Response
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))

	return res.Error
}

func TestDeposit(t *testing.T) {
	account := randomAccount()

	t.Run("Completed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockService(ctrl)

		credited := account
		credited.BalanceCents += 1000

		service.EXPECT().
			Deposit(gomock.Any(), gomock.Eq(ledgerservice.DepositParams{
				AccountID:       account.ID,
				AmountCents:     1000,
				SettlementToken: "settlement-token",
			})).
			Times(1).
			Return(ledgerservice.DepositResult{
				Account:     credited,
				Transaction: domain.Transaction{Type: domain.TypeDeposit, AmountCents: 1000},
				Status:      domain.StatusCompleted,
			}, nil)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/deposit",
			gin.H{"amount_cents": 1000, "settlement_token": "settlement-token"}, nil)

		require.Equal(t, http.StatusOK, recorder.Code)

		res := transactionResponse{}
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
		require.Equal(t, domain.StatusCompleted, res.Data.Status)
		require.Equal(t, credited.BalanceCents, res.Data.Account.BalanceCents)
	})

	t.Run("Pending", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockService(ctrl)
		service.EXPECT().
			Deposit(gomock.Any(), gomock.Eq(ledgerservice.DepositParams{
				AccountID:   account.ID,
				AmountCents: 1000,
			})).
			Times(1).
			Return(ledgerservice.DepositResult{
				Account:     account,
				Transaction: domain.Transaction{Type: domain.TypeDepositPending, AmountCents: 1000},
				Status:      domain.StatusPending,
			}, nil)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/deposit",
			gin.H{"amount_cents": 1000}, nil)

		require.Equal(t, http.StatusOK, recorder.Code)

		res := transactionResponse{}
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
		require.Equal(t, domain.StatusPending, res.Data.Status)
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockService(ctrl)
		service.EXPECT().Deposit(gomock.Any(), gomock.Any()).Times(0)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/deposit",
			gin.H{"amount_cents": -5}, nil)

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		require.Equal(t, "AmountCents field must be greater than 0", decodeError(t, recorder))
	})

	t.Run("MalformedIdempotencyKey", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockService(ctrl)
		service.EXPECT().Deposit(gomock.Any(), gomock.Any()).Times(0)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/deposit",
			gin.H{"amount_cents": 1000}, map[string]string{IdempotencyKeyHeader: "not-a-uuid"})

		require.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestWithdraw(t *testing.T) {
	account := randomAccount()

	beneficiary := gin.H{
		"name":    "Chidi Eze",
		"email":   "chidi@email.com",
		"bank":    "First Bank",
		"account": "0011223344",
	}

	t.Run("OK", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		debited := account
		debited.BalanceCents -= 1000

		service := NewMockService(ctrl)
		service.EXPECT().
			Withdraw(gomock.Any(), gomock.Eq(ledgerservice.WithdrawParams{
				AccountID:   account.ID,
				AmountCents: 1000,
				Pin:         "4321",
				Beneficiary: domain.Beneficiary{
					Name:    "Chidi Eze",
					Email:   "chidi@email.com",
					Bank:    "First Bank",
					Account: "0011223344",
				},
			})).
			Times(1).
			Return(ledgerservice.WithdrawResult{
				Account:     debited,
				Transaction: domain.Transaction{Type: domain.TypeWithdrawal, AmountCents: 1000},
			}, nil)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/withdraw",
			gin.H{"amount_cents": 1000, "pin": "4321", "beneficiary": beneficiary}, nil)

		require.Equal(t, http.StatusOK, recorder.Code)

		res := transactionResponse{}
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
		require.Equal(t, debited.BalanceCents, res.Data.Account.BalanceCents)
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockService(ctrl)
		service.EXPECT().
			Withdraw(gomock.Any(), gomock.Any()).
			Times(1).
			Return(ledgerservice.WithdrawResult{}, domain.ErrInsufficientBalance)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/withdraw",
			gin.H{"amount_cents": 1000, "pin": "4321", "beneficiary": beneficiary}, nil)

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		require.Equal(t, domain.ErrInsufficientBalance.Error(), decodeError(t, recorder))
	})

	t.Run("InvalidPin", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockService(ctrl)
		service.EXPECT().
			Withdraw(gomock.Any(), gomock.Any()).
			Times(1).
			Return(ledgerservice.WithdrawResult{}, domain.ErrInvalidPin)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/withdraw",
			gin.H{"amount_cents": 1000, "pin": "4321", "beneficiary": beneficiary}, nil)

		require.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("MissingBeneficiaryBank", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockService(ctrl)
		service.EXPECT().Withdraw(gomock.Any(), gomock.Any()).Times(0)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/withdraw",
			gin.H{"amount_cents": 1000, "pin": "4321", "beneficiary": gin.H{
				"name":    "Chidi Eze",
				"account": "0011223344",
			}}, nil)

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		require.Equal(t, "Bank field is required", decodeError(t, recorder))
	})
}

func TestTransfer(t *testing.T) {
	account := randomAccount()
	recipient := randomAccount()

	body := gin.H{
		"to_account_number": recipient.AccountNumber,
		"amount_cents":      1000,
		"pin":               "4321",
	}

	t.Run("OK", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		debited := account
		debited.BalanceCents -= 1000

		service := NewMockService(ctrl)
		service.EXPECT().
			Transfer(gomock.Any(), gomock.Eq(ledgerservice.TransferParams{
				FromAccountID:   account.ID,
				ToAccountNumber: recipient.AccountNumber,
				AmountCents:     1000,
				Pin:             "4321",
			})).
			Times(1).
			Return(ledgerservice.TransferResult{
				FromAccount: debited,
				ToAccount:   recipient,
				FromTransaction: domain.Transaction{
					Type:                domain.TypeTransferOut,
					AmountCents:         1000,
					CounterpartyAccount: recipient.AccountNumber,
				},
				ToTransaction: domain.Transaction{
					Type:                domain.TypeTransferIn,
					AmountCents:         1000,
					CounterpartyAccount: account.AccountNumber,
				},
			}, nil)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/transfer", body, nil)

		require.Equal(t, http.StatusOK, recorder.Code)

		res := transactionResponse{}
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))

		// The sender sees only their own side of the transfer.
		require.Equal(t, debited.BalanceCents, res.Data.Account.BalanceCents)
		require.Equal(t, recipient.AccountNumber, res.Data.Transaction.CounterpartyAccount)
	})

	t.Run("RecipientNotFound", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockService(ctrl)
		service.EXPECT().
			Transfer(gomock.Any(), gomock.Any()).
			Times(1).
			Return(ledgerservice.TransferResult{}, domain.ErrRecipientNotFound)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/transfer", body, nil)

		require.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("RecipientIneligible", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockService(ctrl)
		service.EXPECT().
			Transfer(gomock.Any(), gomock.Any()).
			Times(1).
			Return(ledgerservice.TransferResult{}, domain.ErrRecipientIneligible)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/transfer", body, nil)

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		require.Equal(t, domain.ErrRecipientIneligible.Error(), decodeError(t, recorder))
	})

	t.Run("DuplicateOperation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		key := "0ed49ac0-0d4a-4577-92a4-2dcbeff5e7db"

		service := NewMockService(ctrl)
		service.EXPECT().
			Transfer(gomock.Any(), gomock.Eq(ledgerservice.TransferParams{
				FromAccountID:   account.ID,
				ToAccountNumber: recipient.AccountNumber,
				AmountCents:     1000,
				Pin:             "4321",
				IdempotencyKey:  key,
			})).
			Times(1).
			Return(ledgerservice.TransferResult{}, domain.ErrDuplicateOperation)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/transfer",
			body, map[string]string{IdempotencyKeyHeader: key})

		require.Equal(t, http.StatusConflict, recorder.Code)
	})

	t.Run("MalformedAccountNumber", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		service := NewMockService(ctrl)
		service.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)

		server := newTestServer(t, service)

		recorder := server.request(t, account, http.MethodPost, "/transactions/transfer",
			gin.H{"to_account_number": "123", "amount_cents": 1000, "pin": "4321"}, nil)

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		require.Equal(t, "ToAccountNumber field must be a 10-digit account number", decodeError(t, recorder))
	})
}

func TestListTransactions(t *testing.T) {
	account := randomAccount()

	transactions := []domain.Transaction{
		{ID: 2, AccountID: account.ID, Type: domain.TypeTransferOut, AmountCents: 500},
		{ID: 1, AccountID: account.ID, Type: domain.TypeDeposit, AmountCents: 4000},
	}

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockService(ctrl)
	service.EXPECT().
		ListTransactions(gomock.Any(), gomock.Eq(account.ID)).
		Times(1).
		Return(transactions, nil)

	server := newTestServer(t, service)

	recorder := server.request(t, account, http.MethodGet, "/transactions", nil, nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	res := transactionsResponse{}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
	require.Len(t, res.Data.Transactions, 2)
	require.Equal(t, int64(2), res.Data.Transactions[0].ID)
}
