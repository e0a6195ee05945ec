// Package ledgerservice implements the money movement operations.
//
// Every operation runs inside one atomic unit of work supplied by the
// Store: either every balance mutation and ledger append commits, or
// none does.
package ledgerservice

import (
	"context"
	"errors"

	"github.com/go-abel/nile-bank/internal/domain"
	"github.com/go-abel/nile-bank/pkg/passpkg"
	"github.com/rs/zerolog"
)

// RecipientMinimumCents is the minimum balance a destination account
// must already hold to receive an internal transfer.
const RecipientMinimumCents = 100

// Tx provides the storage operations available inside one atomic unit
// of work. LockAccount must hold a write lock on the account row until
// the unit of work ends.
type Tx interface {
	LockAccount(ctx context.Context, id int32) (domain.Account, error)
	GetAccountByNumber(ctx context.Context, number string) (domain.Account, error)
	AddBalance(ctx context.Context, id int32, deltaCents int64) (domain.Account, error)
	AppendTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error)
}

// Store provides the data access layer interface needed by the ledger
// service layer.
type Store interface {
	// Atomic runs fn inside one unit of work and rolls everything back
	// when fn returns an error.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	ListTransactions(ctx context.Context, accountID int32) ([]domain.Transaction, error)
}

// SettlementVerifier confirms that a deposit has been settled by the
// payment provider. Confirm returns nil only for a valid confirmation
// token issued for the given account number.
type SettlementVerifier interface {
	Confirm(token, accountNumber string) error
}

// Notifier delivers post-commit notifications. Failures are logged and
// never affect the committed financial operation.
type Notifier interface {
	WithdrawalProcessed(ctx context.Context, to, holder string, amountCents, balanceAfterCents int64, beneficiary domain.Beneficiary) error
	ExternalTransferSent(ctx context.Context, to, holder string, amountCents int64, beneficiary domain.Beneficiary) error
}

// Service facilitates ledger service layer logic.
type Service struct {
	store      Store
	settlement SettlementVerifier
	notifier   Notifier
}

// New returns ledger service struct to manage money movement business logic.
func New(store Store, settlement SettlementVerifier, notifier Notifier) *Service {
	return &Service{
		store:      store,
		settlement: settlement,
		notifier:   notifier,
	}
}

// verifyPin authorizes a sensitive operation against the account's PIN.
func verifyPin(account domain.Account, pin string) error {
	if !account.PIN.Configured() {
		return domain.ErrPinNotConfigured
	}

	if err := passpkg.Check(pin, account.PIN.Hash()); err != nil {
		return domain.ErrInvalidPin
	}

	return nil
}

// requirePin loads the account under a row lock and authorizes the
// operation. The locked account is returned for reuse within the same
// unit of work.
func requirePin(ctx context.Context, tx Tx, accountID int32, pin string) (domain.Account, error) {
	account, err := tx.LockAccount(ctx, accountID)
	if err != nil {
		return account, err
	}

	if err := verifyPin(account, pin); err != nil {
		return account, err
	}

	return account, nil
}

// DepositParams is the input data for a deposit.
type DepositParams struct {
	AccountID       int32
	AmountCents     int64
	SettlementToken string
	IdempotencyKey  string
}

// DepositResult is the result of a deposit.
type DepositResult struct {
	Account     domain.Account           `json:"account"`
	Transaction domain.Transaction       `json:"transaction"`
	Status      domain.TransactionStatus `json:"status"`
}

// Deposit credits the account when the settlement token confirms the
// deposit; otherwise it only records a pending entry and leaves the
// balance unchanged. Deposits do not require a PIN.
func (s *Service) Deposit(ctx context.Context, arg DepositParams) (DepositResult, error) {
	l := zerolog.Ctx(ctx)

	var result DepositResult

	err := s.store.Atomic(ctx, func(tx Tx) error {
		account, err := tx.LockAccount(ctx, arg.AccountID)
		if err != nil {
			return err
		}

		if err := s.settlement.Confirm(arg.SettlementToken, account.AccountNumber); err != nil {
			l.Info().Err(err).Int32("account_id", account.ID).Msg("deposit awaiting settlement")

			entry, err := tx.AppendTransaction(ctx, domain.CreateTransactionParams{
				AccountID:         account.ID,
				Type:              domain.TypeDepositPending,
				AmountCents:       arg.AmountCents,
				BalanceAfterCents: account.BalanceCents,
				Status:            domain.StatusPending,
				Description:       "Deposit awaiting settlement confirmation",
				IdempotencyKey:    arg.IdempotencyKey,
			})
			if err != nil {
				return err
			}

			result = DepositResult{Account: account, Transaction: entry, Status: domain.StatusPending}

			return nil
		}

		account, err = tx.AddBalance(ctx, account.ID, arg.AmountCents)
		if err != nil {
			return err
		}

		entry, err := tx.AppendTransaction(ctx, domain.CreateTransactionParams{
			AccountID:         account.ID,
			Type:              domain.TypeDeposit,
			AmountCents:       arg.AmountCents,
			BalanceAfterCents: account.BalanceCents,
			Status:            domain.StatusCompleted,
			Description:       "Deposit",
			IdempotencyKey:    arg.IdempotencyKey,
		})
		if err != nil {
			return err
		}

		result = DepositResult{Account: account, Transaction: entry, Status: domain.StatusCompleted}

		return nil
	})
	if err != nil {
		return DepositResult{}, err
	}

	return result, nil
}

// WithdrawParams is the input data for a withdrawal.
type WithdrawParams struct {
	AccountID      int32
	AmountCents    int64
	Pin            string
	Beneficiary    domain.Beneficiary
	IdempotencyKey string
}

// WithdrawResult is the result of a withdrawal.
type WithdrawResult struct {
	Account     domain.Account     `json:"account"`
	Transaction domain.Transaction `json:"transaction"`
}

// Withdraw debits the account and appends a completed withdrawal entry
// carrying the beneficiary record. It requires the account PIN. The
// account holder is notified after the unit of work commits.
func (s *Service) Withdraw(ctx context.Context, arg WithdrawParams) (WithdrawResult, error) {
	var result WithdrawResult

	err := s.store.Atomic(ctx, func(tx Tx) error {
		account, err := requirePin(ctx, tx, arg.AccountID, arg.Pin)
		if err != nil {
			return err
		}

		if account.BalanceCents < arg.AmountCents {
			return domain.ErrInsufficientBalance
		}

		account, err = tx.AddBalance(ctx, account.ID, -arg.AmountCents)
		if err != nil {
			return err
		}

		entry, err := tx.AppendTransaction(ctx, domain.CreateTransactionParams{
			AccountID:         account.ID,
			Type:              domain.TypeWithdrawal,
			AmountCents:       arg.AmountCents,
			BalanceAfterCents: account.BalanceCents,
			Status:            domain.StatusCompleted,
			Beneficiary:       arg.Beneficiary,
			Description:       "Withdrawal",
			IdempotencyKey:    arg.IdempotencyKey,
		})
		if err != nil {
			return err
		}

		result = WithdrawResult{Account: account, Transaction: entry}

		return nil
	})
	if err != nil {
		return WithdrawResult{}, err
	}

	s.notifyAsync(ctx, func(ctx context.Context) error {
		return s.notifier.WithdrawalProcessed(
			ctx,
			result.Account.Email,
			result.Account.Name,
			arg.AmountCents,
			result.Account.BalanceCents,
			arg.Beneficiary,
		)
	})

	return result, nil
}

// TransferParams is the input data for an internal transfer.
type TransferParams struct {
	FromAccountID   int32
	ToAccountNumber string
	AmountCents     int64
	Pin             string
	IdempotencyKey  string
}

// TransferResult is the result of an internal transfer.
type TransferResult struct {
	FromAccount     domain.Account     `json:"from_account"`
	ToAccount       domain.Account     `json:"to_account"`
	FromTransaction domain.Transaction `json:"from_transaction"`
	ToTransaction   domain.Transaction `json:"to_transaction"`
}

// Transfer moves money between two internal accounts. It requires the
// source account PIN and a destination balance of at least
// RecipientMinimumCents. Both balances change and both ledger entries
// are appended in the same unit of work, linked by counterparty
// account number.
func (s *Service) Transfer(ctx context.Context, arg TransferParams) (TransferResult, error) {
	var result TransferResult

	err := s.store.Atomic(ctx, func(tx Tx) error {
		to, err := tx.GetAccountByNumber(ctx, arg.ToAccountNumber)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return domain.ErrRecipientNotFound
			}

			return err
		}

		if to.ID == arg.FromAccountID {
			return domain.ErrSelfTransfer
		}

		// Lock rows in consistent id order to avoid deadlocks.
		var from domain.Account
		if arg.FromAccountID < to.ID {
			from, err = tx.LockAccount(ctx, arg.FromAccountID)
			if err != nil {
				return err
			}

			to, err = tx.LockAccount(ctx, to.ID)
		} else {
			to, err = tx.LockAccount(ctx, to.ID)
			if err != nil {
				return err
			}

			from, err = tx.LockAccount(ctx, arg.FromAccountID)
		}
		if err != nil {
			return err
		}

		if err := verifyPin(from, arg.Pin); err != nil {
			return err
		}

		if from.BalanceCents < arg.AmountCents {
			return domain.ErrInsufficientBalance
		}

		if to.BalanceCents < RecipientMinimumCents {
			return domain.ErrRecipientIneligible
		}

		fromAccount, err := tx.AddBalance(ctx, from.ID, -arg.AmountCents)
		if err != nil {
			return err
		}

		toAccount, err := tx.AddBalance(ctx, to.ID, arg.AmountCents)
		if err != nil {
			return err
		}

		fromEntry, err := tx.AppendTransaction(ctx, domain.CreateTransactionParams{
			AccountID:           fromAccount.ID,
			Type:                domain.TypeTransferOut,
			AmountCents:         arg.AmountCents,
			BalanceAfterCents:   fromAccount.BalanceCents,
			Status:              domain.StatusCompleted,
			CounterpartyAccount: toAccount.AccountNumber,
			Description:         "Transfer to another account",
			IdempotencyKey:      arg.IdempotencyKey,
		})
		if err != nil {
			return err
		}

		toEntry, err := tx.AppendTransaction(ctx, domain.CreateTransactionParams{
			AccountID:           toAccount.ID,
			Type:                domain.TypeTransferIn,
			AmountCents:         arg.AmountCents,
			BalanceAfterCents:   toAccount.BalanceCents,
			Status:              domain.StatusCompleted,
			CounterpartyAccount: fromAccount.AccountNumber,
			Description:         "Transfer from another account",
		})
		if err != nil {
			return err
		}

		result = TransferResult{
			FromAccount:     fromAccount,
			ToAccount:       toAccount,
			FromTransaction: fromEntry,
			ToTransaction:   toEntry,
		}

		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	return result, nil
}

// ExternalTransfer debits the account for a cross-bank transfer and
// appends a completed external-transfer entry carrying the full
// beneficiary record. The beneficiary is notified after commit.
func (s *Service) ExternalTransfer(ctx context.Context, arg WithdrawParams) (WithdrawResult, error) {
	var result WithdrawResult

	err := s.store.Atomic(ctx, func(tx Tx) error {
		account, err := requirePin(ctx, tx, arg.AccountID, arg.Pin)
		if err != nil {
			return err
		}

		if account.BalanceCents < arg.AmountCents {
			return domain.ErrInsufficientBalance
		}

		account, err = tx.AddBalance(ctx, account.ID, -arg.AmountCents)
		if err != nil {
			return err
		}

		entry, err := tx.AppendTransaction(ctx, domain.CreateTransactionParams{
			AccountID:         account.ID,
			Type:              domain.TypeExternalTransfer,
			AmountCents:       arg.AmountCents,
			BalanceAfterCents: account.BalanceCents,
			Status:            domain.StatusCompleted,
			Beneficiary:       arg.Beneficiary,
			Description:       "External transfer",
			IdempotencyKey:    arg.IdempotencyKey,
		})
		if err != nil {
			return err
		}

		result = WithdrawResult{Account: account, Transaction: entry}

		return nil
	})
	if err != nil {
		return WithdrawResult{}, err
	}

	s.notifyAsync(ctx, func(ctx context.Context) error {
		return s.notifier.ExternalTransferSent(
			ctx,
			arg.Beneficiary.Email,
			result.Account.Name,
			arg.AmountCents,
			arg.Beneficiary,
		)
	})

	return result, nil
}

// ListTransactions returns the committed ledger entries of the account
// in reverse chronological order.
func (s *Service) ListTransactions(ctx context.Context, accountID int32) ([]domain.Transaction, error) {
	return s.store.ListTransactions(ctx, accountID)
}

// notifyAsync dispatches a notification decoupled from the committed
// unit of work. Delivery failures are logged, never propagated.
func (s *Service) notifyAsync(ctx context.Context, send func(ctx context.Context) error) {
	l := zerolog.Ctx(ctx)

	go func() {
		ctx := l.WithContext(context.Background())

		if err := send(ctx); err != nil {
			l.Error().Err(err).Msg("notification dispatch failed")
		}
	}()
}
