// Package ledgerrepo manages repository layer of the transaction ledger.
package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-abel/nile-bank/internal/accountrepo"
	"github.com/go-abel/nile-bank/internal/domain"
	"github.com/go-abel/nile-bank/internal/ledgerservice"
	"github.com/go-abel/nile-bank/pkg/errorspkg"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// StorePGS facilitates ledger repository layer logic.
type StorePGS struct {
	db *sql.DB
}

// NewStorePGS returns ledger StorePGS.
func NewStorePGS(db *sql.DB) *StorePGS {
	return &StorePGS{db: db}
}

// Atomic runs fn inside one database transaction. Serialization and
// deadlock failures surface as errorspkg.ErrTransient so the caller
// can retry the whole logical operation.
func (s *StorePGS) Atomic(ctx context.Context, fn func(tx ledgerservice.Tx) error) error {
	l := zerolog.Ctx(ctx)

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}
	defer dbTx.Rollback()

	if err := fn(&txPGS{tx: dbTx}); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return mapStorageError(err)
	}

	return nil
}

const listTransactionsQuery = `
SELECT` + transactionColumns + `
FROM transactions
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
`

// ListTransactions returns the account's committed ledger entries in
// reverse chronological order.
func (s *StorePGS) ListTransactions(ctx context.Context, accountID int32) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := s.db.QueryContext(ctx, listTransactionsQuery, accountID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		tr, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, tr)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

// txPGS implements ledgerservice.Tx on top of one database transaction.
type txPGS struct {
	tx *sql.Tx
}

const lockAccountQuery = `
SELECT` + accountrepo.AccountColumns + `
FROM accounts
WHERE id = $1
FOR UPDATE
`

// LockAccount loads the account under a row write lock held until the
// unit of work ends.
func (t *txPGS) LockAccount(ctx context.Context, id int32) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := t.tx.QueryRowContext(ctx, lockAccountQuery, id)

	a, err := accountrepo.ScanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		return a, mapStorageError(err)
	}

	return a, nil
}

const getByNumberQuery = `
SELECT` + accountrepo.AccountColumns + `
FROM accounts
WHERE account_number = $1
`

// GetAccountByNumber resolves an account by number without locking it.
func (t *txPGS) GetAccountByNumber(ctx context.Context, number string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := t.tx.QueryRowContext(ctx, getByNumberQuery, number)

	a, err := accountrepo.ScanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		return a, mapStorageError(err)
	}

	return a, nil
}

const addBalanceQuery = `
UPDATE accounts
SET balance = balance + $1
WHERE id = $2
RETURNING` + accountrepo.AccountColumns

// AddBalance changes the account's balance and returns the changed account.
func (t *txPGS) AddBalance(ctx context.Context, id int32, deltaCents int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := t.tx.QueryRowContext(ctx, addBalanceQuery, deltaCents, id)

	a, err := accountrepo.ScanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		// The balance >= 0 check constraint backstops the service layer check.
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "accounts_balance_check" {
				return a, domain.ErrInsufficientBalance
			}
		}

		return a, mapStorageError(err)
	}

	return a, nil
}

const transactionColumns = `
	id, account_id, type, amount, balance_after, status, counterparty_account,
	beneficiary_name, beneficiary_email, beneficiary_bank, beneficiary_account,
	beneficiary_routing, beneficiary_swift, beneficiary_iban,
	description, idempotency_key, created_at
`

const appendTransactionQuery = `
INSERT INTO transactions (
    account_id, type, amount, balance_after, status, counterparty_account,
    beneficiary_name, beneficiary_email, beneficiary_bank, beneficiary_account,
    beneficiary_routing, beneficiary_swift, beneficiary_iban,
    description, idempotency_key
) VALUES (
    $1, $2, $3, $4, $5, NULLIF($6, ''),
    NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''),
    NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''),
    $14, NULLIF($15, '')::uuid
) RETURNING` + transactionColumns

// AppendTransaction appends one immutable ledger entry. A reused
// idempotency key fails with domain.ErrDuplicateOperation, aborting the
// unit of work before any money moves durably.
func (t *txPGS) AppendTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := t.tx.QueryRowContext(ctx, appendTransactionQuery,
		arg.AccountID,
		arg.Type,
		arg.AmountCents,
		arg.BalanceAfterCents,
		arg.Status,
		arg.CounterpartyAccount,
		arg.Beneficiary.Name,
		arg.Beneficiary.Email,
		arg.Beneficiary.Bank,
		arg.Beneficiary.Account,
		arg.Beneficiary.Routing,
		arg.Beneficiary.Swift,
		arg.Beneficiary.Iban,
		arg.Description,
		arg.IdempotencyKey,
	)

	tr, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == "transactions_idempotency_key_idx" {
				return tr, domain.ErrDuplicateOperation
			}
		}

		return tr, mapStorageError(err)
	}

	return tr, nil
}

func scanTransaction(row interface{ Scan(...any) error }) (domain.Transaction, error) {
	var (
		tr           domain.Transaction
		counterparty sql.NullString
		name         sql.NullString
		email        sql.NullString
		bank         sql.NullString
		account      sql.NullString
		routing      sql.NullString
		swift        sql.NullString
		iban         sql.NullString
		key          sql.NullString
	)

	err := row.Scan(
		&tr.ID,
		&tr.AccountID,
		&tr.Type,
		&tr.AmountCents,
		&tr.BalanceAfterCents,
		&tr.Status,
		&counterparty,
		&name,
		&email,
		&bank,
		&account,
		&routing,
		&swift,
		&iban,
		&tr.Description,
		&key,
		&tr.CreatedAt,
	)
	if err != nil {
		return tr, err
	}

	tr.CounterpartyAccount = counterparty.String
	tr.Beneficiary = domain.Beneficiary{
		Name:    name.String,
		Email:   email.String,
		Bank:    bank.String,
		Account: account.String,
		Routing: routing.String,
		Swift:   swift.String,
		Iban:    iban.String,
	}
	tr.IdempotencyKey = key.String

	return tr, nil
}

// mapStorageError keeps domain sentinels intact and classifies the
// rest as transient (retry-safe) or internal.
func mapStorageError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure and deadlock_detected
		if pqErr.Code == "40001" || pqErr.Code == "40P01" {
			return errorspkg.ErrTransient
		}
	}

	return errorspkg.ErrInternal
}
