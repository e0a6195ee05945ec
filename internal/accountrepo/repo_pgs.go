// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"

	"github.com/go-abel/nile-bank/internal/domain"
	"github.com/go-abel/nile-bank/pkg/dbpkg"
	"github.com/go-abel/nile-bank/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const AccountColumns = `
	id, name, email, account_number, hashed_password, pin_hash, balance,
	card_number, card_last4, card_expiry_month, card_expiry_year, card_cvv,
	created_at
`

// ScanAccount scans one accounts row from the given row scanner.
func ScanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var (
		a       domain.Account
		pinHash sql.NullString
		number  sql.NullString
		last4   sql.NullString
		month   sql.NullString
		year    sql.NullString
		cvv     sql.NullString
	)

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.AccountNumber,
		&a.HashedPassword,
		&pinHash,
		&a.BalanceCents,
		&number,
		&last4,
		&month,
		&year,
		&cvv,
		&a.CreatedAt,
	)
	if err != nil {
		return a, err
	}

	if pinHash.Valid {
		a.PIN = domain.PinFromHash(pinHash.String)
	}

	if number.Valid {
		a.Card = &domain.VirtualCard{
			Number:      number.String,
			Last4:       last4.String,
			ExpiryMonth: month.String,
			ExpiryYear:  year.String,
			CVV:         cvv.String,
		}
	}

	return a, nil
}

const createQuery = `
INSERT INTO
    accounts (name, email, account_number, hashed_password, balance)
VALUES
    ($1, $2, $3, $4, 0)
RETURNING` + AccountColumns

// Create creates the account with zero balance and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.Name,
		arg.Email,
		arg.AccountNumber,
		arg.HashedPassword,
	)

	a, err := ScanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				switch pqErr.Constraint {
				case "accounts_email_key":
					return a, domain.ErrEmailAlreadyExists
				case "accounts_account_number_key":
					return a, domain.ErrAccountNumberAlreadyExists
				}
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getByIDQuery = `
SELECT` + AccountColumns + `
FROM accounts
WHERE id = $1
`

// GetByID returns the account with the given id.
func (r *RepoPGS) GetByID(ctx context.Context, id int32) (domain.Account, error) {
	return r.get(ctx, getByIDQuery, id)
}

const getByEmailQuery = `
SELECT` + AccountColumns + `
FROM accounts
WHERE LOWER(email) = LOWER($1)
`

// GetByEmail returns the account with the given email, matched case-insensitively.
func (r *RepoPGS) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.get(ctx, getByEmailQuery, email)
}

const getByNumberQuery = `
SELECT` + AccountColumns + `
FROM accounts
WHERE account_number = $1
`

// GetByNumber returns the account with the given account number.
func (r *RepoPGS) GetByNumber(ctx context.Context, number string) (domain.Account, error) {
	return r.get(ctx, getByNumberQuery, number)
}

func (r *RepoPGS) get(ctx context.Context, query string, key any) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, query, key)

	a, err := ScanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const numberExistsQuery = `
SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)
`

// NumberExists reports whether an account with the given number exists.
func (r *RepoPGS) NumberExists(ctx context.Context, number string) (bool, error) {
	l := zerolog.Ctx(ctx)

	var exists bool
	if err := r.db.QueryRowContext(ctx, numberExistsQuery, number).Scan(&exists); err != nil {
		l.Error().Err(err).Send()
		return false, errorspkg.ErrInternal
	}

	return exists, nil
}

const setPinQuery = `
UPDATE accounts
SET pin_hash = $1
WHERE id = $2
RETURNING` + AccountColumns

// SetPin stores the PIN hash on the account and returns the updated account.
func (r *RepoPGS) SetPin(ctx context.Context, id int32, pinHash string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, setPinQuery, pinHash, id)

	a, err := ScanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const setCardQuery = `
UPDATE accounts
SET card_number = $1,
    card_last4 = $2,
    card_expiry_month = $3,
    card_expiry_year = $4,
    card_cvv = $5
WHERE id = $6 AND card_number IS NULL
RETURNING` + AccountColumns

// SetCard stores the virtual card on the account. It fails with
// ErrCardAlreadyIssued when a card is already present.
func (r *RepoPGS) SetCard(ctx context.Context, id int32, card domain.VirtualCard) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, setCardQuery,
		card.Number,
		card.Last4,
		card.ExpiryMonth,
		card.ExpiryYear,
		card.CVV,
		id,
	)

	a, err := ScanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrCardAlreadyIssued
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}
