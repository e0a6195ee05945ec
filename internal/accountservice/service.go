// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-abel/nile-bank/internal/domain"
	"github.com/go-abel/nile-bank/pkg/errorspkg"
	"github.com/go-abel/nile-bank/pkg/passpkg"
	"github.com/go-abel/nile-bank/pkg/randompkg"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	GetByID(ctx context.Context, id int32) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByNumber(ctx context.Context, number string) (domain.Account, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	SetPin(ctx context.Context, id int32, pinHash string) (domain.Account, error)
	SetCard(ctx context.Context, id int32, card domain.VirtualCard) (domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo Repo
}

// New returns account service struct to manage account business logic.
func New(ar Repo) *Service {
	return &Service{repo: ar}
}

// NewAccountProfile returns account data with removed credential data.
func NewAccountProfile(a domain.Account) domain.AccountProfile {
	return domain.AccountProfile{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		AccountNumber: a.AccountNumber,
		BalanceCents:  a.BalanceCents,
		Card:          a.Card,
		CreatedAt:     a.CreatedAt,
	}
}

// Register creates an account with zero balance and a freshly
// allocated account number.
func (s *Service) Register(ctx context.Context, name, email, password string) (domain.AccountProfile, error) {
	l := zerolog.Ctx(ctx)

	var result domain.AccountProfile

	hashedPassword, err := passpkg.Hash(password)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	number, err := s.allocateAccountNumber(ctx)
	if err != nil {
		return result, err
	}

	arg := domain.CreateAccountParams{
		Name:           name,
		Email:          email,
		HashedPassword: hashedPassword,
		AccountNumber:  number,
	}

	account, err := s.repo.Create(ctx, arg)
	if err != nil {
		return result, err
	}

	return NewAccountProfile(account), nil
}

// allocateAccountNumber draws random account numbers until a free one is
// found. The accounts_account_number_key unique constraint backstops the
// check under concurrent registrations.
func (s *Service) allocateAccountNumber(ctx context.Context) (string, error) {
	for {
		number := randompkg.AccountNumber()

		exists, err := s.repo.NumberExists(ctx, number)
		if err != nil {
			return "", err
		}

		if !exists {
			return number, nil
		}
	}
}

// Authenticate checks the password for the account matched by account
// number or email. Lookup failures are reported as invalid credentials
// to avoid leaking which identifiers are registered.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (domain.AccountProfile, error) {
	l := zerolog.Ctx(ctx)

	var result domain.AccountProfile

	account, err := s.repo.GetByNumber(ctx, identifier)
	if errors.Is(err, domain.ErrAccountNotFound) {
		account, err = s.repo.GetByEmail(ctx, identifier)
	}

	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return result, domain.ErrInvalidCredentials
		}

		return result, err
	}

	if err := passpkg.Check(password, account.HashedPassword); err != nil {
		l.Warn().Err(err).Send()
		return result, domain.ErrInvalidCredentials
	}

	return NewAccountProfile(account), nil
}

// Get returns the profile of the account with the given id.
func (s *Service) Get(ctx context.Context, id int32) (domain.AccountProfile, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.AccountProfile{}, err
	}

	return NewAccountProfile(account), nil
}

// SetPin hashes and stores the transaction PIN for the account.
func (s *Service) SetPin(ctx context.Context, id int32, pin string) error {
	l := zerolog.Ctx(ctx)

	pinHash, err := passpkg.Hash(pin)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if _, err := s.repo.SetPin(ctx, id, pinHash); err != nil {
		return err
	}

	return nil
}

// IssueCard issues a virtual card for the account. Issuing is idempotent:
// when a card already exists it is returned unchanged.
func (s *Service) IssueCard(ctx context.Context, id int32) (domain.VirtualCard, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.VirtualCard{}, err
	}

	if account.Card != nil {
		return *account.Card, nil
	}

	number := randompkg.CardNumber()
	card := domain.VirtualCard{
		Number:      number,
		Last4:       number[len(number)-4:],
		ExpiryMonth: fmt.Sprintf("%02d", randompkg.Int64Between(1, 13)),
		ExpiryYear:  fmt.Sprintf("%d", time.Now().AddDate(4, 0, 0).Year()%100),
		CVV:         randompkg.CVV(),
	}

	updated, err := s.repo.SetCard(ctx, id, card)
	if err != nil {
		// Lost the race against a concurrent issue; return the winner's card.
		if errors.Is(err, domain.ErrCardAlreadyIssued) {
			account, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return domain.VirtualCard{}, err
			}

			return *account.Card, nil
		}

		return domain.VirtualCard{}, err
	}

	return *updated.Card, nil
}
