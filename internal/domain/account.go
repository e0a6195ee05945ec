// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrRecipientNotFound indicates that the transfer recipient account is not found.
	ErrRecipientNotFound = errors.New("recipient account not found")
	// ErrEmailAlreadyExists indicates that an account with the given email already exists.
	ErrEmailAlreadyExists = errors.New("email already registered")
	// ErrAccountNumberAlreadyExists indicates a collision on the allocated account number.
	ErrAccountNumberAlreadyExists = errors.New("account number already exists")
	// ErrInvalidCredentials indicates a wrong identifier/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPinNotConfigured indicates that no PIN has been set for the account.
	ErrPinNotConfigured = errors.New("pin not set")
	// ErrInvalidPin indicates that the supplied PIN does not match the stored one.
	ErrInvalidPin = errors.New("invalid pin")
	// ErrCardAlreadyIssued indicates that the account already holds a virtual card.
	ErrCardAlreadyIssued = errors.New("virtual card already issued")
)

// PinCredential is the authorization state of an account.
// The zero value means no PIN has been configured yet.
type PinCredential struct {
	hash string
}

// PinFromHash returns a configured PIN credential backed by the given bcrypt hash.
func PinFromHash(hash string) PinCredential {
	return PinCredential{hash: hash}
}

// Configured reports whether a PIN has been set for the account.
func (p PinCredential) Configured() bool {
	return p.hash != ""
}

// Hash returns the stored bcrypt hash. Empty when not configured.
func (p PinCredential) Hash() string {
	return p.hash
}

// VirtualCard holds virtual card data issued at most once per account.
type VirtualCard struct {
	Number      string `json:"number"`
	Last4       string `json:"last4"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
}

// Account holds account holder identity and balance data.
// BalanceCents is the only mutable financial field and is changed
// exclusively by ledger operations.
type Account struct {
	ID             int32
	Name           string
	Email          string
	AccountNumber  string
	HashedPassword string
	PIN            PinCredential
	BalanceCents   int64
	Card           *VirtualCard
	CreatedAt      time.Time
}

// CreateAccountParams is the input data to create an account.
type CreateAccountParams struct {
	Name           string
	Email          string
	HashedPassword string
	AccountNumber  string
}

// AccountProfile is Account data excluding credential data.
type AccountProfile struct {
	ID            int32        `json:"id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	AccountNumber string       `json:"account_number"`
	BalanceCents  int64        `json:"balance_cents"`
	Card          *VirtualCard `json:"card,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
