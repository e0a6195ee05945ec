package domain

import (
	"errors"
	"time"
)

var (
	// ErrInsufficientBalance indicates that the account does not have sufficient balance.
	ErrInsufficientBalance = errors.New("insufficient funds")
	// ErrRecipientIneligible indicates that the recipient balance is below the receiving minimum.
	ErrRecipientIneligible = errors.New("recipient balance below receiving minimum")
	// ErrSelfTransfer indicates a transfer where source and destination are the same account.
	ErrSelfTransfer = errors.New("cannot transfer to the same account")
	// ErrDuplicateOperation indicates that the idempotency key was already used.
	ErrDuplicateOperation = errors.New("operation already applied")
)

// TransactionType labels the kind of money movement a ledger entry records.
type TransactionType string

// Ledger entry types.
const (
	TypeDeposit          TransactionType = "deposit"
	TypeDepositPending   TransactionType = "deposit-pending"
	TypeWithdrawal       TransactionType = "withdrawal"
	TypeTransferIn       TransactionType = "transfer-in"
	TypeTransferOut      TransactionType = "transfer-out"
	TypeExternalTransfer TransactionType = "external-transfer"
)

// TransactionStatus is the settlement state of a ledger entry.
type TransactionStatus string

// Ledger entry statuses.
const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
)

// Beneficiary holds the external receiving party of a withdrawal or
// external transfer. Routing, Swift and Iban are optional.
type Beneficiary struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Bank    string `json:"bank"`
	Account string `json:"account"`
	Routing string `json:"routing,omitempty"`
	Swift   string `json:"swift,omitempty"`
	Iban    string `json:"iban,omitempty"`
}

// Transaction is an immutable ledger entry recording one money movement
// affecting one account. Entries are append only; a completed entry's
// BalanceAfterCents equals the owning account's balance right after the
// operation that created it.
type Transaction struct {
	ID                  int64             `json:"id"`
	AccountID           int32             `json:"account_id"`
	Type                TransactionType   `json:"type"`
	AmountCents         int64             `json:"amount_cents"`
	BalanceAfterCents   int64             `json:"balance_after_cents"`
	Status              TransactionStatus `json:"status"`
	CounterpartyAccount string            `json:"counterparty_account,omitempty"`
	Beneficiary         Beneficiary       `json:"beneficiary,omitempty"`
	Description         string            `json:"description,omitempty"`
	IdempotencyKey      string            `json:"-"`
	CreatedAt           time.Time         `json:"created_at"`
}

// CreateTransactionParams is the input data to append a ledger entry.
type CreateTransactionParams struct {
	AccountID           int32
	Type                TransactionType
	AmountCents         int64
	BalanceAfterCents   int64
	Status              TransactionStatus
	CounterpartyAccount string
	Beneficiary         Beneficiary
	Description         string
	IdempotencyKey      string
}
