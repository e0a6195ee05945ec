package ledgerservice

import (
	"github.com/go-abel/nile-bank/pkg/tokenpkg"
)

// TokenSettlement verifies deposit settlement confirmation tokens
// issued by the payment provider with the shared settlement key. A
// token confirms a deposit only when its subject matches the credited
// account's number.
type TokenSettlement struct {
	maker tokenpkg.Maker
}

// NewTokenSettlement returns a TokenSettlement backed by the given maker.
func NewTokenSettlement(maker tokenpkg.Maker) TokenSettlement {
	return TokenSettlement{maker: maker}
}

// Confirm implements SettlementVerifier.
func (v TokenSettlement) Confirm(token, accountNumber string) error {
	if token == "" {
		return tokenpkg.ErrInvalidToken
	}

	payload, err := v.maker.VerifyToken(token)
	if err != nil {
		return err
	}

	if payload.Subject != accountNumber {
		return tokenpkg.ErrInvalidToken
	}

	return nil
}
