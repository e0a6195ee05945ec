package ledgerservice

import (
	"testing"
	"time"

	"github.com/go-abel/nile-bank/pkg/randompkg"
	"github.com/go-abel/nile-bank/pkg/tokenpkg"
	"github.com/stretchr/testify/require"
)

func TestTokenSettlementConfirm(t *testing.T) {
	t.Parallel()

	maker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	otherMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	verifier := NewTokenSettlement(maker)

	accountNumber := randompkg.AccountNumber()

	validToken := func(t *testing.T, maker tokenpkg.Maker, subject string, duration time.Duration) string {
		t.Helper()

		token, _, err := maker.CreateToken(0, subject, duration)
		require.NoError(t, err)

		return token
	}

	testCases := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:  "OK",
			token: validToken(t, maker, accountNumber, time.Minute),
		},
		{
			name:    "EmptyToken",
			token:   "",
			wantErr: tokenpkg.ErrInvalidToken,
		},
		{
			name:    "Garbage",
			token:   "not-a-token",
			wantErr: tokenpkg.ErrInvalidToken,
		},
		{
			name:    "WrongKey",
			token:   validToken(t, otherMaker, accountNumber, time.Minute),
			wantErr: tokenpkg.ErrInvalidToken,
		},
		{
			name:    "WrongSubject",
			token:   validToken(t, maker, "0000000000", time.Minute),
			wantErr: tokenpkg.ErrInvalidToken,
		},
		{
			name:    "Expired",
			token:   validToken(t, maker, accountNumber, -time.Minute),
			wantErr: tokenpkg.ErrExpiredToken,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := verifier.Confirm(tc.token, accountNumber)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}
