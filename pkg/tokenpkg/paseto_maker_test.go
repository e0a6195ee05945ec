package tokenpkg

import (
	"testing"
	"time"

	"github.com/go-abel/nile-bank/pkg/randompkg"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestPasetoMaker(t *testing.T) {
	t.Parallel()

	secretKey := randompkg.String(32)

	maker, err := NewPasetoMaker(secretKey)
	if err != nil {
		t.Fatalf("NewPasetoMaker(%v) returned error: %v", secretKey, err)
	}

	accountID := int32(randompkg.Intn(1000))
	accountNumber := randompkg.AccountNumber()
	duration := time.Minute

	token, payload, err := maker.CreateToken(accountID, accountNumber, duration)
	if err != nil {
		t.Errorf("maker.CreateToken(%v, %v, %v) returned error: %v", accountID, accountNumber, duration, err)
	}

	_, err = maker.VerifyToken(token)
	if err != nil {
		t.Errorf("maker.VerifyToken(%v) returned error: %v", token, err)
	}

	want := &Payload{
		AccountID: accountID,
		Subject:   accountNumber,
		IssuedAt:  time.Now(),
		ExpiredAt: time.Now().Add(duration),
	}

	ignore := cmpopts.IgnoreFields(Payload{}, "ID")
	delta := cmpopts.EquateApproxTime(time.Minute)

	if diff := cmp.Diff(payload, want, ignore, delta); diff != "" {
		t.Errorf("maker.CreateToken(%v, %v, %v) returned unexpected diff: %v", accountID, accountNumber, duration, diff)
	}
}

func TestExpiredPasetoToken(t *testing.T) {
	t.Parallel()

	secretKey := randompkg.String(32)

	maker, err := NewPasetoMaker(secretKey)
	if err != nil {
		t.Fatalf("NewPasetoMaker(%v) returned error: %v", secretKey, err)
	}

	accountNumber := randompkg.AccountNumber()
	duration := -time.Minute

	token, _, err := maker.CreateToken(1, accountNumber, duration)
	if err != nil {
		t.Errorf("maker.CreateToken(1, %v, %v) returned error: %v", accountNumber, duration, err)
	}

	_, err = maker.VerifyToken(token)
	if err != ErrExpiredToken {
		t.Errorf("maker.VerifyToken(%v) returned unexpected error: %v", token, err)
	}
}

func TestInvalidKeySize(t *testing.T) {
	t.Parallel()

	if _, err := NewPasetoMaker(randompkg.String(16)); err == nil {
		t.Error("NewPasetoMaker with short key returned no error")
	}
}
