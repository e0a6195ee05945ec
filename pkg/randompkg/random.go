// Package randompkg provides functionality for generating random application common items.
package randompkg

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz"
	digits   = "0123456789"

	// AccountNumberLength is the fixed length of allocated account numbers.
	AccountNumberLength = 10

	cardNumberPrefix = "4556"
	cardNumberLength = 16
)

// Intn is a shortcut for generating a random integer between 0 and max using crypto/rand.
func Intn(max int) int64 {
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(err)
	}

	return nBig.Int64()
}

// Int64Between generates a random integer between min and max.
func Int64Between(min, max int64) int64 {
	return min + Intn(int(max-min))
}

// String generates a random string of length n.
func String(n int) string {
	var sb strings.Builder

	k := len(alphabet)

	for i := 0; i < n; i++ {
		c := alphabet[Intn(k)]

		_ = sb.WriteByte(c) // The returned err is always nil.
	}

	return sb.String()
}

// Digits generates a random numeric string of length n.
func Digits(n int) string {
	var sb strings.Builder

	k := len(digits)

	for i := 0; i < n; i++ {
		c := digits[Intn(k)]

		_ = sb.WriteByte(c) // The returned err is always nil.
	}

	return sb.String()
}

// AccountNumber generates a random fixed-length account number candidate.
func AccountNumber() string {
	return Digits(AccountNumberLength)
}

// CardNumber generates a random virtual card number.
func CardNumber() string {
	return cardNumberPrefix + Digits(cardNumberLength-len(cardNumberPrefix))
}

// CVV generates a random 3-digit card verification value.
func CVV() string {
	return Digits(3)
}

// Owner generates a random owner name.
func Owner() string {
	return String(6)
}

// Email generates a random email.
func Email() string {
	return fmt.Sprintf("%s@email.com", String(10))
}

// AmountCentsBetween generates a random amount of money in cents between min and max.
func AmountCentsBetween(min, max int64) int64 {
	return Int64Between(min, max)
}
