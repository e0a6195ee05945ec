package accountdelivery

import (
	"github.com/go-playground/validator/v10"
)

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// ValidPin validates a 4-digit transaction PIN.
var ValidPin validator.Func = func(fl validator.FieldLevel) bool {
	if pin, ok := fl.Field().Interface().(string); ok {
		return len(pin) == 4 && allDigits(pin)
	}
	return false
}

// ValidAccountNumber validates a 10-digit account number.
var ValidAccountNumber validator.Func = func(fl validator.FieldLevel) bool {
	if number, ok := fl.Field().Interface().(string); ok {
		return len(number) == 10 && allDigits(number)
	}
	return false
}
