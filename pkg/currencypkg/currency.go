// Package currencypkg renders integer minor-unit amounts for display.
package currencypkg

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Format renders an amount of cents as a dollar string, e.g. 123456 -> "$1234.56".
func Format(cents int64) string {
	return "$" + decimal.NewFromInt(cents).Div(hundred).StringFixed(2)
}
