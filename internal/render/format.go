package render

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// currencySymbol prefixes every formatted amount. Receipts use the Brazilian
// convention: fixed symbol, two decimals, comma as the decimal separator.
const currencySymbol = "R$ "

// FormatCurrency renders a decimal amount as e.g. "R$ 12,50".
func FormatCurrency(amount *decimal.Decimal) string {
	if amount == nil {
		return ""
	}
	return currencySymbol + strings.Replace(amount.StringFixed(2), ".", ",", 1)
}

// FormatCurrencyString parses a free-form numeric string and formats it like
// FormatCurrency. Unparseable input is returned unchanged so an override
// never disappears from the receipt.
func FormatCurrencyString(raw string) string {
	if raw == "" {
		return ""
	}
	d, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
	if err != nil {
		return raw
	}
	return FormatCurrency(&d)
}

// FormatOrderID renders an order id for receipts.
func FormatOrderID(id int64) string {
	return strconv.FormatInt(id, 10)
}
