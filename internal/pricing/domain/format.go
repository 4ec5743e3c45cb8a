package domain

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatAmount renders a whole-unit amount with its currency symbol for display.
func FormatAmount(amount int64, code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", ErrInvalidCurrency
	}
	p := message.NewPrinter(language.English)
	return p.Sprint(currency.Symbol(unit.Amount(amount))), nil
}
