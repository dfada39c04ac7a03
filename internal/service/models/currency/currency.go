package currency

import (
	"database/sql/driver"
	"errors"
	"strings"
)

type Currency string

const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyCNY Currency = "CNY"
)

// Default is used when a request does not name a currency.
const Default = CurrencyRUB

var ErrInvalidCurrency = errors.New("invalid currency")

func (c Currency) String() string {
	return string(c)
}

func (c Currency) Value() (driver.Value, error) {
	return c.String(), nil
}

// ParseCurrency parses an ISO 4217 code. An empty string yields Default.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case "":
		return Default, nil
	case CurrencyRUB:
		return CurrencyRUB, nil
	case CurrencyUSD:
		return CurrencyUSD, nil
	case CurrencyEUR:
		return CurrencyEUR, nil
	case CurrencyCNY:
		return CurrencyCNY, nil
	default:
		return "", ErrInvalidCurrency
	}
}
