package valueobject

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	JPY Currency = "JPY" // Japanese Yen
	KWD Currency = "KWD" // Kuwaiti Dinar
	CLF Currency = "CLF" // Chilean Unidad de Fomento
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = USD

// currencyExponents maps currencies to their minor-unit exponent.
// Currencies not listed use two decimal places.
var currencyExponents = map[Currency]int32{
	JPY: 0,
	KWD: 3,
	CLF: 4,
}

// Exponent returns the number of decimal places for the currency
func (c Currency) Exponent() int32 {
	if exp, ok := currencyExponents[c]; ok {
		return exp
	}
	return 2
}

// IsValid reports whether the currency code looks like an ISO 4217 code
func (c Currency) IsValid() bool {
	return len(c) == 3
}

// Money is a value object pairing a monetary amount with its currency.
// It is immutable - all operations return new Money instances - and it
// refuses arithmetic across currencies.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustMoney creates Money and panics on an empty currency. For callers
// holding an already-validated currency, like an aggregate's own.
func MustMoney(amount decimal.Decimal, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// with keeps the currency and swaps the amount.
func (m Money) with(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: m.currency}
}

func (m Money) requireSameCurrency(op string, other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("cannot %s money with different currencies: %s and %s", op, m.currency, other.currency)
	}
	return nil
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency code
func (m Money) Currency() Currency { return m.currency }

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Add returns a new Money with the sum of both amounts.
// Returns error if currencies don't match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.requireSameCurrency("add", other); err != nil {
		return Money{}, err
	}
	return m.with(m.amount.Add(other.amount)), nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Money with the difference.
// Returns error if currencies don't match.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.requireSameCurrency("subtract", other); err != nil {
		return Money{}, err
	}
	return m.with(m.amount.Sub(other.amount)), nil
}

// MustSubtract subtracts two Money values, panics if currencies don't match
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// GreaterThan returns true if this Money is greater than the other.
// Returns error if currencies don't match.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.requireSameCurrency("compare", other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// Min returns the smaller of the two values, panics if currencies don't
// match. The cap operation for refund and payment math.
func (m Money) Min(other Money) Money {
	if err := m.requireSameCurrency("compare", other); err != nil {
		panic(err)
	}
	if m.amount.GreaterThan(other.amount) {
		return other
	}
	return m
}

// String returns the amount at the currency's exponent, e.g. "10.00 USD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(m.currency.Exponent()), m.currency)
}
