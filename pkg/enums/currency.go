package enums

// Currency is the ISO 4217 currency code stored alongside monetary columns.
type Currency string

const CurrencyINR Currency = "INR"

// IsValid reports whether the value matches a supported currency.
func (c Currency) IsValid() bool {
	return c == CurrencyINR
}
