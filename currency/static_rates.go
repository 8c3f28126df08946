package currency

import "github.com/shopspring/decimal"

// staticBase is the currency the built-in table is quoted against.
const staticBase = "SGD"

// staticRates holds units of each currency per 1 SGD. Used when the live
// table cannot be fetched or lacks a currency.
var staticRates = map[string]string{
	"SGD": "1",
	"USD": "0.74",
	"EUR": "0.69",
	"GBP": "0.59",
	"JPY": "110",
	"CAD": "1.01",
	"AUD": "1.07",
	"CHF": "0.67",
	"CNY": "5.26",
	"HKD": "5.78",
	"NZD": "1.17",
	"SEK": "7.98",
	"NOK": "7.85",
	"DKK": "5.13",
	"PLN": "3.11",
	"CZK": "17.2",
	"HUF": "276",
	"RUB": "73.5",
	"BRL": "3.95",
	"MXN": "17.8",
	"KRW": "960",
	"TWD": "22.8",
	"THB": "26.5",
	"MYR": "3.42",
	"ZAR": "13.8",
	"ARS": "365",
	"CLP": "890",
	"COP": "4200",
	"PEN": "3.75",
}

// StaticTable returns the built-in table rebased onto base. It returns nil
// when base itself is not in the table.
func StaticTable(base string) map[string]decimal.Decimal {
	parsed := make(map[string]decimal.Decimal, len(staticRates))
	for code, v := range staticRates {
		parsed[code] = decimal.RequireFromString(v)
	}
	if base == staticBase {
		return parsed
	}

	pivot, ok := parsed[base]
	if !ok || !pivot.IsPositive() {
		return nil
	}
	rebased := make(map[string]decimal.Decimal, len(parsed))
	for code, rate := range parsed {
		rebased[code] = rate.Div(pivot)
	}
	return rebased
}
