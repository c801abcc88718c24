// Package normalize converts raw extracted fields into the canonical
// product shape: minor-unit prices, absolute deduplicated image URLs, and
// Markdown descriptions. Everything here is pure; the same input always
// yields the same output.
package normalize

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoPrice is returned when the text holds no parseable amount.
var ErrNoPrice = errors.New("no parseable price")

// currencySymbols maps symbols and prefixed symbols to ISO 4217 codes.
// Longer keys are matched first so "US $" wins over "$".
var currencySymbols = []struct {
	Marker string
	Code   string
}{
	{"US $", "USD"}, {"US$", "USD"},
	{"C $", "CAD"}, {"C$", "CAD"},
	{"A $", "AUD"}, {"A$", "AUD"},
	{"NZ $", "NZD"}, {"NZ$", "NZD"},
	{"HK $", "HKD"}, {"HK$", "HKD"},
	{"R$", "BRL"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"₽", "RUB"},
	{"₩", "KRW"},
	{"zł", "PLN"},
	{"kr", "SEK"},
}

// currencyCodes are ISO codes accepted as words in the text ("24.50 EUR").
var currencyCodes = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "CAD": {}, "AUD": {},
	"NZD": {}, "INR": {}, "RUB": {}, "CNY": {}, "KRW": {}, "BRL": {},
	"MXN": {}, "CHF": {}, "SEK": {}, "NOK": {}, "DKK": {}, "PLN": {},
	"HKD": {}, "SGD": {}, "TRY": {},
}

// zeroDecimalCurrencies have no minor unit; amounts are already integral.
var zeroDecimalCurrencies = map[string]struct{}{
	"JPY": {}, "KRW": {},
}

// commaDecimalCurrencies are priced in locales that write the decimal
// separator as a comma, so "1.299 €" means one thousand two hundred
// ninety-nine euros.
var commaDecimalCurrencies = map[string]struct{}{
	"EUR": {}, "BRL": {}, "PLN": {}, "SEK": {}, "NOK": {}, "DKK": {},
	"RUB": {}, "TRY": {},
}

const defaultCurrency = "USD"

var (
	amountPattern = regexp.MustCompile(`\d(?:[\d.,\s\x{202f}\x{00a0}]*\d)?`)
	codePattern   = regexp.MustCompile(`\b[A-Z]{3}\b`)
)

// ParsePrice converts raw price text into minor units and an ISO currency
// code. It handles "US $12.99", "$1,299.00", "1.299,00 €", "24.50 EUR",
// "¥1500", and amount ranges (the lower bound wins). When no currency
// marker is present the amount is assumed USD.
func ParsePrice(text string) (int64, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, "", ErrNoPrice
	}

	currency := detectCurrency(text)

	m := amountPattern.FindString(text)
	if m == "" {
		return 0, "", ErrNoPrice
	}
	// Ranges ("$10.99 - $15.99"): FindString already stops at the first
	// amount, which is the lower bound.

	major, minorDigits, err := splitAmount(m, currency)
	if err != nil {
		return 0, "", err
	}

	code := currency
	if code == "" {
		code = defaultCurrency
	}
	exponent := 2
	if _, zero := zeroDecimalCurrencies[code]; zero {
		exponent = 0
	}

	minor, err := toMinorUnits(major, minorDigits, exponent)
	if err != nil {
		return 0, "", err
	}
	return minor, code, nil
}

// detectCurrency finds the currency marker in the text, symbol first, ISO
// code second.
func detectCurrency(text string) string {
	for _, s := range currencySymbols {
		if strings.Contains(text, s.Marker) {
			return s.Code
		}
	}
	for _, code := range codePattern.FindAllString(text, 4) {
		if _, ok := currencyCodes[code]; ok {
			return code
		}
	}
	return ""
}

// splitAmount separates an amount string into its integral digits and its
// decimal digits, deciding between thousands and decimal separators:
// a trailing group of exactly three digits after the only separator is
// ambiguous and treated as thousands when another separator agrees, decimal
// group sizes of 1 or 2 always mean decimals. The currency breaks the
// three-digit tie: "1.299" with a comma-decimal currency is grouping.
func splitAmount(s, currency string) (major string, minorDigits string, err error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', ' ':
			return -1
		}
		return r
	}, s)

	_, commaDecimal := commaDecimalCurrencies[currency]

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	sepIdx := -1
	switch {
	case lastDot < 0 && lastComma < 0:
		return digitsOnly(s), "", nil
	case lastDot >= 0 && lastComma >= 0:
		// Both present: the later one is the decimal separator.
		sepIdx = max(lastDot, lastComma)
	case lastDot >= 0:
		sepIdx = decimalIndex(s, '.', lastDot, commaDecimal)
	default:
		sepIdx = decimalIndex(s, ',', lastComma, commaDecimal)
	}

	if sepIdx < 0 {
		return digitsOnly(s), "", nil
	}
	major = digitsOnly(s[:sepIdx])
	minorDigits = digitsOnly(s[sepIdx+1:])
	if major == "" && minorDigits == "" {
		return "", "", ErrNoPrice
	}
	return major, minorDigits, nil
}

// decimalIndex decides whether the sole separator kind at pos is a decimal
// point. Multiple occurrences mean thousands grouping ("1,299,000"). A
// single occurrence followed by exactly three digits is grouping for a
// comma ("1,299"), and also for a dot when the currency is priced
// comma-decimal ("1.299 €"); anything else is a decimal separator.
func decimalIndex(s string, sep byte, pos int, commaDecimal bool) int {
	if strings.Count(s, string(sep)) > 1 {
		return -1
	}
	if tail := len(s) - pos - 1; tail == 3 {
		if sep == ',' || commaDecimal {
			return -1
		}
	}
	return pos
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// toMinorUnits scales the parsed parts into the currency's minor unit,
// rounding half away from zero when the text carries more precision than
// the currency does.
func toMinorUnits(major, minorDigits string, exponent int) (int64, error) {
	if major == "" {
		major = "0"
	}
	units, err := strconv.ParseInt(major, 10, 64)
	if err != nil {
		return 0, ErrNoPrice
	}

	scale := int64(1)
	for i := 0; i < exponent; i++ {
		scale *= 10
	}

	frac := int64(0)
	if exponent > 0 && minorDigits != "" {
		round := false
		if len(minorDigits) > exponent {
			round = minorDigits[exponent] >= '5'
			minorDigits = minorDigits[:exponent]
		}
		for len(minorDigits) < exponent {
			minorDigits += "0"
		}
		frac, err = strconv.ParseInt(minorDigits, 10, 64)
		if err != nil {
			return 0, ErrNoPrice
		}
		if round {
			frac++
		}
	}
	return units*scale + frac, nil
}
