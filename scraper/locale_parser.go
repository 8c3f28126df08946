package scraper

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"eshopscout/errs"
)

// LocaleParser turns display price strings from any storefront locale into
// decimals: "$59.99", "59,99 €", "¥6,578", "R$ 299,00", "CHF 1'234.50".
type LocaleParser struct {
	number  *regexp.Regexp
	symbols []string
}

// NewLocaleParser creates a new locale-aware parser
func NewLocaleParser() *LocaleParser {
	return &LocaleParser{
		number: regexp.MustCompile(`[0-9][0-9.,'\s\x{00a0}\x{202f}]*`),
		// longest first so "R$" wins over "$"
		symbols: []string{"R$", "CA$", "A$", "NZ$", "HK$", "S$", "NT$", "CHF", "zł", "kr", "Kč", "Ft", "₩", "₽", "$", "£", "€", "¥", "円"},
	}
}

// ParsePrice returns the first amount in text and the currency symbol found
// next to it, if any.
func (lp *LocaleParser) ParsePrice(text string) (decimal.Decimal, string, error) {
	text = strings.TrimSpace(text)
	raw := lp.number.FindString(text)
	if raw == "" {
		return decimal.Zero, "", errs.Newf("no valid price pattern found in: %s", text)
	}

	value, err := decimal.NewFromString(normalizeNumber(raw))
	if err != nil {
		return decimal.Zero, "", errs.Wrapf(err, "parse price %q", text)
	}
	return value, lp.detectSymbol(text), nil
}

func (lp *LocaleParser) detectSymbol(text string) string {
	for _, s := range lp.symbols {
		if strings.Contains(text, s) {
			return s
		}
	}
	return ""
}

// normalizeNumber converts a locale-formatted number into "1234.56" form. When
// both separators appear the later one is the decimal point; a lone separator
// followed by exactly three digits is a thousands separator.
func normalizeNumber(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\'', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)
	s = strings.TrimRight(s, ".,")

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		return resolveSingleSeparator(s, ",")
	case lastDot >= 0:
		return resolveSingleSeparator(s, ".")
	}
	return s
}

func resolveSingleSeparator(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) == 2 && len(parts[1]) != 3 {
		return parts[0] + "." + parts[1]
	}
	return strings.Join(parts, "")
}
