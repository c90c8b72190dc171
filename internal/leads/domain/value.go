package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ValuePrecision is the number of decimal places stored for a lead value.
const ValuePrecision = 2

// ErrInvalidValue is returned by NormalizeValue in strict mode.
var ErrInvalidValue = errors.New("value must be a non-negative decimal number")

// NormalizeValue turns raw client input into a stored lead value.
//
// Empty and null input become zero. Unparseable or negative input also
// becomes zero unless strict is set, in which case ErrInvalidValue is
// returned. Parsed values are rounded half away from zero to two places.
func NormalizeValue(raw *string, strict bool) (decimal.Decimal, error) {
	if raw == nil {
		return decimal.Zero, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return decimal.Zero, nil
	}

	parsed, err := decimal.NewFromString(strings.ReplaceAll(trimmed, ",", ""))
	if err != nil || parsed.IsNegative() {
		if strict {
			return decimal.Zero, ErrInvalidValue
		}
		return decimal.Zero, nil
	}

	return parsed.Round(ValuePrecision), nil
}
