// Package money holds signed currency amounts as integer cents. On the wire
// an amount is a decimal JSON number such as 12.5 or -20.00.
package money

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned for text that is not a decimal amount.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a number of cents. Negative amounts are income or refunds.
type Amount int64

const maxUnits = (1<<63 - 1) / 100

// Parse converts a decimal string to an Amount. It accepts an optional sign
// and a dot or comma separator, and rounds half away from zero on the third
// decimal place.
func Parse(s string) (Amount, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !digits(intPart) || !digits(fracPart) {
		return 0, ErrInvalidAmount
	}

	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || units > maxUnits {
		return 0, ErrInvalidAmount
	}

	var cents int64
	if len(fracPart) > 0 {
		cents = int64(fracPart[0]-'0') * 10
	}
	if len(fracPart) > 1 {
		cents += int64(fracPart[1] - '0')
	}
	if len(fracPart) > 2 && fracPart[2] >= '5' {
		cents++
	}

	total := units*100 + cents
	if total < 0 {
		return 0, ErrInvalidAmount
	}
	if negative {
		total = -total
	}
	return Amount(total), nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Cents returns the amount in cents.
func (a Amount) Cents() int64 { return int64(a) }

// String formats the amount with two decimals, e.g. "-12.50".
func (a Amount) String() string {
	cents := int64(a)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + frac
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	text := string(data)
	if text == "null" {
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return typeError(text)
		}
		text = unquoted
	}
	parsed, err := Parse(text)
	if err != nil {
		return typeError(text)
	}
	*a = parsed
	return nil
}

// typeError lets encoding/json attach the offending field name.
func typeError(value string) error {
	return &json.UnmarshalTypeError{Value: "amount " + value, Type: reflect.TypeOf(Amount(0))}
}
