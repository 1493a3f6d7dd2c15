// Package bridge converts between host values and Lua values.
//
// Lua uses a small set of dynamically typed values, while host code uses
// distinct Go types. Conversion from a host value to a Lua value (Push) always
// succeeds. Conversion in the other direction (Pull) depends on the
// destination type and may fail with a *ConversionError; the only coercions
// performed are the ones Lua itself performs: numbers are accepted where
// strings are wanted, and numeric strings where numbers are wanted.
package bridge

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	lua "github.com/yuin/gopher-lua"
)

// Placeholder is the text shown in place of a value that cannot be converted
// to a string.
const Placeholder = "[Unknown]"

// Converter converts between host values of type T and Lua values.
type Converter[T any] interface {
	Push(v T) lua.LValue
	Pull(lv lua.LValue) (T, error)
}

// ConversionError is returned when a Lua value cannot be converted to a host
// type.
type ConversionError struct {
	From    string
	To      string
	Message string
}

func (e *ConversionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
	}
	return fmt.Sprintf("cannot convert %s to %s: %s", e.From, e.To, e.Message)
}

func conversionError(lv lua.LValue, to, msg string) *ConversionError {
	return &ConversionError{From: lv.Type().String(), To: to, Message: msg}
}

// String converts strings. Lua numbers are accepted and formatted.
var String Converter[string] = stringConverter{}

// Number converts float64 values. Numeric strings are accepted.
var Number Converter[float64] = numberConverter{}

// Int converts int values. Numeric strings are accepted; numbers with a
// fractional part or outside the range of int are not.
var Int Converter[int] = intConverter{}

// Bool converts booleans. No other values are accepted.
var Bool Converter[bool] = boolConverter{}

type stringConverter struct{}

func (stringConverter) Push(s string) lua.LValue { return lua.LString(s) }

func (stringConverter) Pull(lv lua.LValue) (string, error) {
	switch v := lv.(type) {
	case lua.LString:
		return string(v), nil
	case lua.LNumber:
		s, err := cast.ToStringE(numberToGo(v))
		if err != nil {
			return "", conversionError(lv, "string", err.Error())
		}
		return s, nil
	}
	return "", conversionError(lv, "string", "")
}

// TextOr converts lv to a string, returning Placeholder if it cannot be
// converted.
func TextOr(lv lua.LValue) string {
	s, err := String.Pull(lv)
	if err != nil {
		return Placeholder
	}
	return s
}

type numberConverter struct{}

func (numberConverter) Push(f float64) lua.LValue { return lua.LNumber(f) }

func (numberConverter) Pull(lv lua.LValue) (float64, error) {
	switch v := lv.(type) {
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		f, ok := parseNumber(string(v))
		if !ok {
			return 0, conversionError(lv, "number", fmt.Sprintf("%q is not a number", string(v)))
		}
		return f, nil
	}
	return 0, conversionError(lv, "number", "")
}

var decimalNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Parses a numeric string the way Lua does: a decimal number with optional
// fraction and exponent, or a hexadecimal integer with a 0x prefix, possibly
// surrounded by spaces. Spellings of infinity and NaN are not numbers.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if digits, neg, ok := hexDigits(s); ok {
		u, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return 0, false
		}
		if neg {
			return -float64(u), true
		}
		return float64(u), true
	}
	if !decimalNumber.MatchString(s) {
		return 0, false
	}
	// Out of range exponents give infinities, as in Lua.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

func hexDigits(s string) (digits string, neg, ok bool) {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:], neg, true
	}
	return "", false, false
}

type intConverter struct{}

func (intConverter) Push(i int) lua.LValue { return lua.LNumber(i) }

func (intConverter) Pull(lv lua.LValue) (int, error) {
	f, err := Number.Pull(lv)
	if err != nil {
		if cerr, ok := err.(*ConversionError); ok {
			cerr.To = "integer"
		}
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, conversionError(lv, "integer", "has a fractional part")
	}
	if f < math.MinInt || f >= -math.MinInt {
		return 0, conversionError(lv, "integer", "out of range")
	}
	return cast.ToIntE(f)
}

type boolConverter struct{}

func (boolConverter) Push(b bool) lua.LValue { return lua.LBool(b) }

func (boolConverter) Pull(lv lua.LValue) (bool, error) {
	if b, ok := lv.(lua.LBool); ok {
		return bool(b), nil
	}
	return false, conversionError(lv, "boolean", "")
}

// Integral numbers convert to int64 so that they format without a decimal
// point, the way Lua prints them.
func numberToGo(n lua.LNumber) any {
	f := float64(n)
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}
