package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"stockflow/internal/core/apperror"
)

// Quantity is a count of whole units. Stock, movement lines, invoice lines and
// pending receipts all count pieces, never fractions.
type Quantity int64

// NewQuantity validates v as a quantity.
func NewQuantity(v int64) (Quantity, error) {
	if v < 0 {
		return 0, apperror.NewValidation("quantity must not be negative").
			WithDetail("value", v)
	}
	return Quantity(v), nil
}

// QuantityFromFloat accepts only whole, non-negative values.
func QuantityFromFloat(v float64) (Quantity, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, apperror.NewValidation("quantity must be a whole number").
			WithDetail("value", v)
	}
	if !fitsInt64(v) {
		return 0, apperror.NewValidation("quantity is too large").
			WithDetail("value", v)
	}
	return NewQuantity(int64(v))
}

// fitsInt64 reports whether the whole number v converts to int64 exactly.
// float64(math.MaxInt64) rounds up to 2^63, hence the strict bound.
func fitsInt64(v float64) bool {
	return v >= math.MinInt64 && v < math.MaxInt64
}

func (q Quantity) Int64() int64 { return int64(q) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) String() string { return strconv.FormatInt(int64(q), 10) }

// MarshalJSON encodes Quantity as a JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a numeric string. Fractional
// values are rejected unless the fraction is zero ("4.0").
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	s := string(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}

	parsed, err := parseQuantityString(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func parseQuantityString(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Quantity(v), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("quantity must be a whole number, got %s", s)
	}
	if !fitsInt64(f) {
		return 0, fmt.Errorf("quantity is out of range, got %s", s)
	}
	return Quantity(int64(f)), nil
}
