package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// Amount is a monetary value in minor units (1/100 of the currency unit).
type Amount uint64

// AmountScale is the number of minor units in one currency unit.
const AmountScale = 100

// Units converts whole currency units to an Amount.
func Units(n uint64) Amount {
	return Amount(n * AmountScale)
}

// Percent returns a × pct / 100, truncated. The product is computed in 128 bits
// so large amounts never overflow before the division.
func (a Amount) Percent(pct uint32) Amount {
	hi, lo := bits.Mul64(uint64(a), uint64(pct))
	if hi >= 100 {
		// quotient would not fit in 64 bits; only reachable with pct > 100
		return Amount(^uint64(0))
	}
	q, _ := bits.Div64(hi, lo, 100)
	return Amount(q)
}

func (a Amount) String() string {
	return fmt.Sprintf("%d.%02d", uint64(a)/AmountScale, uint64(a)%AmountScale)
}

// ParseAmount parses a decimal string with at most two fractional digits.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty amount")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	f, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	hi, lo := bits.Mul64(w, AmountScale)
	sum, carry := bits.Add64(lo, f, 0)
	if hi != 0 || carry != 0 {
		return 0, fmt.Errorf("amount %q overflows", s)
	}
	return Amount(sum), nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both "12.50" and 12.5 style values.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores amounts as signed bigint columns.
func (a Amount) Value() (driver.Value, error) {
	if uint64(a) > math.MaxInt64 {
		return nil, fmt.Errorf("amount %d exceeds column range", uint64(a))
	}
	return int64(a), nil
}

func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = 0
	case int64:
		if v < 0 {
			return fmt.Errorf("negative amount %d", v)
		}
		*a = Amount(v)
	case []byte:
		n, err := strconv.ParseUint(string(v), 10, 64)
		if err != nil {
			return err
		}
		*a = Amount(n)
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		*a = Amount(n)
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}
	return nil
}
