package epargne

import (
	"database/sql/driver"
	"strconv"

	"github.com/shopspring/decimal"
)

// Amount wraps decimal.Decimal for monetary values. Arithmetic stays in
// decimal space; JSON marshaling emits a plain number and SQL storage
// uses REAL columns rounded to two places.
type Amount struct {
	decimal.Decimal
}

// NewAmount creates an Amount from a float64.
func NewAmount(f float64) Amount {
	return Amount{decimal.NewFromFloat(f)}
}

// NewAmountFromInt creates an Amount from an int64.
func NewAmountFromInt(i int64) Amount {
	return Amount{decimal.NewFromInt(i)}
}

// ParseAmount parses a decimal string, accepting a comma as the decimal
// separator (CSV files use the French convention).
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(normalizeDecimalString(s))
	if err != nil {
		return Amount{}, err
	}
	return Amount{d}, nil
}

// MarshalJSON outputs the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	f, _ := a.Round(4).Float64()
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// Scan implements sql.Scanner for REAL, INTEGER and TEXT columns.
func (a *Amount) Scan(src any) error {
	if src == nil {
		a.Decimal = decimal.Zero
		return nil
	}
	switch v := src.(type) {
	case float64:
		a.Decimal = decimal.NewFromFloat(v)
		return nil
	case int64:
		a.Decimal = decimal.NewFromInt(v)
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	}
	return a.Decimal.Scan(src)
}

// Value implements driver.Valuer for database writes. Stored at full
// precision: quantities and percents must survive a round trip, so
// rounding stays a presentation concern.
func (a Amount) Value() (driver.Value, error) {
	f, _ := a.Float64()
	return f, nil
}

// String renders without trailing zeros, two-place rounded.
func (a Amount) String() string {
	return a.Decimal.Round(2).String()
}

func amountPtr(v Amount) *Amount {
	return &v
}

// scanNullAmount scans a nullable numeric column into *Amount,
// returning nil for NULL.
func scanNullAmount(src any) (*Amount, error) {
	if src == nil {
		return nil, nil
	}
	var a Amount
	if err := a.Scan(src); err != nil {
		return nil, err
	}
	return &a, nil
}
