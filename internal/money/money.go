package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places an Amount carries.
const Scale = 8

const unit = int64(100_000_000)

// MaxAmount is the largest principal accepted on input. Twice this value
// still fits a NUMERIC(18,8) column, so interest at 100% cannot overflow it.
const MaxAmount = Amount(1_000_000_000 * unit)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// Amount is a fixed-point quantity counted in 10^-8 units.
type Amount int64

func ParseAmount(input string) (Amount, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	sign := int64(1)
	switch trimmed[0] {
	case '-':
		sign = -1
		trimmed = trimmed[1:]
	case '+':
		trimmed = trimmed[1:]
	}
	parts := strings.SplitN(trimmed, ".", 2)
	wholePart := parts[0]
	if wholePart == "" {
		wholePart = "0"
	}
	if !isDigits(wholePart) {
		return 0, ErrInvalidAmount
	}
	fracPart := ""
	if len(parts) == 2 {
		fracPart = strings.TrimRight(parts[1], "0")
		if parts[1] != "" && !isDigits(parts[1]) {
			return 0, ErrInvalidAmount
		}
	}
	if len(fracPart) > Scale {
		return 0, ErrTooManyDecimals
	}
	whole, err := strconv.ParseInt(wholePart, 10, 64)
	if err != nil || whole > math.MaxInt64/unit {
		return 0, ErrInvalidAmount
	}
	frac := int64(0)
	if fracPart != "" {
		padded := fracPart + strings.Repeat("0", Scale-len(fracPart))
		frac, err = strconv.ParseInt(padded, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
	}
	if whole == math.MaxInt64/unit && frac > math.MaxInt64%unit {
		return 0, ErrInvalidAmount
	}
	return Amount(sign * (whole*unit + frac)), nil
}

// MustParse is for constants and tests.
func MustParse(input string) Amount {
	amount, err := ParseAmount(input)
	if err != nil {
		panic(err)
	}
	return amount
}

func (a Amount) String() string {
	value := int64(a)
	negative := value < 0
	if negative {
		value = -value
	}
	formatted := fmt.Sprintf("%d.%08d", value/unit, value%unit)
	if negative {
		return "-" + formatted
	}
	return formatted
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

// FromDecimal rounds half-even to the Amount scale.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Shift(Scale).RoundBank(0).IntPart())
}

func (a Amount) IsPositive() bool {
	return a > 0
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalidAmount
		}
		raw = s
	} else if strings.ContainsAny(raw, "eE") {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return ErrInvalidAmount
		}
		raw = d.String()
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan reads NUMERIC(18,8) columns, which the postgres driver hands over as text.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = 0
		return nil
	case []byte:
		return a.scanString(string(v))
	case string:
		return a.scanString(v)
	case int64:
		*a = Amount(v * unit)
		return nil
	case float64:
		*a = FromDecimal(decimal.NewFromFloat(v))
		return nil
	default:
		return fmt.Errorf("money: unsupported scan type %T", src)
	}
}

func (a *Amount) scanString(raw string) error {
	parsed, err := ParseAmount(raw)
	if err != nil {
		return fmt.Errorf("money: scan %q: %w", raw, err)
	}
	*a = parsed
	return nil
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
