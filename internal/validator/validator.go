package validator

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"lendfi/internal/money"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// Validator checks request schemas and renders failures as readable messages.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("amount_min", amountMin)
	_ = v.RegisterValidation("amount_max", amountMax)
	_ = v.RegisterValidation("password", strongPassword)
	_ = v.RegisterValidation("past", inThePast)
	_ = v.RegisterValidation("rate", percentageRate)

	return &Validator{v: v}
}

// Validate returns nil when s passes, otherwise one message per failed field.
func (v *Validator) Validate(s any) []string {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, message(e))
	}
	return messages
}

func message(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required", "required_if", "required_with":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(e.Param(), " ", ", "))
	case "amount_min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "amount_max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "password":
		return field + " must be at least 8 characters and contain upper and lower case letters, a number and a special character"
	case "past":
		return field + " must be a date in the past"
	case "datetime":
		return field + " must be a date formatted YYYY-MM-DD"
	case "rate":
		return field + " must be between 0 and 100 with at most 2 decimal places"
	case "uuid":
		return field + " must be a valid id"
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}

func amountMin(fl validator.FieldLevel) bool {
	return compareAmount(fl, func(value, bound int64) bool { return value >= bound })
}

func amountMax(fl validator.FieldLevel) bool {
	return compareAmount(fl, func(value, bound int64) bool { return value <= bound })
}

func compareAmount(fl validator.FieldLevel, ok func(value, bound int64) bool) bool {
	bound, err := money.ParseAmount(fl.Param())
	if err != nil {
		return false
	}
	field := fl.Field()
	if field.Kind() != reflect.Int64 {
		return false
	}
	return ok(field.Int(), int64(bound))
}

func strongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return lower && upper && digit && special
}

func inThePast(fl validator.FieldLevel) bool {
	field := fl.Field()
	if t, ok := field.Interface().(time.Time); ok {
		return t.Before(time.Now())
	}
	if field.Kind() != reflect.String {
		return false
	}
	parsed, err := time.Parse(DateLayout, field.String())
	if err != nil {
		return false
	}
	return parsed.Before(time.Now())
}

func percentageRate(fl validator.FieldLevel) bool {
	rate, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return false
	}
	return rate.Exponent() >= -2 || rate.Equal(rate.Round(2))
}
