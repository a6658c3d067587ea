package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate        *validator.Validate
	passcodePattern = regexp.MustCompile(`^\d{4}$`)
)

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Amounts are decimals; compare them as float64 so gt/gte/lte work.
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})

	registerCustomValidations()
}

func registerCustomValidations() {
	validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "admin", "subadmin":
			return true
		}
		return false
	})

	validate.RegisterValidation("tx_type", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "money_given", "money_returned", "money_added", "transfer", "purchase", "money_request", "":
			return true
		}
		return false
	})

	validate.RegisterValidation("tx_status", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "pending", "completed", "":
			return true
		}
		return false
	})

	// money runs after the decimal type func, so the field arrives as float64.
	validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.Float64 {
			return false
		}
		d := decimal.NewFromFloat(fl.Field().Float())
		return d.Equal(d.Truncate(2))
	})

	validate.RegisterValidation("passcode", func(fl validator.FieldLevel) bool {
		return passcodePattern.MatchString(fl.Field().String())
	})

	validate.RegisterValidation("user_status", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "active", "inactive":
			return true
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range verrs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "money":
			errors[field] = "Amount must have at most 2 decimal places"
		case "passcode":
			errors[field] = "Passcode must be exactly 4 digits"
		case "role":
			errors[field] = "Invalid role. Must be: admin or subadmin"
		case "tx_type":
			errors[field] = "Invalid transaction type"
		case "tx_status":
			errors[field] = "Invalid status. Must be: pending or completed"
		case "user_status":
			errors[field] = "Invalid status. Must be: active or inactive"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}

// IsPasscode reports whether s is a 4-digit passcode
func IsPasscode(s string) bool {
	return passcodePattern.MatchString(s)
}
