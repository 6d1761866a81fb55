package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"orderapp/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// 北米形式の電話番号
var phoneRe = regexp.MustCompile(`^(?:\+?1[\s.-]?)?(?:\([2-9]\d{2}\)|[2-9]\d{2})[\s.-]?\d{3}[\s.-]?\d{4}$`)

// echo.Validator を満たす
type RequestValidator struct {
	v *validator.Validate
}

func New() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// エラーのフィールド名はJSONの名前にする
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// decimalは数値として比べる（gt=0など）
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("na_phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("strong_password", func(fl validator.FieldLevel) bool {
		return isStrongPassword(fl.Field().String())
	})

	return &RequestValidator{v: v}
}

// Validate は失敗したら VALIDATION_FAILED の HTTPError を返す
func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := map[string][]string{}
	for _, fe := range verrs {
		path := fieldPath(fe.Namespace())
		fields[path] = append(fields[path], message(fe))
	}
	return usecase.ValidationFailed(fields)
}

// "CreateOrderRequest.items[0].quantity" → "items[0].quantity"
// 埋め込み構造体の型名（大文字始まり）も落とす
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" && unicode.IsUpper([]rune(p)[0]) {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, ".")
}

func message(fe validator.FieldError) string {
	name := label(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", name)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("At least %s %s must be provided.", fe.Param(), name)
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("%s must be %s or greater.", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be %s characters or fewer.", name, fe.Param())
		}
		return fmt.Sprintf("%s must be %s or less.", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s.", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s cannot be negative.", name)
	case "uuid":
		return fmt.Sprintf("%s must be a valid ID.", name)
	case "email":
		return fmt.Sprintf("%s must be a valid email address.", name)
	case "na_phone":
		return fmt.Sprintf("%s must be a valid phone number.", name)
	case "strong_password":
		return fmt.Sprintf("%s must contain an uppercase letter, a lowercase letter and a digit.", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s.", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid.", name)
	}
}

// "stock_quantity" → "Stock quantity"
func label(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return "Value"
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func isStrongPassword(s string) bool {
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
