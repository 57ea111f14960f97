package handler

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report JSON field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Let numeric tags (gte, lte) see decimals; an absent value fails "required"
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		nd, ok := field.Interface().(decimal.NullDecimal)
		if !ok || !nd.Valid {
			return nil
		}
		if entity.CheckAmountRange(nd.Decimal) != nil {
			// Converting an unbounded exponent to float is unbounded work;
			// validateConvertRequest rejects these before the validator runs
			return math.Inf(1)
		}
		f, _ := nd.Decimal.Float64()
		return f
	}, decimal.NullDecimal{})

	return v
}

// validateConvertRequest returns a "field: message" list, or "" when req is valid
func validateConvertRequest(req ConvertRequest) string {
	if req.Amount.Valid {
		if err := entity.CheckAmountRange(req.Amount.Decimal); err != nil {
			return err.Error()
		}
	}
	if err := validate.Struct(req); err != nil {
		return validationMessage(err)
	}
	return ""
}

// validationMessage turns validator output into "field: message" pairs
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+": "+fieldMessage(fe))
	}
	return strings.Join(msgs, ", ")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len", "alpha":
		return "must be a 3-letter currency code (e.g., USD)"
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "is invalid"
	}
}
