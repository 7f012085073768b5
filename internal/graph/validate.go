package graph

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// A NaN slips through gte/lte comparisons, so every float parameter also
	// carries the finite tag.
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.Float64 && fl.Field().Kind() != reflect.Float32 {
			return true
		}
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// validateParams validates a parameter struct and converts the first
// failure into a *ValidationError for op.
func validateParams(op string, params any) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return invalid(op, "parameters", params, err.Error())
	}
	fe := fieldErrs[0]
	reason := "must satisfy " + fe.Tag()
	if fe.Param() != "" {
		reason = fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	}
	return invalid(op, fe.Field(), fe.Value(), reason)
}
