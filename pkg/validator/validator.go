package validator

import (
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// Validator checks tagged structs and reports every failing field.
type Validator interface {
	Violations(obj interface{}) []string
}

type validator struct {
	v *playground.Validate
}

func New() Validator {
	v := playground.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &validator{v: v}
}

// Violations returns a human readable message per failing field; nil when valid.
func (v *validator) Violations(obj interface{}) []string {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}

	errs, ok := err.(playground.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, message(e))
	}
	return out
}

func message(e playground.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}
