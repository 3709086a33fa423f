package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
	ValidateField(field string, value interface{}, rules ...string) error
}

type structValidator struct {
	v *validator.Validate
}

func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &structValidator{v: v}
}

func (s *structValidator) Validate(obj interface{}) error {
	return describe(s.v.Struct(obj))
}

func (s *structValidator) ValidateField(field string, value interface{}, rules ...string) error {
	if err := s.v.Var(value, strings.Join(rules, ",")); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s %s", field, message(verrs[0]))
		}
		return err
	}
	return nil
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", e.Field(), message(e)))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s", e.Param())
	default:
		return fmt.Sprintf("failed %s validation", e.Tag())
	}
}
