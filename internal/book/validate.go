package book

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/justyntemme/storybook/internal/apperr"
	"github.com/justyntemme/storybook/pkg/models"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a validator that reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Validator{v: v}
}

// Validate checks the book against its schema and the page numbering rule.
// Field errors are keyed by path, e.g. "pages[1].text".
func (v *Validator) Validate(b *models.Book) error {
	fieldErrors := make(map[string]string)

	if err := v.v.Struct(b); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return apperr.Wrap(err, apperr.CodeValidation, "validate book")
		}
		for _, e := range validationErrs {
			fieldErrors[fieldPath(e)] = friendlyMessage(e)
		}
	}

	// Pages must be numbered 1..n in order.
	for i, p := range b.Pages {
		key := fmt.Sprintf("pages[%d].pageNumber", i)
		if _, ok := fieldErrors[key]; ok {
			continue
		}
		if p.PageNumber != i+1 {
			fieldErrors[key] = fmt.Sprintf("must be %d (pages are numbered contiguously from 1)", i+1)
		}
	}

	if len(fieldErrors) > 0 {
		return apperr.ValidationWithDetails("invalid book", fieldErrors)
	}
	return nil
}

func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "url":
		return "must be an absolute URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "excludesall":
		return "must not contain any of: " + e.Param()
	default:
		return "is invalid"
	}
}
