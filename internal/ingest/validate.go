package ingest

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jengzang/records-timeline/internal/models"
)

// ValidationError describes why a sample was discarded
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

var sampleValidator = newSampleValidator()

// newSampleValidator reports fields by their json names and adds the
// finite and sample_source rules used by models.RawSample
func newSampleValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]validator.Func{
		"finite": func(fl validator.FieldLevel) bool {
			x := fl.Field().Float()
			return !math.IsNaN(x) && !math.IsInf(x, 0)
		},
		"sample_source": func(fl validator.FieldLevel) bool {
			return models.IsValidSource(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}

// Validate rejects physically impossible samples. The first failing field
// is reported.
func Validate(s models.RawSample) error {
	err := sampleValidator.Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Errorf("failed to validate sample: %w", err)
	}
	fe := errs[0]
	return invalid(fe.Field(), reason(fe))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "finite":
		return "not a finite number"
	case "required", "required_if":
		return "missing"
	case "sample_source":
		return fmt.Sprintf("unknown source %q", fe.Value())
	case "gte":
		if fe.Param() == "0" {
			return "negative"
		}
		return "below " + fe.Param()
	case "lte":
		return "above " + fe.Param()
	case "lt":
		return "not below " + fe.Param()
	}
	return fmt.Sprintf("fails %s", fe.Tag())
}
