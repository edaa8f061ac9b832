package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	domainagg "github.com/yungbote/learnhub-backend/internal/domain/aggregates"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tags on in and turns failures into a validation error.
func validateInput(op string, in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return domainagg.NewError(domainagg.CodeValidation, op, strings.Join(msgs, "; "), err)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte", "min":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be <= %s", fe.Field(), fe.Param())
	case "hexcolor":
		return fmt.Sprintf("%s must be a hex color", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a URL", fe.Field())
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}
