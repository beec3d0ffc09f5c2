package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BindingFieldDetails converts a gin binding failure into per-field
// details. The second return is false when the error was not a
// validation failure, e.g. malformed JSON.
func BindingFieldDetails(err error) ([]FieldDetail, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}

	details := make([]FieldDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldDetail{
			Field:   strings.ToLower(fe.Field()),
			Message: bindingMessage(fe),
		})
	}
	return details, true
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", strings.ToLower(fe.Field()))
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", strings.ToLower(fe.Field()))
	default:
		return fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field()))
	}
}
