package auth

import (
	"fmt"
	"post-it/errors"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidatePayload checks the struct tags of a decoded client or ingestion payload.
func ValidatePayload(payload any) error {
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}

// ValidateBody enforces the message body bounds, counted in runes.
func ValidateBody(body string, maxLength int) error {
	n := utf8.RuneCountInString(body)
	if n == 0 {
		return fmt.Errorf("%w: body is empty", errors.ErrInvalidPayload)
	}
	if maxLength > 0 && n > maxLength {
		return fmt.Errorf("%w: body exceeds %d characters", errors.ErrInvalidPayload, maxLength)
	}
	return nil
}
