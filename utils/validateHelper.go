package utils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs validator tags on inputs that arrive outside the gin
// binding path (internal callers, tests, batch items).
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return ValidationErrorf("%v", err)
	}
	return nil
}
