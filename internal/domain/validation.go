package domain

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate runs struct-tag validation on v and translates any failure into
// the package's own Error taxonomy so callers never branch on the
// validator library's own error type.
func Validate(v interface{}) error {
	if err := getValidator().Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			details := map[string]interface{}{}
			for _, fe := range verrs {
				details[fe.Namespace()] = fe.Tag()
			}
			return NewError(ErrValidation, "validation failed", details)
		}
		return Wrap(ErrValidation, "validation failed", err)
	}
	return nil
}
