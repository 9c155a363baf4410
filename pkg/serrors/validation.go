package serrors

import (
	"errors"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// FromValidator converts validator errors into a ValidationError keyed by json field name.
// Messages are rendered with trans when it is non-nil.
// Errors that are not validator.ValidationErrors are returned unchanged.
func FromValidator(err error, trans ut.Translator) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		if fe.Param() != "" {
			out.Fields[fe.Field()] = fe.Tag() + "=" + fe.Param()
		} else {
			out.Fields[fe.Field()] = fe.Tag()
		}
		if trans != nil {
			if out.Messages == nil {
				out.Messages = make(map[string]string, len(verrs))
			}
			out.Messages[fe.Field()] = fe.Translate(trans)
		}
	}
	return out
}
