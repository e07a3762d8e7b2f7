package span

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// LoadOptions selects how a request body is bound to the typed request.
type LoadOptions int

const (
	// LoadValidateAndLoad decodes the body into the typed request and
	// validates it. The default.
	LoadValidateAndLoad LoadOptions = iota

	// LoadValidateOnly decodes a shadow copy of the body for validation but
	// leaves the typed request's body untouched; handlers read the media
	// through span.Media or span.RawMedia.
	LoadValidateOnly

	// LoadIgnore skips both binding and validation. Handlers read the media
	// through span.Media or span.RawMedia.
	LoadIgnore
)

// DumpOptions selects how response media is serialized.
type DumpOptions int

const (
	// DumpOnly encodes the response without validating it. The default.
	DumpOnly DumpOptions = iota

	// DumpAndValidate validates the response value before encoding it;
	// failures become response validation errors.
	DumpAndValidate

	// DumpIgnore passes pre-encoded media (string, []byte, bson.Raw, or a
	// generic value) straight to the negotiated codec.
	DumpIgnore
)

// SelfValidator is implemented by request types that validate themselves.
type SelfValidator interface {
	Validate() error
}

// Validator validates a request or response value.
type Validator interface {
	Validate(v any) error
}

// playgroundValidator adapts go-playground/validator to the Validator
// interface, flattening field errors into a single message.
type playgroundValidator struct {
	validate *validator.Validate
}

// NewValidator returns the default Validator, backed by
// go-playground/validator struct tags.
func NewValidator() Validator {
	return &playgroundValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (pv *playgroundValidator) Validate(v any) error {
	err := pv.validate.Struct(v)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		// Non-struct values have nothing to validate.
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		messages[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}
	return errors.New(strings.Join(messages, "; "))
}
