package binding

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"

	validatorV10 "github.com/go-playground/validator/v10"
	"github.com/leeforge/extcore/json"
)

var validator = validatorV10.New()

type BindError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *BindError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s' %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

type ValidationErrors []BindError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve[0].Error())
}

// Fields maps each failing field to its message.
func (ve ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(ve))
	for _, e := range ve {
		out[e.Field] = e.Message
	}
	return out
}

// JSON decodes the request body into v, then validates v when it points to
// a struct. Decoding failures are *BindError, validation failures
// ValidationErrors.
func JSON(r *http.Request, v any) error {
	if r.Body == nil {
		return &BindError{Type: "bind_error", Message: "request body is empty"}
	}
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return &BindError{Type: "bind_error", Message: "failed to read request body: " + err.Error()}
	}
	if len(body) == 0 {
		return &BindError{Type: "bind_error", Message: "request body is empty"}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &BindError{Type: "json_error", Message: "failed to unmarshal JSON: " + err.Error()}
	}

	if !isStruct(v) {
		return nil
	}
	if err := validator.Struct(v); err != nil {
		var fieldErrs validatorV10.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return &BindError{Type: "validation_error", Message: err.Error()}
		}
		bindErrs := make(ValidationErrors, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			bindErrs = append(bindErrs, BindError{
				Type:    "validation_error",
				Field:   fe.Field(),
				Message: validationMessage(fe),
			})
		}
		return bindErrs
	}
	return nil
}

func validationMessage(fe validatorV10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}
