package responder

import (
	"net/http"

	perrors "github.com/leeforge/extcore/errors"
)

const (
	// 4xxx client errors
	ErrCodeBadRequest       = 4000
	ErrCodeBindFailed       = 4001
	ErrCodeValidationFailed = 4002
	ErrCodeNotFound         = 4003
	ErrCodeConflict         = 4008

	// 5xxx server errors
	ErrCodeInternalServer = 5000
	ErrCodePlugin         = 5010
	ErrCodeResource       = 5011
)

var errorMessages = map[int]string{
	ErrCodeBadRequest:       "Bad Request",
	ErrCodeBindFailed:       "Invalid Request Body",
	ErrCodeValidationFailed: "Validation Failed",
	ErrCodeNotFound:         "Resource Not Found",
	ErrCodeConflict:         "Data Conflict",
	ErrCodeInternalServer:   "Internal Server Error",
	ErrCodePlugin:           "Plugin Error",
	ErrCodeResource:         "Resource Error",
}

// GetErrorMessage returns the default message for an error code
func GetErrorMessage(code int) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Unknown Error"
}

func NewError(code int, message string) Error {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return Error{Code: code, Message: message}
}

func NewErrorWithDetails(code int, message string, details any) Error {
	e := NewError(code, message)
	e.Details = details
	return e
}

// FromError maps a plugin subsystem error to an HTTP status and payload.
// The plugin name, when known, is reported in Details.
func FromError(err error) (int, Error) {
	typ, ok := perrors.TypeOf(err)
	if !ok {
		return http.StatusInternalServerError, NewError(ErrCodeInternalServer, err.Error())
	}

	var details any
	if name := perrors.PluginOf(err); name != "" {
		details = map[string]string{"plugin": name, "type": string(typ)}
	}

	switch typ {
	case perrors.ErrorTypeNotFound:
		return http.StatusNotFound, NewErrorWithDetails(ErrCodeNotFound, err.Error(), details)
	case perrors.ErrorTypeNameCollision, perrors.ErrorTypeContract:
		return http.StatusConflict, NewErrorWithDetails(ErrCodeConflict, err.Error(), details)
	case perrors.ErrorTypeResource:
		return http.StatusUnprocessableEntity, NewErrorWithDetails(ErrCodeResource, err.Error(), details)
	default:
		return http.StatusInternalServerError, NewErrorWithDetails(ErrCodePlugin, err.Error(), details)
	}
}
