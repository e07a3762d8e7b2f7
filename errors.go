package span

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// Error header names. Errors are reported exclusively through these headers;
// the response body is suppressed unless the error opts into sending it.
const (
	HeaderErrorName    = "error-name"
	HeaderErrorMessage = "error-message"
	HeaderErrorID      = "error-id"
	HeaderErrorCode    = "error-code"
	HeaderErrorData    = "error-data"
)

// ErrorKind is a named error category with a fixed HTTP status and API code.
// Kinds are declared once and shared; individual occurrences are *APIError
// values minted from a kind.
type ErrorKind struct {
	name     string
	httpCode int
	apiCode  int
}

// NewErrorKind declares a new error kind. Name appears in the error-name
// header, httpCode is the response status, and apiCode appears in the
// error-code header. API codes below 2000 are reserved for built-in kinds.
func NewErrorKind(name string, httpCode, apiCode int) *ErrorKind {
	return &ErrorKind{name: name, httpCode: httpCode, apiCode: apiCode}
}

// Built-in error kinds.
var (
	// ErrUnknown is the generic catch-all. Any error that does not resolve
	// to a declared kind is downgraded to it at the response boundary.
	ErrUnknown = NewErrorKind("APIError", http.StatusNotImplemented, 1000)

	// ErrInvalidMethod reports a request method the route does not serve.
	ErrInvalidMethod = NewErrorKind("InvalidMethodError", http.StatusMethodNotAllowed, 1001)

	// ErrNothingToReturn reports a handler that produced no media for a
	// route that declares a response body.
	ErrNothingToReturn = NewErrorKind("NothingToReturnError", http.StatusBadRequest, 1002)

	// ErrRequestValidation reports request bodies or parameters that failed
	// decoding, coercion, or validation.
	ErrRequestValidation = NewErrorKind("RequestValidationError", http.StatusBadRequest, 1003)

	// ErrLimitExceeded reports a paging or rate limit violation.
	ErrLimitExceeded = NewErrorKind("APILimitError", http.StatusBadRequest, 1004)

	// ErrResponseValidation reports response media that failed validation
	// or could not be encoded.
	ErrResponseValidation = NewErrorKind("ResponseValidationError", http.StatusBadRequest, 1005)
)

// Name returns the kind's name as sent in the error-name header.
func (k *ErrorKind) Name() string { return k.name }

// HTTPCode returns the HTTP status for errors of this kind.
func (k *ErrorKind) HTTPCode() int { return k.httpCode }

// APICode returns the numeric API code for errors of this kind.
func (k *ErrorKind) APICode() int { return k.apiCode }

// New mints an error of this kind with a fresh random ID.
func (k *ErrorKind) New(message string) *APIError {
	return &APIError{kind: k, message: message, id: uuid.New()}
}

// Newf mints an error of this kind with a formatted message.
func (k *ErrorKind) Newf(format string, args ...any) *APIError {
	return k.New(fmt.Sprintf(format, args...))
}

// APIError is a single error occurrence. It is immutable once constructed
// apart from the opt-in builder methods, and is serialized to response
// headers, never to the body.
type APIError struct {
	kind     *ErrorKind
	message  string
	id       uuid.UUID
	data     map[string]any
	sendBody bool
	cause    error
}

// Kind returns the error's kind.
func (e *APIError) Kind() *ErrorKind { return e.kind }

// Message returns the error's message as sent in the error-message header.
func (e *APIError) Message() string { return e.message }

// ID returns the error's unique identifier.
func (e *APIError) ID() uuid.UUID { return e.id }

// Data returns the error's optional structured data.
func (e *APIError) Data() map[string]any { return e.data }

// SendBody reports whether the response body should be sent alongside the
// error headers. Default false: error responses have no body.
func (e *APIError) SendBody() bool { return e.sendBody }

// WithData attaches structured data, JSON-encoded into the error-data header.
func (e *APIError) WithData(data map[string]any) *APIError {
	e.data = data
	return e
}

// WithSendBody opts the error into sending the handler's response media as
// the body of the error response.
func (e *APIError) WithSendBody() *APIError {
	e.sendBody = true
	return e
}

// WithCause records the underlying error for errors.Unwrap chains.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.kind.name, e.kind.apiCode, e.message)
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error { return e.cause }

// StatusCode returns the HTTP status for the error's kind.
func (e *APIError) StatusCode() int { return e.kind.httpCode }

// Is reports whether target is an *APIError of the same kind, so
// errors.Is(err, span.ErrRequestValidation.New("")) works for kind checks.
func (e *APIError) Is(target error) bool {
	var apiErr *APIError
	if !errors.As(target, &apiErr) {
		return false
	}
	return apiErr.kind == e.kind
}

// IsKind reports whether err resolves to an APIError of the given kind.
func IsKind(err error, kind *ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.kind == kind
}

// StatusCoder is implemented by errors or responses that carry an HTTP
// status code.
type StatusCoder interface {
	StatusCode() int
}

// translateError resolves any error to an *APIError. Recognized kinds pass
// through; everything else is downgraded to ErrUnknown.
func translateError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrUnknown.New(err.Error()).WithCause(err)
}

// writeErrorHeaders serializes an APIError into the error-* headers.
func writeErrorHeaders(h http.Header, e *APIError) {
	h.Set(HeaderErrorName, e.kind.name)
	h.Set(HeaderErrorMessage, e.message)
	h.Set(HeaderErrorID, e.id.String())
	h.Set(HeaderErrorCode, strconv.Itoa(e.kind.apiCode))

	if e.data != nil {
		if encoded, err := json.Marshal(e.data); err == nil {
			h.Set(HeaderErrorData, string(encoded))
		}
	}
}

// APIErrorFromHeaders reconstructs an APIError from response headers, for
// client-side use. Returns false when no error headers are present. The
// reconstructed kind carries the transmitted name and code; httpStatus is
// the status of the response the headers were read from.
func APIErrorFromHeaders(h http.Header, httpStatus int) (*APIError, bool) {
	name := h.Get(HeaderErrorName)
	if name == "" {
		return nil, false
	}

	code, err := strconv.Atoi(h.Get(HeaderErrorCode))
	if err != nil {
		code = ErrUnknown.apiCode
	}

	id, err := uuid.Parse(h.Get(HeaderErrorID))
	if err != nil {
		id = uuid.Nil
	}

	apiErr := &APIError{
		kind:    NewErrorKind(name, httpStatus, code),
		message: h.Get(HeaderErrorMessage),
		id:      id,
	}

	if raw := h.Get(HeaderErrorData); raw != "" {
		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err == nil {
			apiErr.data = data
		}
	}

	return apiErr, true
}
