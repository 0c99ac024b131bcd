package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"tesoro/internal/core"
	"tesoro/internal/log"
	"tesoro/internal/repository"
	"tesoro/internal/services"
)

// JSONResponseBuilder provides a fluent API for writing JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes no content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// ErrorResponse creates an error response.
func ErrorResponse(statusCode int, kind, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message, Kind: kind})
}

// classify maps an error to its status code, kind and client-facing message.
func classify(err error) (int, string, string) {
	var verr *services.ValidationError
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "BadRequest", err.Error()
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, "Unauthorized", err.Error()
	case errors.As(err, &verr):
		kind := core.ErrorKind(err)
		if kind == "" {
			kind = "Validation"
		}
		return http.StatusUnprocessableEntity, kind, err.Error()
	case services.IsNotFound(err):
		kind := "NotFound"
		if errors.Is(err, core.ErrEmptyExpenseSet) {
			kind = core.ErrorKind(err)
		}
		return http.StatusNotFound, kind, err.Error()
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "Conflict", err.Error()
	case errors.Is(err, services.ErrExportUnavailable):
		return http.StatusServiceUnavailable, "ExportUnavailable", services.ErrExportUnavailable.Error()
	case core.IsInputError(err):
		return http.StatusUnprocessableEntity, core.ErrorKind(err), err.Error()
	case errors.Is(err, core.ErrUnbalancedInput):
		return http.StatusInternalServerError, core.ErrorKind(err), "internal server error"
	default:
		return http.StatusInternalServerError, "Internal", "internal server error"
	}
}

// writeError sends err as an ErrorBody. Server errors are logged with the
// request's logger.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, message := classify(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).ErrorContext(r.Context(), "Request failed",
			log.NewFields().WithError(err).WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).ToSlice()...)
	}
	ErrorResponse(status, kind, message).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}
