package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"tesoro/internal/core"
	"tesoro/internal/repository"
	"tesoro/internal/services"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed requests: unreadable JSON, bad path or query
// parameters. It maps to 400.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// pathID reads a positive integer path variable.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

func queryInt(query url.Values, key string) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest("invalid %s %q", key, v)
	}
	return n, nil
}

// ParsePagination reads page and limit from the query string. A missing
// limit returns every item.
func ParsePagination(query url.Values) (repository.Pagination, error) {
	page, err := queryInt(query, "page")
	if err != nil {
		return repository.Pagination{}, err
	}
	limit, err := queryInt(query, "limit")
	if err != nil {
		return repository.Pagination{}, err
	}
	return repository.Pagination{Page: page, Limit: limit}.Normalize(), nil
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("empty request body")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, services.ErrValidation) {
			return err
		}
		return badRequest("invalid JSON: %v", err)
	}
	if dec.More() {
		return badRequest("invalid JSON: trailing data")
	}
	return nil
}

// amountInput accepts an amount either as integer cents (1234) or as a
// decimal string ("12.34", "12,34").
type amountInput struct {
	core.Money
}

func (a *amountInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		cents, err := core.ParseDecimalToCents(s)
		if err != nil {
			return &services.ValidationError{Field: "amount", Err: err}
		}
		a.Money = core.Cents(cents)
		return nil
	}
	return a.Money.UnmarshalJSON(data)
}

// sanitizeInput removes control characters except tab and newlines and trims
// whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}
