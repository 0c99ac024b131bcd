package log

import (
	"strconv"

	"tesoro/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent       = "component"
	FieldRequestID       = "request_id"
	FieldClientIP        = "client_ip"
	FieldMethod          = "method"
	FieldPath            = "path"
	FieldQuery           = "query"
	FieldStatusCode      = "status_code"
	FieldDuration        = "duration_ms"
	FieldUserAgent       = "user_agent"
	FieldReferer         = "referer"
	FieldSuccess         = "success"
	FieldError           = "error"
	FieldErrorKind       = "error_kind"
	FieldOperation       = "operation"
	FieldOwnerID         = "owner_id"
	FieldListID          = "list_id"
	FieldParticipantID   = "participant_id"
	FieldExpenseID       = "expense_id"
	FieldAmountCents     = "amount_cents"
	FieldExpenseCount    = "expense_count"
	FieldParticipants    = "participant_count"
	FieldSettlementCount = "settlement_count"
	FieldBalances        = "balances"
	FieldCacheHit        = "cache_hit"
	FieldMessageID       = "message_id"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentResolution = "resolution"
	ComponentLists      = "expenses_lists"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentCache      = "cache"
	ComponentSecurity   = "security"
	ComponentRateLimit  = "rate_limit"
	ComponentTrace      = "trace"
	ComponentBackend    = "backend"
)

// Operations defines standard operation names
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpResolve = "resolve"
	OpExport  = "export"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message and, for resolution failures, its kind.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		if kind := core.ErrorKind(err); kind != "" {
			f[FieldErrorKind] = kind
		}
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithList adds the expenses list id.
func (f LogFields) WithList(id core.ListID) LogFields {
	f[FieldListID] = int64(id)
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(e core.ExpenseRecord) LogFields {
	f[FieldExpenseID] = int64(e.ID)
	f[FieldAmountCents] = e.Amount.Cents
	f[FieldParticipantID] = int64(e.PaidBy)
	return f
}

// WithBalances renders a balance map as "id=cents" pairs in id order.
func (f LogFields) WithBalances(b core.Balance) LogFields {
	parts := make([]string, 0, len(b))
	for _, id := range b.IDs() {
		parts = append(parts, strconv.FormatInt(int64(id), 10)+"="+strconv.FormatInt(b[id].Cents, 10))
	}
	f[FieldBalances] = parts
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
