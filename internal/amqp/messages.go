package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExportRequestMessage asks the worker to export the resolution of one
// expenses list. The worker loads and resolves the list itself.
type ExportRequestMessage struct {
	ID          string    `json:"id"`
	ListID      int64     `json:"expensesListId"`
	OwnerID     string    `json:"ownerId"`
	RequestedAt time.Time `json:"requestedAt"`
}

// NewExportRequestMessage creates a message with a fresh id.
func NewExportRequestMessage(listID int64, ownerID string) *ExportRequestMessage {
	return &ExportRequestMessage{
		ID:          uuid.NewString(),
		ListID:      listID,
		OwnerID:     ownerID,
		RequestedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects messages the worker could never process.
func (m *ExportRequestMessage) Validate() error {
	if _, err := uuid.Parse(m.ID); err != nil {
		return fmt.Errorf("invalid message id %q: %w", m.ID, err)
	}
	if m.ListID <= 0 {
		return fmt.Errorf("invalid expenses list id %d", m.ListID)
	}
	if m.OwnerID == "" {
		return errors.New("missing owner id")
	}
	return nil
}

// ExportRequestMessageFromJSON decodes and validates a message body.
func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// permanentError marks a handler failure that retrying cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the consumer drops the delivery instead of requeueing it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was wrapped by Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
