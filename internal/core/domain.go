package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	ListOpen   ListStatus = "open"
	ListClosed ListStatus = "closed"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
)

type (
	ListStatus string

	ListID        int64
	ParticipantID int64
	ExpenseID     int64

	Date struct {
		time.Time
	}

	// Participant is a member of an expenses list. Identity is the ID alone.
	Participant struct {
		ID   ParticipantID `json:"id"`
		Name string        `json:"name"`
	}

	// ExpenseRecord is one expense paid by a single participant and shared
	// evenly by its beneficiaries. The payer need not be a beneficiary.
	ExpenseRecord struct {
		ID            ExpenseID       `json:"id"`
		Name          string          `json:"name"`
		Date          Date            `json:"date"`
		Amount        Money           `json:"amount"`
		PaidBy        ParticipantID   `json:"paidBy"`
		Beneficiaries []ParticipantID `json:"participantIds"`
	}

	// ExpensesList groups participants and expenses under one currency.
	ExpensesList struct {
		ID          ListID     `json:"id"`
		OwnerID     string     `json:"-"`
		Name        string     `json:"name"`
		Description string     `json:"description"`
		Status      ListStatus `json:"status"`
		Currency    string     `json:"currency"`
		CreatedAt   time.Time  `json:"createdAt"`
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountTooLarge     = fmt.Errorf("%w: more than %d cents", ErrInvalidAmount, MaxAmountCents)
	ErrEmptyName          = errors.New("empty name")
	ErrNameTooLong        = fmt.Errorf("name too long (max %d characters)", maxNameLength)
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", maxDescriptionLength)
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrInvalidStatus      = errors.New("invalid list status")
	ErrMissingPayer       = errors.New("missing payer")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String returns the date in YYYY-MM-DD format, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	*d = parsed
	return nil
}

func (s ListStatus) IsValid() bool {
	switch s {
	case ListOpen, ListClosed:
		return true
	default:
		return false
	}
}

// NormalizeCurrency upper-cases and validates a three-letter currency code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return code, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (p Participant) Validate() error {
	return validateName(p.Name)
}

// Validate checks the fields a persistence collaborator needs before storing
// an expense. Roster membership is checked by ComputeBalances.
func (e ExpenseRecord) Validate() error {
	if err := validateName(e.Name); err != nil {
		return err
	}
	if !e.Date.IsZero() {
		if err := e.Date.Validate(); err != nil {
			return err
		}
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.PaidBy == 0 {
		return ErrMissingPayer
	}
	if len(e.Beneficiaries) == 0 {
		return ErrEmptyBeneficiarySet
	}
	return nil
}

func (l ExpensesList) Validate() error {
	if err := validateName(l.Name); err != nil {
		return err
	}
	if len(l.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if !l.Status.IsValid() {
		return ErrInvalidStatus
	}
	if _, err := NormalizeCurrency(l.Currency); err != nil {
		return err
	}
	return nil
}
