package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 3, 9))
	if err != nil || string(b) != `"2024-03-09"` {
		t.Fatalf("marshal: %s %v", b, err)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2024-03-09"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.String() != "2024-03-09" {
		t.Fatalf("unexpected date %v", d)
	}
	if err := json.Unmarshal([]byte(`null`), &d); err != nil || !d.IsZero() {
		t.Fatalf("null should give zero date, got %v (%v)", d, err)
	}
	if err := json.Unmarshal([]byte(`"09/03/2024"`), &d); err == nil {
		t.Fatalf("expected error for bad layout")
	}
}

func TestMoneyValidateBasic(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestExpenseRecordValidate(t *testing.T) {
	good := ExpenseRecord{
		Name:          "dinner",
		Date:          NewDate(2025, 1, 1),
		Amount:        Cents(100),
		PaidBy:        1,
		Beneficiaries: []ParticipantID{1, 2},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	undated := good
	undated.Date = Date{}
	if err := undated.Validate(); err != nil {
		t.Fatalf("date is optional, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*ExpenseRecord)
		want   error
	}{
		{"empty name", func(e *ExpenseRecord) { e.Name = "  " }, ErrEmptyName},
		{"long name", func(e *ExpenseRecord) { e.Name = strings.Repeat("x", 101) }, ErrNameTooLong},
		{"zero amount", func(e *ExpenseRecord) { e.Amount = Cents(0) }, ErrInvalidAmount},
		{"no payer", func(e *ExpenseRecord) { e.PaidBy = 0 }, ErrMissingPayer},
		{"no beneficiaries", func(e *ExpenseRecord) { e.Beneficiaries = nil }, ErrEmptyBeneficiarySet},
	}
	for _, tc := range cases {
		e := good
		e.Beneficiaries = append([]ParticipantID(nil), good.Beneficiaries...)
		tc.mutate(&e)
		if err := e.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestExpensesListValidate(t *testing.T) {
	good := ExpensesList{Name: "Trip", Status: ListOpen, Currency: "EUR"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []ExpensesList{
		{Name: "", Status: ListOpen, Currency: "EUR"},
		{Name: "Trip", Status: "archived", Currency: "EUR"},
		{Name: "Trip", Status: ListOpen, Currency: "EURO"},
		{Name: "Trip", Status: ListOpen, Currency: "E1R"},
		{Name: "Trip", Description: strings.Repeat("d", 501), Status: ListOpen, Currency: "EUR"},
	}
	for i, l := range bads {
		if err := l.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	got, err := NormalizeCurrency(" usd ")
	if err != nil || got != "USD" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := NormalizeCurrency("us"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}
