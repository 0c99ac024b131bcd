package sheets

import (
	"fmt"
	"strings"
	"time"

	"tesoro/internal/core"
)

const maxTitleLength = 100

// Title returns the tab name for a list: "<id> <name>" without the
// characters spreadsheets reject in sheet titles.
func Title(l core.ExpensesList) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', '/', '\\', ':', '\'':
			return ' '
		}
		return r
	}, l.Name)
	title := fmt.Sprintf("%d %s", l.ID, strings.Join(strings.Fields(name), " "))
	title = strings.TrimSpace(title)
	if len(title) > maxTitleLength {
		// cut on a rune boundary
		cut := maxTitleLength
		for cut > 0 && !isRuneStart(title[cut]) {
			cut--
		}
		title = strings.TrimSpace(title[:cut])
	}
	return title
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// Rows lays the report out as a grid: a header block, the status table in
// participant id order and the settle plan in planner order.
func (r Report) Rows() [][]any {
	names := make(map[core.ParticipantID]string, len(r.Participants))
	for _, p := range r.Participants {
		names[p.ID] = p.Name
	}
	name := func(id core.ParticipantID) string {
		if n, ok := names[id]; ok && n != "" {
			return n
		}
		return fmt.Sprintf("#%d", id)
	}

	currency := r.Resolution.Currency
	if currency == "" {
		currency = r.List.Currency
	}

	rows := [][]any{
		{"Expenses list", r.List.Name},
		{"Currency", currency},
		{"Generated at", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{},
		{"Participant", "Balance"},
	}
	for _, id := range r.Resolution.Status.IDs() {
		rows = append(rows, []any{name(id), r.Resolution.Status[id].String()})
	}

	rows = append(rows, []any{}, []any{"Payer", "Payee", "Amount"})
	if len(r.Resolution.Settle) == 0 {
		rows = append(rows, []any{"All settled"})
	}
	for _, s := range r.Resolution.Settle {
		rows = append(rows, []any{name(s.Payer), name(s.Payee), s.Amount.String()})
	}
	return rows
}
