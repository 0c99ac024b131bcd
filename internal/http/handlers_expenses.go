package http

import (
	"net/http"

	"tesoro/internal/core"
	"tesoro/internal/repository"
	"tesoro/internal/services"
)

type expenseRequest struct {
	Name           string               `json:"name"`
	Date           core.Date            `json:"date"`
	Amount         amountInput          `json:"amount"`
	PaidBy         core.ParticipantID   `json:"paidBy"`
	ParticipantIDs []core.ParticipantID `json:"participantIds"`
}

type expensePatchRequest struct {
	Name           *string               `json:"name"`
	Date           *core.Date            `json:"date"`
	Amount         *amountInput          `json:"amount"`
	PaidBy         *core.ParticipantID   `json:"paidBy"`
	ParticipantIDs *[]core.ParticipantID `json:"participantIds"`
}

func (p expensePatchRequest) toPatch() services.ExpensePatch {
	patch := services.ExpensePatch{
		Name:          sanitizePtr(p.Name),
		Date:          p.Date,
		PaidBy:        p.PaidBy,
		Beneficiaries: p.ParticipantIDs,
	}
	if p.Amount != nil {
		patch.Amount = &p.Amount.Money
	}
	return patch
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	query := r.URL.Query()
	p, err := ParsePagination(query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	paidBy, err := queryInt(query, "paidBy")
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := s.lists.ListExpenses(r.Context(), ownerFromContext(r.Context()), core.ListID(id),
		repository.ExpenseFilter{PaidBy: core.ParticipantID(paidBy)}, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.lists.CreateExpense(r.Context(), ownerFromContext(r.Context()), core.ListID(id), services.ExpenseInput{
		Name:          sanitizeInput(req.Name),
		Date:          req.Date,
		Amount:        req.Amount.Money,
		PaidBy:        req.PaidBy,
		Beneficiaries: req.ParticipantIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.lists.GetExpense(r.Context(), ownerFromContext(r.Context()), core.ExpenseID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expensePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.lists.UpdateExpense(r.Context(), ownerFromContext(r.Context()), core.ExpenseID(id), req.toPatch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.lists.DeleteExpense(r.Context(), ownerFromContext(r.Context()), core.ExpenseID(id)); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
