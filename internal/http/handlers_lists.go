package http

import (
	"net/http"
	"strings"

	"tesoro/internal/core"
	"tesoro/internal/services"
)

func (s *Server) handleListLists(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	p, err := ParsePagination(query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := services.ListQuery{
		Status: core.ListStatus(strings.TrimSpace(query.Get("status"))),
		Search: sanitizeInput(query.Get("search")),
	}

	page, err := s.lists.ListLists(r.Context(), ownerFromContext(r.Context()), q, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var in services.ListInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Description = sanitizeInput(in.Description)

	l, err := s.lists.CreateList(r.Context(), ownerFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.lists.GetList(r.Context(), ownerFromContext(r.Context()), core.ListID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch services.ListPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	patch.Name = sanitizePtr(patch.Name)
	patch.Description = sanitizePtr(patch.Description)

	l, err := s.lists.UpdateList(r.Context(), ownerFromContext(r.Context()), core.ListID(id), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.lists.DeleteList(r.Context(), ownerFromContext(r.Context()), core.ListID(id)); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.lists.Resolve(r.Context(), ownerFromContext(r.Context()), core.ListID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type exportResponse struct {
	RequestID string `json:"requestId"`
	ListID    int64  `json:"expensesListId"`
	Status    string `json:"status"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := s.lists.RequestExport(r.Context(), ownerFromContext(r.Context()), core.ListID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, exportResponse{
		RequestID: msg.ID,
		ListID:    msg.ListID,
		Status:    "queued",
	})
}

type participantRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := s.lists.ListParticipants(r.Context(), ownerFromContext(r.Context()), core.ListID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ps == nil {
		ps = []core.Participant{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) handleCreateParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req participantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.lists.CreateParticipant(r.Context(), ownerFromContext(r.Context()), core.ListID(id), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
