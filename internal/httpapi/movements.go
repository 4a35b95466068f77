package httpapi

import (
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/treasury/internal/audit"
	"github.com/tinoosan/treasury/internal/ledger"
)

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// POST /v1/movements
func (s *Server) postMovement(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	var req postMovementRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	m, err := s.toMovementDomain(req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.movements.Create(r.Context(), m, actor)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, s.toMovementResponse(created))
}

// GET /v1/movements?from=&to=&account_id=&direction=&status=&limit=
func (s *Server) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f ledger.MovementFilter
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			badRequest(w, "invalid from")
			return
		}
		f.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			badRequest(w, "invalid to")
			return
		}
		f.To = &t
	}
	if raw := q.Get("account_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid account_id")
			return
		}
		f.AccountID = &id
	}
	if raw := q.Get("direction"); raw != "" {
		f.Direction = ledger.Direction(raw)
		if !f.Direction.Valid() {
			badRequest(w, "invalid direction")
			return
		}
	}
	if raw := q.Get("status"); raw != "" {
		f.Status = ledger.Status(raw)
		if !f.Status.Valid() {
			badRequest(w, "invalid status")
			return
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, "invalid limit")
			return
		}
		f.Limit = n
	}
	list, err := s.movements.List(r.Context(), f)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	out := listMovementsResponse{Items: make([]movementResponse, 0, len(list))}
	for _, m := range list {
		out.Items = append(out.Items, s.toMovementResponse(m))
	}
	toJSON(w, http.StatusOK, out)
}

// GET /v1/movements/{id}
func (s *Server) getMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := s.movements.Get(r.Context(), id)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toMovementResponse(m))
}

// PATCH /v1/movements/{id}
func (s *Server) patchMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	var req patchMovementRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	ch, err := s.toChanges(req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	m, err := s.movements.Update(r.Context(), id, ch, actor)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toMovementResponse(m))
}

// POST /v1/movements/{id}/void
func (s *Server) voidMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	var req voidMovementRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	m, err := s.movements.Void(r.Context(), id, req.Reason, actor)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toMovementResponse(m))
}

// DELETE /v1/movements/{id}
func (s *Server) deleteMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	if err := s.movements.Delete(r.Context(), id, actor); err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /v1/movements/{id}/audit
func (s *Server) movementAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trail, err := s.reader.AuditTrail(r.Context(), id)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	if trail == nil {
		trail = []audit.Entry{}
	}
	toJSON(w, http.StatusOK, auditResponse{Items: trail})
}
