package httpapi

import (
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/treasury/internal/ledger"
)

// POST /v1/closures
func (s *Server) postClosure(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	var req postClosureRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	c, err := s.closures.CloseMonth(r.Context(), req.Year, req.Month, actor, req.Notes)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toClosureResponse(c))
}

// GET /v1/closures
func (s *Server) listClosures(w http.ResponseWriter, r *http.Request) {
	list, err := s.closures.ListClosures(r.Context())
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	out := listClosuresResponse{Items: make([]closureResponse, 0, len(list))}
	for _, c := range list {
		out.Items = append(out.Items, toClosureResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}

// GET /v1/closures/latest
func (s *Server) latestClosure(w http.ResponseWriter, r *http.Request) {
	c, ok, err := s.closures.LatestClosure(r.Context())
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	if !ok {
		notFound(w)
		return
	}
	toJSON(w, http.StatusOK, toClosureResponse(c))
}

// GET /v1/closures/{year}/{month}
func (s *Server) getClosure(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		badRequest(w, "invalid year")
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		badRequest(w, "invalid month")
		return
	}
	p := ledger.Period{Year: year, Month: month}
	if !p.Valid() {
		writeErr(w, http.StatusBadRequest, "month must be between 1 and 12", "invalid_month")
		return
	}
	c, err := s.reader.ClosureByPeriod(r.Context(), p)
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toClosureResponse(c))
}
