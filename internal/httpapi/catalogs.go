package httpapi

import (
	"net/http"

	"github.com/tinoosan/treasury/internal/catalog"
	"github.com/tinoosan/treasury/internal/ledger"
)

// GET /v1/catalogs
func (s *Server) listCatalogs(w http.ResponseWriter, r *http.Request) {
	income, err := s.reader.ListIncomeSources(r.Context())
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	expense, err := s.reader.ListExpenseCategories(r.Context())
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	out := catalogsResponse{
		Income:  make([]catalogItem, 0, len(income)),
		Expense: make([]catalogItem, 0, len(expense)),
	}
	for _, c := range income {
		out.Income = append(out.Income, catalogItem{ID: c.ID, Code: c.Code, Name: c.Name, Active: c.Active})
	}
	for _, c := range expense {
		out.Expense = append(out.Expense, catalogItem{ID: c.ID, Code: c.Code, Name: c.Name, Active: c.Active})
	}
	toJSON(w, http.StatusOK, out)
}

// GET /v1/catalogs/defaults?direction=income|expense
// Returns the curated code list a fresh installation is seeded with.
func (s *Server) defaultCatalogs(w http.ResponseWriter, r *http.Request) {
	var dir *ledger.Direction
	if raw := r.URL.Query().Get("direction"); raw != "" {
		d := ledger.Direction(raw)
		if !d.Valid() {
			badRequest(w, "invalid direction")
			return
		}
		dir = &d
	}
	toJSON(w, http.StatusOK, map[string][]catalog.Def{"items": catalog.DefaultsFor(dir)})
}
