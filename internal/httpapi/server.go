// Package httpapi wires the HTTP surface of the treasury service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/tinoosan/treasury/internal/catalog"
	"github.com/tinoosan/treasury/internal/joblock"
	"github.com/tinoosan/treasury/internal/service/closure"
	"github.com/tinoosan/treasury/internal/service/importer"
	"github.com/tinoosan/treasury/internal/service/movement"
)

// maxUploadBytes bounds multipart workbook uploads.
const maxUploadBytes = 32 << 20

// Deps are the collaborators a Server needs.
type Deps struct {
	Movements movement.Service
	Closures  closure.Service
	Importer  importer.Service
	Jobs      joblock.Locker
	Reader    Reader
	// Ready is checked by /readyz; nil means always ready.
	Ready ReadyChecker
	// AccountCode is the default import target.
	AccountCode string
	// ImportDir scopes local-path imports; empty allows only gs:// URIs.
	ImportDir string
	// Currency of amounts exchanged as minor units.
	Currency string
	Auth     AuthConfig
	Logger   *slog.Logger
}

// Server wires handlers and middleware using Chi.
type Server struct {
	movements   movement.Service
	closures    closure.Service
	importer    importer.Service
	jobs        joblock.Locker
	reader      Reader
	ready       ReadyChecker
	accountCode string
	importDir   string
	currency    string
	auth        AuthConfig
	validate    *validator.Validate
	log         *slog.Logger
	rt          *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by request logging and panic recovery.
func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Jobs == nil {
		d.Jobs = joblock.NewLocal()
	}
	if d.AccountCode == "" {
		d.AccountCode = catalog.DefaultAccountCode
	}
	if d.Currency == "" {
		d.Currency = "COP"
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(d.Logger))
	r.Use(recoverer(d.Logger))
	r.Use(metricsMiddleware)
	r.Use(authJWT(d.Auth))

	s := &Server{
		movements:   d.Movements,
		closures:    d.Closures,
		importer:    d.Importer,
		jobs:        d.Jobs,
		reader:      d.Reader,
		ready:       d.Ready,
		accountCode: d.AccountCode,
		importDir:   d.ImportDir,
		currency:    d.Currency,
		auth:        d.Auth,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		log:         d.Logger,
		rt:          r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }
