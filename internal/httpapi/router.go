package httpapi

// routes declares the public HTTP API endpoints.
func (s *Server) routes() {
	// Movements
	s.rt.Post("/v1/movements", s.postMovement)
	s.rt.Get("/v1/movements", s.listMovements)
	s.rt.Get("/v1/movements/{id}", s.getMovement)
	s.rt.Patch("/v1/movements/{id}", s.patchMovement)
	s.rt.Post("/v1/movements/{id}/void", s.voidMovement)
	s.rt.Delete("/v1/movements/{id}", s.deleteMovement)
	s.rt.Get("/v1/movements/{id}/audit", s.movementAudit)
	// Closures
	s.rt.Post("/v1/closures", s.postClosure)
	s.rt.Get("/v1/closures", s.listClosures)
	s.rt.Get("/v1/closures/latest", s.latestClosure)
	s.rt.Get("/v1/closures/{year}/{month}", s.getClosure)
	// Imports
	s.rt.Post("/v1/imports", s.postImport)
	// Catalogs
	s.rt.Get("/v1/catalogs", s.listCatalogs)
	s.rt.Get("/v1/catalogs/defaults", s.defaultCatalogs)
	// Health (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}
