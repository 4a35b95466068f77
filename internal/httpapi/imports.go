package httpapi

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/tinoosan/treasury/internal/joblock"
	"github.com/tinoosan/treasury/internal/service/importer"
	"github.com/tinoosan/treasury/internal/source"
)

// POST /v1/imports?dry_run=true
//
// Accepts either a multipart upload (field "file", optional field "account")
// or a JSON body {"uri": "...", "account": "..."} naming a path or gs:// object.
func (s *Server) postImport(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, "invalid dry_run")
			return
		}
		dryRun = v
	}

	var (
		src     source.Source
		account string
	)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.EqualFold(mt, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			badRequest(w, "invalid multipart body: "+err.Error())
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			badRequest(w, "file is required")
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			badRequest(w, "read upload: "+err.Error())
			return
		}
		src = source.Bytes{Filename: hdr.Filename, Data: data}
		account = strings.TrimSpace(r.FormValue("account"))
	} else {
		var req postImportRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		var err error
		if src, err = source.ResolveWithin(req.URI, s.importDir); err != nil {
			s.writeDomainErr(w, r, err)
			return
		}
		account = strings.TrimSpace(req.Account)
	}
	if account == "" {
		account = s.accountCode
	}

	release, err := s.jobs.Acquire(r.Context(), joblock.Key(account))
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	defer release()

	sum, err := s.importer.Import(r.Context(), src, importer.Options{
		DryRun:      dryRun,
		AccountCode: account,
		Actor:       actor,
	})
	if err != nil {
		s.writeDomainErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, sum)
}
