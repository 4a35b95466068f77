package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tinoosan/treasury/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErr(w, http.StatusBadRequest, msg, "bad_request")
}

func notFound(w http.ResponseWriter) {
	writeErr(w, http.StatusNotFound, "not_found", "not_found")
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindNotFound, errs.KindFileNotFound:
		return http.StatusNotFound
	case errs.KindDuplicateMovementNumber, errs.KindAlreadyVoid, errs.KindAlreadyClosed,
		errs.KindConflict, errs.KindImportInProgress, errs.KindClosedPeriod:
		return http.StatusConflict
	case errs.KindInvalid, errs.KindCatalogMissing:
		return http.StatusUnprocessableEntity
	case errs.KindInvalidMonth:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainErr renders a service error. Unknown errors are logged and hidden.
func (s *Server) writeDomainErr(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
		writeErr(w, status, "internal error", "internal")
		return
	}
	writeErr(w, status, err.Error(), string(kind))
}

// writeValidationErr renders validator failures as one 422 message.
func writeValidationErr(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "validation_error")
		return
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fe.Field()+": failed "+fe.Tag())
	}
	writeErr(w, http.StatusUnprocessableEntity, strings.Join(msgs, "; "), "validation_error")
}
