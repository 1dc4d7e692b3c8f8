package http

import (
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// owner returns the authenticated owner id. The auth middleware guarantees
// one on every API route.
func owner(r *http.Request) string {
	id, _ := auth.OwnerFromContext(r.Context())
	return id
}

// fail writes err and logs failures the caller cannot fix.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := classify(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldErrorKind, core.Kind(err),
			log.FieldPath, r.URL.Path)
	}
	ErrorResponse(err).Write(w)
}

// invalidate drops cached summaries of the caller after a write.
func (s *Server) invalidate(ownerID string) {
	if s.svc.Summaries != nil {
		s.svc.Summaries.Invalidate(ownerID)
	}
}
