package httpadapter

import (
	"errors"
	"net/http"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
	"github.com/staygenie/hotel-discovery/internal/infrastructure/resilience"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// writeDomainError maps pipeline failures onto status codes the client
// ladder branches on: 422 means "no tier can help", 404 means "empty
// results, not a failure".
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrResolutionFailed):
		writeError(w, http.StatusUnprocessableEntity, domain.ErrorCodeResolution, "we couldn't understand that search")
	case errors.Is(err, domain.ErrNoCandidates):
		writeError(w, http.StatusNotFound, domain.ErrorCodeNoResults, "no hotels matched your search")
	case resilience.IsCircuitOpen(err):
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", "search is temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, domain.ErrorCodeInternal, "hotel search failed")
	}
}
