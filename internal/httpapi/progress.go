package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-formstate/pkg/persistence"
)

type progressResponse struct {
	persistence.Snapshot
	Sections []string `json:"sections"`
}

func (s *Server) progressBody(snapshot persistence.Snapshot) progressResponse {
	return progressResponse{Snapshot: snapshot, Sections: s.progress.Sections()}
}

// getProgress handles GET /progress.
func (s *Server) getProgress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.progressBody(s.progress.Snapshot()))
}

// completeSection handles PUT /progress/sections/{section}. Completing an
// already complete section is not an error.
func (s *Server) completeSection(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.progress.Complete(r.Context(), chi.URLParam(r, "section"))
	s.writeProgress(w, snapshot, err)
}

// uncompleteSection handles DELETE /progress/sections/{section}.
func (s *Server) uncompleteSection(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.progress.Uncomplete(r.Context(), chi.URLParam(r, "section"))
	s.writeProgress(w, snapshot, err)
}

// resetProgress handles DELETE /progress.
func (s *Server) resetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.progressBody(s.progress.Reset(r.Context())))
}

func (s *Server) writeProgress(w http.ResponseWriter, snapshot persistence.Snapshot, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.progressBody(snapshot))
	case errors.Is(err, persistence.ErrUnknownSection):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "progress update failed")
	}
}
