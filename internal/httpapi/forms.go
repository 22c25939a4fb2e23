package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/render"
)

type formSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Fields int    `json:"fields"`
}

type formResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Fields      model.Collection  `json:"fields"`
	Errors      map[string]string `json:"errors"`
}

type validateResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

type errorsResponse struct {
	formResponse
	FormErrors []string `json:"formErrors,omitempty"`
}

func (e *formEntry) body() formResponse {
	f := e.ctrl.Form()
	return formResponse{
		ID:          e.def.ID,
		Title:       e.def.DisplayTitle(),
		Description: e.def.Description,
		Fields:      f.Fields(),
		Errors:      f.Errors(),
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*formEntry, bool) {
	id := chi.URLParam(r, "id")
	entry, ok := s.form(id)
	if !ok {
		writeError(w, http.StatusNotFound, "form not found: "+id)
	}
	return entry, ok
}

// listForms handles GET /forms.
func (s *Server) listForms(w http.ResponseWriter, _ *http.Request) {
	ids := s.formIDs()
	out := make([]formSummary, 0, len(ids))
	for _, id := range ids {
		entry, ok := s.form(id)
		if !ok {
			continue
		}
		out = append(out, formSummary{
			ID:     id,
			Title:  entry.def.DisplayTitle(),
			Fields: len(entry.ctrl.Form().Fields()),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// getForm handles GET /forms/{id}.
func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry.body())
}

// dispatchAction handles POST /forms/{id}/actions with one wire-format
// action, for example {"type":"UPDATE_FIELD","fieldId":"name","value":"Al"}.
func (s *Server) dispatchAction(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	action, err := form.DecodeAction(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := entry.ctrl.Dispatch(action); err != nil {
		s.logger.Debug("http action refused",
			zap.String("form", entry.def.ID),
			zap.String("action", string(action.Type())),
			zap.Error(err),
		)
		writeError(w, dispatchStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry.body())
}

// validateForm handles POST /forms/{id}/validate. It runs the pending
// validation pass right away.
func (s *Server) validateForm(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	result := entry.ctrl.ValidateNow()
	errs := map[string]string(result)
	if errs == nil {
		errs = map[string]string{}
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: result.Valid(), Errors: errs})
}

// applyErrors handles POST /forms/{id}/errors: a server-side error payload
// keyed by field id or path ({"email":["already registered"],"_form":[...]})
// is folded into the form as SET_ERROR actions.
func (s *Server) applyErrors(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var payload map[string][]string
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	mapping := render.MapErrors(entry.ctrl.Form().Fields(), payload)
	for _, action := range mapping.Actions() {
		if err := entry.ctrl.Dispatch(action); err != nil {
			writeError(w, dispatchStatus(err), err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, errorsResponse{formResponse: entry.body(), FormErrors: mapping.Form})
}

// renderHTML handles GET /forms/{id}/html.
func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	out, err := s.html.Render(r.Context(), entry.ctrl.Form(), render.RenderOptions{
		Title:       entry.def.DisplayTitle(),
		Description: entry.def.Description,
		Action:      "/forms/" + entry.def.ID,
	})
	if err != nil {
		s.logger.Error("http render failed", zap.String("form", entry.def.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", s.html.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func dispatchStatus(err error) int {
	switch {
	case errors.Is(err, form.ErrFieldNotFound):
		return http.StatusNotFound
	case errors.Is(err, form.ErrValueRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, form.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, form.ErrInvalidAction), errors.Is(err, form.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, controller.ErrClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
