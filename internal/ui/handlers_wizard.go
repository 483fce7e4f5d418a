package ui

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tms-console/internal/listview"
	"tms-console/internal/resource"
	"tms-console/internal/wizard"

	gomponents "maragu.dev/gomponents"
)

// Wizard form control fields. They never collide with entity fields, which
// are snake_case names declared in the schema registry.
const (
	wizardStepField   = "_step"
	wizardEditField   = "_edit"
	wizardIDField     = "_id"
	wizardActionField = "_action"
)

func (h *Handler) New(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFromRequest(w, r)
	if !ok {
		return
	}
	renderHTML(w, http.StatusOK, h.wizardView(r, wizard.New(s, nil)))
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFromRequest(w, r)
	if !ok {
		return
	}
	acc := h.accessor(r, s)
	defer acc.Close()

	rec, err := acc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderAPIError(w, r, err)
		return
	}
	renderHTML(w, http.StatusOK, h.wizardView(r, wizard.Edit(s, nil, rec)))
}

// WizardStep advances the stateless wizard. The record travels in the form;
// in edit mode the stored record is re-read so id and audit fields come from
// the backend rather than the browser.
func (h *Handler) WizardStep(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFromRequest(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		renderHTML(w, http.StatusBadRequest, errorPage("Invalid Request", "The form could not be read."))
		return
	}
	acc := h.accessor(r, s)
	defer acc.Close()

	edit := r.PostForm.Get(wizardEditField) == "true"
	base := resource.New(s)
	if edit {
		rec, err := acc.Get(r.Context(), r.PostForm.Get(wizardIDField))
		if err != nil {
			h.renderAPIError(w, r, err)
			return
		}
		base = rec
	}

	values := r.PostForm
	wiz := wizard.Restore(s, acc, base, edit, wizard.ParseStep(values.Get(wizardStepField)), values)
	status := http.StatusOK
	var saveErr error

	switch strings.TrimSpace(values.Get(wizardActionField)) {
	case "preview":
		if !wiz.Preview(values) {
			status = http.StatusUnprocessableEntity
		}
	case "back":
		_ = wiz.Back()
	case "submit":
		saveErr = wiz.Submit(r.Context())
		if errors.Is(saveErr, wizard.ErrInvalid) {
			saveErr = nil
			status = http.StatusUnprocessableEntity
		}
	case "submit_direct":
		var saved bool
		saved, saveErr = wiz.SubmitDirect(r.Context(), values)
		if !saved && saveErr == nil {
			status = http.StatusUnprocessableEntity
		}
	default:
		renderHTML(w, http.StatusBadRequest, errorPage("Invalid Request", "Unknown wizard action."))
		return
	}

	if errors.Is(saveErr, wizard.ErrWrongStep) {
		renderHTML(w, http.StatusBadRequest, errorPage("Invalid Request", "That action is not available at this step."))
		return
	}
	if saveErr != nil {
		if describeError(saveErr).Status == http.StatusUnauthorized {
			RedirectToLogin(w, r)
			return
		}
		h.Logger.Info("save failed", "resource", s.Name, "kind", string(wiz.Result.Kind), "error", saveErr)
	}
	renderHTML(w, status, h.wizardView(r, wiz))
}

func (h *Handler) wizardView(r *http.Request, wiz *wizard.Wizard) gomponents.Node {
	title := "Create " + wiz.Schema.Label
	if wiz.Edit {
		title = "Edit " + wiz.Schema.Label
	}
	return wizardPage(h.layout(r, title, wiz.Schema.Plural), wizardPageData{
		Wizard: wiz,
		Routes: listview.RoutesFor(wiz.Schema),
		CSRF:   csrfField(r),
	})
}
