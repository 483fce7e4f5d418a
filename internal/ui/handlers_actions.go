package ui

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tms-console/internal/listview"
	"tms-console/internal/resource"
)

func (h *Handler) ConfirmDeactivate(w http.ResponseWriter, r *http.Request) {
	h.confirmAction(w, r, listview.ActionDeactivate)
}

func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	h.confirmAction(w, r, listview.ActionDelete)
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.performAction(w, r, listview.ActionDeactivate)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.performAction(w, r, listview.ActionDelete)
}

func (h *Handler) actionSchema(w http.ResponseWriter, r *http.Request, action listview.Action) (*resource.Schema, bool) {
	s, ok := h.schemaFromRequest(w, r)
	if !ok {
		return nil, false
	}
	if action == listview.ActionDeactivate && !s.Deactivatable {
		renderHTML(w, http.StatusNotFound, errorPage("Not Found", s.PluralLabel+" cannot be deactivated."))
		return nil, false
	}
	return s, true
}

func (h *Handler) confirmAction(w http.ResponseWriter, r *http.Request, action listview.Action) {
	s, ok := h.actionSchema(w, r, action)
	if !ok {
		return
	}
	conf := listview.NewConfirmation(s, action, chi.URLParam(r, "id"))
	renderHTML(w, http.StatusOK, confirmPage(h.layout(r, conf.Title, s.Plural), confirmPageData{
		Schema:       s,
		Routes:       listview.RoutesFor(s),
		State:        h.listStateFromRequest(r, s),
		Confirmation: conf,
		CSRF:         csrfField(r),
	}))
}

// performAction runs a confirmed deactivate or delete. A failure keeps the
// dialog open with the error; success returns to the list view the dialog was
// opened from, without the selection, and that page reloads.
func (h *Handler) performAction(w http.ResponseWriter, r *http.Request, action listview.Action) {
	s, ok := h.actionSchema(w, r, action)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	acc := h.accessor(r, s)
	defer acc.Close()

	var err error
	notice := "deleted"
	if action == listview.ActionDeactivate {
		err = acc.Deactivate(r.Context(), id)
		notice = "deactivated"
	} else {
		err = acc.Delete(r.Context(), id)
	}

	routes := listview.RoutesFor(s)
	st := h.listStateFromRequest(r, s)
	if err != nil {
		v := describeError(err)
		if v.Status == http.StatusUnauthorized {
			RedirectToLogin(w, r)
			return
		}
		conf := listview.NewConfirmation(s, action, id)
		renderHTML(w, v.Status, confirmPage(h.layout(r, conf.Title, s.Plural), confirmPageData{
			Schema:       s,
			Routes:       routes,
			State:        st,
			Confirmation: conf,
			Err:          err,
			CSRF:         csrfField(r),
		}))
		return
	}

	h.Logger.Info("record "+notice, "resource", s.Name, "id", id)
	back := st.withoutSelection().values()
	back.Set(noticeParam, notice)
	back.Set("id", id)
	http.Redirect(w, r, routes.List()+"?"+back.Encode(), http.StatusSeeOther)
}

func (h *Handler) ImportForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.importSchema(w, r)
	if !ok {
		return
	}
	renderHTML(w, http.StatusOK, importPage(h.layout(r, "Import "+s.PluralLabel, s.Plural), importPageData{
		Schema: s,
		Routes: listview.RoutesFor(s),
		State:  h.listStateFromRequest(r, s),
		CSRF:   csrfField(r),
	}))
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	s, ok := h.importSchema(w, r)
	if !ok {
		return
	}
	if r.MultipartForm == nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			renderHTML(w, http.StatusBadRequest, errorPage("Invalid Upload", "The upload could not be read."))
			return
		}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		renderHTML(w, http.StatusBadRequest, errorPage("Invalid Upload", "Choose a spreadsheet to import."))
		return
	}
	defer file.Close()

	acc := h.accessor(r, s)
	defer acc.Close()
	st := h.listStateFromRequest(r, s)
	ctrl := listview.New(acc, st.Query)
	ctrl.OpenImport()
	_, importErr := ctrl.Import(r.Context(), header.Filename, file)
	summary, _ := ctrl.ImportOutcome()

	status := http.StatusOK
	if importErr != nil {
		v := describeError(importErr)
		if v.Status == http.StatusUnauthorized {
			RedirectToLogin(w, r)
			return
		}
		status = v.Status
	}
	h.Logger.Info("import finished", "resource", s.Name, "filename", header.Filename, "failed", importErr != nil)

	renderHTML(w, status, importPage(h.layout(r, "Import "+s.PluralLabel, s.Plural), importPageData{
		Schema:   s,
		Routes:   listview.RoutesFor(s),
		State:    st,
		Filename: header.Filename,
		Summary:  summary,
		Err:      importErr,
		CSRF:     csrfField(r),
	}))
}

func (h *Handler) importSchema(w http.ResponseWriter, r *http.Request) (*resource.Schema, bool) {
	s, ok := h.schemaFromRequest(w, r)
	if !ok {
		return nil, false
	}
	if !s.Importable {
		renderHTML(w, http.StatusNotFound, errorPage("Not Found", s.PluralLabel+" cannot be imported."))
		return nil, false
	}
	return s, true
}
