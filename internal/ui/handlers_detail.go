package ui

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tms-console/internal/listview"
	"tms-console/internal/resource"

	gomponents "maragu.dev/gomponents"
)

func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
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
	renderHTML(w, http.StatusOK, h.detailView(r, s, rec, nil, ""))
}

// Upload attaches a file to one image or document field and shows the
// updated record. Image URLs are stamped with the upload time.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFromRequest(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	acc := h.accessor(r, s)
	defer acc.Close()

	if r.MultipartForm == nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			renderHTML(w, http.StatusBadRequest, errorPage("Invalid Upload", "The upload could not be read."))
			return
		}
	}

	field, ok := uploadField(s, r.FormValue("field"))
	if !ok {
		renderHTML(w, http.StatusBadRequest, errorPage("Invalid Upload", "Unknown upload field."))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		renderHTML(w, http.StatusBadRequest, errorPage("Invalid Upload", "Choose a file to upload."))
		return
	}
	defer file.Close()

	rec, err := acc.UploadFile(r.Context(), id, field.Name, header.Filename, file)
	if err != nil {
		if describeError(err).Status == http.StatusUnauthorized {
			RedirectToLogin(w, r)
			return
		}
		current, getErr := acc.Get(r.Context(), id)
		if getErr != nil {
			h.renderAPIError(w, r, err)
			return
		}
		renderHTML(w, describeError(err).Status, h.detailView(r, s, current, err, ""))
		return
	}
	h.Logger.Info("file uploaded", "resource", s.Name, "id", id, "field", field.Name, "filename", header.Filename)
	renderHTML(w, http.StatusOK, h.detailView(r, s, rec, nil, field.Label+" uploaded."))
}

func uploadField(s *resource.Schema, name string) (resource.Field, bool) {
	name = strings.TrimSpace(name)
	for _, f := range s.UploadFields() {
		if f.Name == name {
			return f, true
		}
	}
	return resource.Field{}, false
}

func (h *Handler) detailView(r *http.Request, s *resource.Schema, rec resource.Record, err error, notice string) gomponents.Node {
	title := s.Label + " " + rec.IDString()
	if s.TitleField != "" {
		if v := rec.String(s.TitleField); v != "" {
			title = v
		}
	}
	return detailPage(h.layout(r, title, s.Plural), detailPageData{
		Schema: s,
		Routes: listview.RoutesFor(s),
		Record: rec,
		Stamp:  h.Now().UnixMilli(),
		Err:    err,
		Notice: notice,
		CSRF:   csrfField(r),
	})
}
