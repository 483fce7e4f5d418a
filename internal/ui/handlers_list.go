package ui

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tms-console/internal/apiclient"
	"tms-console/internal/domain"
	"tms-console/internal/listview"
	"tms-console/internal/resource"
)

// Console URL parameters of a list page. Column filters and advanced filters
// travel with their own prefixes so both can be shown as entered.
const (
	columnFilterPrefix   = "f_"
	advancedFilterPrefix = "a_"
	selectedParam        = "selected"
	noticeParam          = "notice"
)

// listState is the list query of one page view plus the selected row.
type listState struct {
	Query    domain.ListQuery
	Selected string
}

func (h *Handler) listStateFromRequest(r *http.Request, s *resource.Schema) listState {
	v := r.URL.Query()
	q := domain.NewListQuery(h.DefaultPageSize)

	if n, err := strconv.Atoi(v.Get(domain.ParamPage)); err == nil && n > 0 {
		q.Pagination.Page = n - 1
	}
	if n, err := strconv.Atoi(v.Get(domain.ParamPerPage)); err == nil && n > 0 && n <= 500 {
		q.Pagination.PageSize = n
	}
	if field := strings.TrimSpace(v.Get(domain.ParamSortBy)); sortable(s, field) {
		q.Sort = domain.Sort{Field: field, Desc: !strings.EqualFold(v.Get(domain.ParamSortOrder), "asc")}
	}

	for _, name := range s.Columns {
		if val := strings.TrimSpace(v.Get(columnFilterPrefix + name)); val != "" {
			if q.ColumnFilters == nil {
				q.ColumnFilters = map[string]string{}
			}
			q.ColumnFilters[name] = val
		}
	}
	for _, f := range s.FilterFields() {
		if val := strings.TrimSpace(v.Get(advancedFilterPrefix + f.Name)); val != "" {
			if q.AdvancedFilters == nil {
				q.AdvancedFilters = map[string]string{}
			}
			q.AdvancedFilters[f.Name] = val
		}
	}
	return listState{Query: q, Selected: strings.TrimSpace(v.Get(selectedParam))}
}

func sortable(s *resource.Schema, field string) bool {
	for _, c := range s.Columns {
		if c == field {
			return true
		}
	}
	return false
}

// values encodes the state as console URL parameters. The page is 1-based,
// the same as on the wire.
func (st listState) values() url.Values {
	v := url.Values{}
	q := st.Query
	v.Set(domain.ParamPage, strconv.Itoa(q.Pagination.Page+1))
	v.Set(domain.ParamPerPage, strconv.Itoa(q.Pagination.PageSize))
	v.Set(domain.ParamSortBy, q.Sort.Field)
	v.Set(domain.ParamSortOrder, q.Sort.Order())
	for k, val := range q.ColumnFilters {
		v.Set(columnFilterPrefix+k, val)
	}
	for k, val := range q.AdvancedFilters {
		v.Set(advancedFilterPrefix+k, val)
	}
	if st.Selected != "" {
		v.Set(selectedParam, st.Selected)
	}
	return v
}

func (st listState) url(routes listview.Routes) string {
	return st.carry(routes.List())
}

// carry appends the state to href. Confirm and import pages read it back
// from their own URL to return to the same list view.
func (st listState) carry(href string) string {
	return href + "?" + st.values().Encode()
}

func (st listState) withoutSelection() listState {
	return st.with(func(s *listState) { s.Selected = "" })
}

// with returns a copy of the state changed by mutate. Filter maps are copied.
func (st listState) with(mutate func(*listState)) listState {
	out := st
	out.Query.ColumnFilters = cloneFilters(st.Query.ColumnFilters)
	out.Query.AdvancedFilters = cloneFilters(st.Query.AdvancedFilters)
	mutate(&out)
	return out
}

func cloneFilters(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFromRequest(w, r)
	if !ok {
		return
	}
	st := h.listStateFromRequest(r, s)

	acc := h.accessor(r, s)
	defer acc.Close()
	ctrl := listview.New(acc, st.Query)
	if st.Selected != "" {
		ctrl.Select(st.Selected)
	}
	if err := ctrl.Load(r.Context()); err != nil && describeError(err).Status == http.StatusUnauthorized {
		RedirectToLogin(w, r)
		return
	}
	st.Selected, _ = ctrl.Selected()

	renderHTML(w, http.StatusOK, listPage(h.layout(r, s.PluralLabel, s.Plural), listPageData{
		Schema:     s,
		Routes:     listview.RoutesFor(s),
		State:      st,
		Controller: ctrl,
		Notice:     noticeText(s, r.URL.Query().Get(noticeParam), r.URL.Query().Get("id")),
	}))
}

func noticeText(s *resource.Schema, notice, id string) string {
	switch notice {
	case "deactivated":
		return s.Label + " " + id + " deactivated."
	case "deleted":
		return s.Label + " " + id + " deleted."
	case "imported":
		return s.PluralLabel + " reloaded after import."
	}
	return ""
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFromRequest(w, r)
	if !ok {
		return
	}
	acc := h.accessor(r, s)
	defer acc.Close()
	ctrl := listview.New(acc, h.listStateFromRequest(r, s).Query)

	dl, err := ctrl.Export(r.Context())
	if err != nil {
		h.renderAPIError(w, r, err)
		return
	}
	writeDownload(w, dl)
}

func (h *Handler) Template(w http.ResponseWriter, r *http.Request) {
	s, ok := h.schemaFromRequest(w, r)
	if !ok {
		return
	}
	acc := h.accessor(r, s)
	defer acc.Close()

	dl, err := acc.DownloadTemplate(r.Context())
	if err != nil {
		h.renderAPIError(w, r, err)
		return
	}
	writeDownload(w, dl)
}

func writeDownload(w http.ResponseWriter, dl apiclient.Download) {
	contentType := dl.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(dl.Filename, `"`, "")+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Body)
}
