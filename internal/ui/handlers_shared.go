package ui

import (
	"maps"
	"net/http"
	"slices"

	"tms-console/internal/domain"
	"tms-console/internal/listview"
	"tms-console/internal/resource"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"
)

func (h *Handler) layout(r *http.Request, title, active string) layout {
	return layout{
		Title:     title,
		Active:    active,
		Nav:       navItemsFor(h.Registry),
		Principal: principalFromContext(r.Context()),
		CSRF:      csrfField(r),
	}
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusOK, overviewPage(h.layout(r, "Overview", "home"), h.Registry.All()))
}

func overviewPage(l layout, schemas []*resource.Schema) Node {
	cards := make([]Node, 0, len(schemas))
	for _, s := range schemas {
		routes := listview.RoutesFor(s)
		cards = append(cards, Div(
			Class(cardClass()),
			data.Show(containsExpr(s.PluralLabel+" "+s.Name)),
			H3(Text(s.PluralLabel)),
			P(Class(mutedClass()), Text("Create, edit, import and export "+s.PluralLabel+".")),
			A(Href(routes.List()), Text("Open "+s.PluralLabel+" ->")),
		))
	}
	return appPage(l,
		quickFilterCard("Filter modules"),
		Div(Class("form-grid"), Group(cards)),
	)
}

// errorView is how an API failure is shown to the operator.
type errorView struct {
	Status  int
	Title   string
	Message string
	Details []string
}

func describeError(err error) errorView {
	v := errorView{
		Status:  http.StatusInternalServerError,
		Title:   "Unexpected Error",
		Message: "An unexpected error occurred while loading this page.",
	}

	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		return v
	}
	v.Message = apiErr.Message
	v.Details = apiErr.Details()

	switch apiErr.HTTPStatus {
	case 0:
		v.Status, v.Title = http.StatusBadGateway, "Backend Unavailable"
	case http.StatusUnauthorized:
		v.Status, v.Title = http.StatusUnauthorized, "Session Expired"
	case http.StatusForbidden:
		v.Status, v.Title = http.StatusForbidden, "Access Denied"
	case http.StatusNotFound:
		v.Status, v.Title = http.StatusNotFound, "Not Found"
	case http.StatusConflict:
		v.Status, v.Title = http.StatusConflict, "Conflict"
	default:
		switch {
		case apiErr.Kind == domain.KindImport:
			v.Status, v.Title = http.StatusUnprocessableEntity, "Import Failed"
		case apiErr.HTTPStatus < http.StatusInternalServerError:
			v.Status, v.Title = http.StatusUnprocessableEntity, "Invalid Request"
		default:
			v.Status, v.Title = http.StatusBadGateway, "Backend Error"
		}
	}
	return v
}

func (h *Handler) renderAPIError(w http.ResponseWriter, r *http.Request, err error) {
	v := describeError(err)
	if v.Status == http.StatusUnauthorized {
		RedirectToLogin(w, r)
		return
	}
	if v.Status >= http.StatusInternalServerError {
		h.Logger.Error("backend call failed", "path", r.URL.Path, "error", err)
	}
	renderHTML(w, v.Status, errorPage(v.Title, v.Message))
}

// errorBanner shows an API failure inline, next to the content it concerns.
func errorBanner(err error) Node {
	if err == nil {
		return nil
	}
	v := describeError(err)
	if v.Message == "" {
		v.Message = err.Error()
	}
	items := make([]Node, 0, len(v.Details))
	for _, d := range v.Details {
		items = append(items, Li(Text(d)))
	}
	return Div(
		Class("flash flash-error"),
		Attr("role", "alert"),
		Strong(Text(v.Title+": ")),
		Text(v.Message),
		If(len(items) > 0, Ul(Group(items))),
	)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
