package ui

import (
	"strconv"
	"strings"
	"time"

	"tms-console/internal/domain"
	"tms-console/internal/resource"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"
)

type navItem struct {
	Label string
	Href  string
	Key   string
	Icon  string
}

// moduleIcons maps entity names to lucide icons. Unknown modules get a folder.
var moduleIcons = map[string]string{
	"tenant":           "building-2",
	"user":             "user",
	"role":             "shield",
	"privilege":        "key-round",
	"channel_partner":  "handshake",
	"loader_rate":      "indian-rupee",
	"station_coverage": "map-pin",
}

func navItemsFor(registry *resource.Registry) []navItem {
	items := []navItem{{Label: "Overview", Href: "/ui", Key: "home", Icon: "house"}}
	if registry == nil {
		return items
	}
	for _, s := range registry.All() {
		icon, ok := moduleIcons[s.Name]
		if !ok {
			icon = "folder"
		}
		items = append(items, navItem{Label: s.PluralLabel, Href: "/ui/" + s.Plural, Key: s.Plural, Icon: icon})
	}
	return items
}

// layout carries what every signed-in page shows around its body.
type layout struct {
	Title     string
	Active    string
	Nav       []navItem
	Principal domain.ContextPrincipal
	CSRF      Node
}

func documentShell(title string, body Node) Node {
	return HTML(
		Lang("en"),
		Attr("data-color-mode", "auto"),
		Attr("data-light-theme", "light"),
		Attr("data-dark-theme", "dark"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(title+" | TMS Admin")),
			Link(Rel("icon"), Href("data:,")),
			Link(Rel("stylesheet"), Href(uiStylesheetHref())),
			Script(Src("https://unpkg.com/lucide@latest/dist/umd/lucide.min.js")),
			Script(
				Type("module"),
				Src("https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.7/bundles/datastar.js"),
			),
		),
		body,
	)
}

func appPage(l layout, body ...Node) Node {
	nav := make([]Node, 0, len(l.Nav))
	for _, item := range l.Nav {
		className := "app-nav-link"
		if item.Key == l.Active {
			className += " active"
		}
		nav = append(nav, A(
			Href(item.Href),
			Class(className),
			I(Class("nav-icon"), Attr("data-lucide", item.Icon), Attr("aria-hidden", "true")),
			Span(Text(item.Label)),
		))
	}

	principalLabel := l.Principal.Name
	if principalLabel == "" {
		principalLabel = "unknown"
	}

	return documentShell(l.Title,
		Body(
			Main(Class("app-shell"),
				Aside(
					Class("app-sidebar"),
					Div(
						Class("brand"),
						Strong(Text("TMS Admin")),
						P(Class(mutedClass()), Text("Master data console")),
					),
					Nav(Class("app-nav"), Group(nav)),
				),
				Section(
					Class("app-main"),
					Div(
						Class("topbar"),
						H1(Class("page-title"), Text(l.Title)),
						Div(
							P(Class(mutedClass()), Text("Signed in as "+principalLabel)),
							Form(
								Method("post"),
								Action("/ui/logout"),
								l.CSRF,
								Button(Type("submit"), Class("btn btn-sm"), Text("Sign out")),
							),
						),
					),
					Div(Class("content"), Group(body)),
				),
			),
			Script(Raw("if (window.lucide) { window.lucide.createIcons(); }")),
		),
	)
}

func errorPage(title, message string) Node {
	return documentShell(title,
		Body(
			Main(
				Class("layout"),
				H1(Class("page-title"), Text(title)),
				P(Text(message)),
				P(A(Href("/ui"), Text("Back to overview"))),
			),
		),
	)
}

func formatTimePtr(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return "-"
	}
	return ts.Format("2006-01-02 15:04")
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func containsExpr(value string) string {
	lower := strings.ToLower(value)
	return "$q === '' || " + strconv.Quote(lower) + ".includes($q.toLowerCase())"
}

func cardClass(extra ...string) string {
	parts := []string{"Box", "p-3", "mb-3", "card"}
	parts = append(parts, extra...)
	return strings.Join(parts, " ")
}

func mutedClass() string {
	return "color-fg-muted text-small"
}

func primaryButtonClass() string {
	return "btn btn-primary"
}

func secondaryButtonClass() string {
	return "btn"
}

func dangerButtonClass() string {
	return "btn btn-danger"
}

// quickFilterCard filters the rows already on the page in the browser. Server
// side filtering goes through the filter row and the advanced panel.
func quickFilterCard(placeholder string, extraControls ...Node) Node {
	controls := []Node{
		Div(
			Class("d-flex flex-items-center gap-2 flex-1"),
			Label(Class("sr-only"), Text("Quick filter")),
			Input(Type("search"), Class("form-control"), Placeholder(placeholder), data.Bind("q"), AutoComplete("off")),
		),
	}
	controls = append(controls, extraControls...)
	return Div(
		Class(cardClass("toolbar")),
		data.Signals(map[string]any{"q": ""}),
		Div(Class("d-flex flex-wrap flex-items-center gap-2"), Group(controls)),
	)
}

func emptyStateCard(message, ctaLabel, ctaHref string) Node {
	cta := Node(nil)
	if ctaLabel != "" && ctaHref != "" {
		cta = A(Href(ctaHref), Class(primaryButtonClass()), Text(ctaLabel))
	}
	return Div(
		Class(cardClass("blankslate")),
		P(Class("color-fg-muted mb-2"), Text(message)),
		cta,
	)
}

func statusLabel(text, tone string) Node {
	className := "Label"
	if tone != "" {
		className += " Label--" + tone
	}
	return Span(Class(className), Text(text))
}

func flash(kind, message string) Node {
	if message == "" {
		return nil
	}
	return Div(Class("flash flash-"+kind), Attr("role", "status"), Text(message))
}

// toolbarLink renders an action link, or a disabled button when href is empty.
func toolbarLink(href, label, icon string, primary bool) Node {
	className := secondaryButtonClass()
	if primary {
		className = primaryButtonClass()
	}
	content := Group([]Node{
		I(Class("btn-icon-glyph"), Attr("data-lucide", icon), Attr("aria-hidden", "true")),
		Span(Text(label)),
	})
	if href == "" {
		return Button(Type("button"), Class(className), Disabled(), content)
	}
	return A(Href(href), Class(className), content)
}
