package ui

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"tms-console/internal/domain"
	"tms-console/internal/listview"
	"tms-console/internal/resource"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"
)

type listPageData struct {
	Schema     *resource.Schema
	Routes     listview.Routes
	State      listState
	Controller *listview.Controller
	Notice     string
}

func listPage(l layout, d listPageData) Node {
	rows := d.Controller.Rows()
	var body Node
	if len(rows) == 0 && d.Controller.Err() == nil {
		body = Group([]Node{
			filterTable(d, nil),
			emptyStateCard("No "+strings.ToLower(d.Schema.PluralLabel)+" match the current filters.", "Create "+d.Schema.Label, d.Routes.Create()),
		})
	} else {
		body = filterTable(d, rows)
	}

	var loadErr Node
	if err := d.Controller.Err(); err != nil {
		loadErr = Div(
			errorBanner(err),
			A(Href(d.State.url(d.Routes)), Class(secondaryButtonClass()), Text("Dismiss")),
		)
	}

	return appPage(l,
		flash("success", d.Notice),
		loadErr,
		listToolbar(d),
		advancedFilterPanel(d),
		quickFilterCard("Filter rows on this page"),
		Div(Class(cardClass()), body),
		paginationCard(d),
	)
}

func listToolbar(d listPageData) Node {
	ctrl := d.Controller
	id, _ := ctrl.Selected()
	link := func(enabled bool, href string) string {
		if !enabled {
			return ""
		}
		return href
	}
	exportHref := d.Routes.Export() + "?" + exportConsoleParams(d.State).Encode()

	actions := []Node{
		toolbarLink(d.Routes.Create(), "Create", "plus", true),
		toolbarLink(link(ctrl.CanView(), d.Routes.View(id)), "View", "eye", false),
		toolbarLink(link(ctrl.CanEdit(), d.Routes.Edit(id)), "Edit", "pencil", false),
	}
	if d.Schema.Deactivatable {
		actions = append(actions, toolbarLink(link(ctrl.CanDeactivate(), d.State.carry(d.Routes.Deactivate(id))), "Deactivate", "circle-slash", false))
	}
	actions = append(actions, toolbarLink(link(ctrl.CanDelete(), d.State.carry(d.Routes.Delete(id))), "Delete", "trash-2", false))
	if ctrl.CanImport() {
		actions = append(actions,
			toolbarLink(d.State.withoutSelection().carry(d.Routes.Import()), "Import", "upload", false),
			toolbarLink(d.Routes.Template(), "Template", "file-spreadsheet", false),
		)
	}
	actions = append(actions, toolbarLink(exportHref, "Export", "download", false))

	return Div(
		Class(cardClass("toolbar")),
		Div(
			Class("d-flex flex-justify-between flex-items-center flex-wrap gap-2"),
			Div(Class("actions"), Group(actions)),
			P(Class(mutedClass()+" mb-0"), Text(fmt.Sprintf("%d %s", ctrl.Total(), strings.ToLower(d.Schema.PluralLabel)))),
		),
	)
}

// exportConsoleParams keeps sort and filters of the list for the export link.
func exportConsoleParams(st listState) url.Values {
	v := st.values()
	v.Del(selectedParam)
	v.Del(domain.ParamPage)
	v.Del(domain.ParamPerPage)
	return v
}

func filterTable(d listPageData, rows []resource.Record) Node {
	s := d.Schema
	q := d.State.Query

	headers := make([]Node, 0, len(s.Columns)+1)
	headers = append(headers, Th(Span(Class("sr-only"), Text("Select"))))
	for _, col := range s.Columns {
		headers = append(headers, Th(sortLink(d, col)))
	}

	filterCells := make([]Node, 0, len(s.Columns)+1)
	filterCells = append(filterCells, Td(
		Button(Type("submit"), Attr("form", "column-filters"), Class("btn btn-sm"), Text("Apply")),
	))
	for _, col := range s.Columns {
		filterCells = append(filterCells, Td(columnFilterInput(s, col, q.ColumnFilters[col])))
	}

	keep := d.State.values()
	for _, col := range s.Columns {
		keep.Del(columnFilterPrefix + col)
	}
	keep.Del(selectedParam)
	keep.Set(domain.ParamPage, "1")

	body := make([]Node, 0, len(rows))
	for _, rec := range rows {
		body = append(body, tableRow(d, rec))
	}

	return Group([]Node{
		Form(ID("column-filters"), Method("get"), Action(d.Routes.List()), hiddenValues(keep)),
		Div(Class("table-wrap"),
			Table(
				Class("data-table"),
				THead(
					Tr(Group(headers)),
					Tr(Class("filter-row"), Group(filterCells)),
				),
				TBody(Group(body)),
			),
		),
	})
}

func columnFilterInput(s *resource.Schema, col, value string) Node {
	name := columnFilterPrefix + col
	f, ok := s.Field(col)
	if !ok {
		if col == resource.FieldID {
			return Input(Type("search"), Name(name), Value(value), Attr("form", "column-filters"), Class("form-control"))
		}
		return nil
	}
	switch f.Kind {
	case resource.KindBool:
		return filterSelect(name, []string{"true", "false"}, value, "Any", "column-filters")
	case resource.KindEnum:
		return filterSelect(name, f.Options, value, "Any", "column-filters")
	case resource.KindImage, resource.KindDocument, resource.KindRefs:
		return nil
	}
	return Input(Type("search"), Name(name), Value(value), Attr("form", "column-filters"), Class("form-control"))
}

func filterSelect(name string, options []string, selected, placeholder, form string) Node {
	opts := []Node{Option(Value(""), Text(placeholder))}
	for _, o := range options {
		opts = append(opts, Option(Value(o), If(o == selected, Selected()), Text(o)))
	}
	return Select(Name(name), If(form != "", Attr("form", form)), Class("form-control"), Group(opts))
}

func sortLink(d listPageData, col string) Node {
	sort := d.State.Query.Sort
	next := domain.Sort{Field: col}
	indicator := ""
	if sort.Field == col {
		next.Desc = !sort.Desc
		indicator = "\u2191"
		if sort.Desc {
			indicator = "\u2193"
		}
	}
	href := d.State.with(func(st *listState) {
		st.Query.Sort = next
		st.Query.Pagination.Page = 0
	}).url(d.Routes)
	return A(Href(href), Text(d.Schema.ColumnLabel(col)), If(indicator != "", Span(Class("sort-indicator"), Text(indicator))))
}

func tableRow(d listPageData, rec resource.Record) Node {
	id := rec.IDString()
	selected := id != "" && id == d.State.Selected
	mark := "\u25cb"
	if selected {
		mark = "\u25c9"
	}
	selectHref := d.State.with(func(st *listState) {
		st.Selected = id
		if selected {
			st.Selected = ""
		}
	}).url(d.Routes)

	cells := make([]Node, 0, len(d.Schema.Columns)+1)
	cells = append(cells, Td(A(Href(selectHref), Class("row-select"), Attr("aria-label", "Select "+d.Schema.Label+" "+id), Text(mark))))
	var text []string
	for _, col := range d.Schema.Columns {
		v := cellText(rec, col)
		text = append(text, v)
		if f, ok := d.Schema.Field(col); ok && f.Kind == resource.KindBool {
			cells = append(cells, Td(fieldValue(f, rec, 0)))
			continue
		}
		if col == d.Schema.TitleField && id != "" {
			cells = append(cells, Td(A(Href(d.Routes.View(id)), Text(v))))
			continue
		}
		cells = append(cells, Td(Text(v)))
	}

	className := ""
	if selected {
		className = "selected"
	}
	return Tr(If(className != "", Class(className)), data.Show(containsExpr(strings.Join(text, " "))), Group(cells))
}

func cellText(rec resource.Record, col string) string {
	return orDash(rec.Cell(col))
}

func advancedFilterPanel(d listPageData) Node {
	fields := d.Schema.FilterFields()
	if len(fields) == 0 {
		return nil
	}
	q := d.State.Query

	keep := d.State.values()
	for _, f := range fields {
		keep.Del(advancedFilterPrefix + f.Name)
	}
	keep.Del(selectedParam)
	keep.Set(domain.ParamPage, "1")

	inputs := make([]Node, 0, len(fields))
	for _, f := range fields {
		name := advancedFilterPrefix + f.Name
		value := q.AdvancedFilters[f.Name]
		var control Node
		switch f.Kind {
		case resource.KindBool:
			control = filterSelect(name, []string{"true", "false"}, value, "Any", "")
		case resource.KindEnum:
			control = filterSelect(name, f.Options, value, "Any", "")
		default:
			control = Input(Type("text"), Name(name), Value(value), Class("form-control"))
		}
		inputs = append(inputs, Div(Class("form-group"), Label(Text(f.Label)), control))
	}

	reset := d.State.with(func(st *listState) {
		st.Query.AdvancedFilters = nil
		st.Query.Pagination.Page = 0
		st.Selected = ""
	}).url(d.Routes)

	return Details(
		Class(cardClass()),
		If(len(q.AdvancedFilters) > 0, Attr("open", "")),
		Summary(Text(fmt.Sprintf("Advanced filters (%d active)", len(q.AdvancedFilters)))),
		Form(
			Method("get"),
			Action(d.Routes.List()),
			hiddenValues(keep),
			Div(Class("form-grid"), Group(inputs)),
			Div(Class("d-flex gap-2"),
				Button(Type("submit"), Class(primaryButtonClass()), Text("Apply")),
				A(Href(reset), Class(secondaryButtonClass()), Text("Reset")),
			),
		),
	)
}

func paginationCard(d listPageData) Node {
	q := d.State.Query
	total := d.Controller.Total()
	pages := q.Pagination.PageCount(total)

	var prev, next Node
	if q.Pagination.Page > 0 {
		prev = A(Href(d.State.with(func(st *listState) { st.Query.Pagination.Page-- }).url(d.Routes)), Class(secondaryButtonClass()), Text("<- Previous"))
	}
	if q.Pagination.HasNext(total) {
		next = A(Href(d.State.with(func(st *listState) { st.Query.Pagination.Page++ }).url(d.Routes)), Class(secondaryButtonClass()), Text("Next ->"))
	}

	keep := d.State.values()
	keep.Del(domain.ParamPerPage)
	keep.Set(domain.ParamPage, "1")
	sizes := make([]Node, 0, len(domain.PageSizes))
	for _, n := range domain.PageSizes {
		v := strconv.Itoa(n)
		sizes = append(sizes, Option(Value(v), If(n == q.Pagination.PageSize, Selected()), Text(v+" / page")))
	}

	return Div(
		Class(cardClass("pagination")),
		P(Class(mutedClass()+" mb-0"), Text(fmt.Sprintf("Page %d of %d, %d rows", q.Pagination.Page+1, pages, total))),
		Form(
			Method("get"),
			Action(d.Routes.List()),
			Class("d-flex gap-2 flex-items-center"),
			hiddenValues(keep),
			Select(Name(domain.ParamPerPage), Class("form-control"), Attr("onchange", "this.form.submit()"), Group(sizes)),
			Button(Type("submit"), Class("btn btn-sm"), Text("Apply")),
		),
		Div(Class("d-flex gap-2"), prev, next),
	)
}
