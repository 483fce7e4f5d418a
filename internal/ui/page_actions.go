package ui

import (
	"fmt"
	"strings"

	"tms-console/internal/apiclient"
	"tms-console/internal/listview"
	"tms-console/internal/resource"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

type confirmPageData struct {
	Schema       *resource.Schema
	Routes       listview.Routes
	State        listState
	Confirmation listview.Confirmation
	Err          error
	CSRF         Node
}

func confirmPage(l layout, d confirmPageData) Node {
	conf := d.Confirmation
	back := d.State.with(func(st *listState) { st.Selected = conf.ID }).url(d.Routes)
	label := "Deactivate"
	buttonClass := primaryButtonClass()
	if conf.Action == listview.ActionDelete {
		label = "Delete"
		buttonClass = dangerButtonClass()
	}

	if d.Err != nil {
		return appPage(l,
			Div(
				Class(cardClass("modal")),
				errorBanner(d.Err),
				A(Href(back), Class(secondaryButtonClass()), Text("Dismiss")),
			),
		)
	}

	return appPage(l,
		Div(
			Class(cardClass("modal")),
			Attr("role", "dialog"),
			P(Text(conf.Message)),
			Form(
				Method("post"),
				Action(d.State.carry(d.Routes.Action(conf.Action, conf.ID))),
				d.CSRF,
				Div(Class("d-flex gap-2"),
					Button(Type("submit"), Class(buttonClass), Text(label)),
					A(Href(back), Class(secondaryButtonClass()), Text("Cancel")),
				),
			),
		),
	)
}

type importPageData struct {
	Schema   *resource.Schema
	Routes   listview.Routes
	State    listState
	Filename string
	Summary  *apiclient.ImportSummary
	Err      error
	CSRF     Node
}

func importPage(l layout, d importPageData) Node {
	var outcome Node
	switch {
	case d.Err != nil:
		outcome = errorBanner(d.Err)
	case d.Summary != nil:
		msg := d.Summary.Message
		if msg == "" {
			msg = d.Filename + " imported."
		}
		outcome = Div(flash("success", msg), importCounts(d.Summary.Data))
	}

	back := d.State.withoutSelection().values()
	if d.Summary != nil {
		back.Set(noticeParam, "imported")
	}
	closeHref := d.Routes.List() + "?" + back.Encode()

	return appPage(l,
		Div(
			Class(cardClass("modal")),
			Attr("role", "dialog"),
			outcome,
			P(Text("Upload a filled "+d.Schema.Label+" spreadsheet. Rows are validated by the server; failures are listed by row.")),
			P(A(Href(d.Routes.Template()), Text("Download the blank template"))),
			Form(
				Method("post"),
				Action(d.State.withoutSelection().carry(d.Routes.Import())),
				Attr("enctype", "multipart/form-data"),
				d.CSRF,
				Div(Class("form-group"),
					Label(Text("Spreadsheet")),
					Input(Type("file"), Name("file"), Accept(".xlsx,.xls,.csv"), Required()),
				),
				Div(Class("d-flex gap-2"),
					Button(Type("submit"), Class(primaryButtonClass()), Text("Import")),
					A(Href(closeHref), Class(secondaryButtonClass()), Text("Close")),
				),
			),
		),
	)
}

// importCounts lists scalar summary values such as inserted or skipped rows.
func importCounts(data map[string]any) Node {
	if len(data) == 0 {
		return nil
	}
	keys := sortedKeys(data)
	rows := make([]Node, 0, 2*len(keys))
	for _, k := range keys {
		switch v := data[k].(type) {
		case string, float64, bool, int, int64:
			rows = append(rows, Dt(Text(humanizeKey(k))), Dd(Text(fmt.Sprint(v))))
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return Dl(Class("detail-grid"), Group(rows))
}

func humanizeKey(k string) string {
	k = strings.ReplaceAll(k, "_", " ")
	if k == "" {
		return k
	}
	return strings.ToUpper(k[:1]) + k[1:]
}
