package ui

import (
	"net/url"

	"tms-console/internal/listview"
	"tms-console/internal/resource"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

type detailPageData struct {
	Schema *resource.Schema
	Routes listview.Routes
	Record resource.Record
	Stamp  int64
	Err    error
	Notice string
	CSRF   Node
}

func detailPage(l layout, d detailPageData) Node {
	id := d.Record.IDString()
	back := d.Routes.List() + "?" + url.Values{selectedParam: {id}}.Encode()

	actions := []Node{
		A(Href(d.Routes.Edit(id)), Class(primaryButtonClass()), Text("Edit")),
	}
	if d.Schema.Deactivatable {
		actions = append(actions, A(Href(d.Routes.Deactivate(id)), Class(secondaryButtonClass()), Text("Deactivate")))
	}
	actions = append(actions,
		A(Href(d.Routes.Delete(id)), Class(dangerButtonClass()), Text("Delete")),
		A(Href(back), Class(secondaryButtonClass()), Text("Back to list")),
	)

	return appPage(l,
		flash("success", d.Notice),
		errorBanner(d.Err),
		Div(Class(cardClass("toolbar")), Div(Class("actions"), Group(actions))),
		Div(Class(cardClass()), detailList(d.Schema, d.Record, d.Stamp, true)),
		uploadForms(d),
	)
}

func uploadForms(d detailPageData) Node {
	fields := d.Schema.UploadFields()
	if len(fields) == 0 {
		return nil
	}
	forms := make([]Node, 0, len(fields))
	for _, f := range fields {
		accept := "image/*"
		if f.Kind == resource.KindDocument {
			accept = "image/*,application/pdf"
		}
		forms = append(forms, Form(
			Method("post"),
			Action(d.Routes.Upload(d.Record.IDString())),
			Attr("enctype", "multipart/form-data"),
			Class("form-group"),
			d.CSRF,
			Input(Type("hidden"), Name("field"), Value(f.Name)),
			Label(Text(f.Label)),
			Div(Class("d-flex gap-2 flex-items-center"),
				Input(Type("file"), Name("file"), Accept(accept), Required()),
				Button(Type("submit"), Class(secondaryButtonClass()), Text("Upload")),
			),
		))
	}
	return Div(Class(cardClass()), H3(Text("Files")), Group(forms))
}
