package ui

import (
	"tms-console/internal/listview"
	"tms-console/internal/resource"
	"tms-console/internal/wizard"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

type wizardPageData struct {
	Wizard *wizard.Wizard
	Routes listview.Routes
	CSRF   Node
}

func wizardPage(l layout, d wizardPageData) Node {
	var body Node
	switch d.Wizard.Step {
	case wizard.StepPreview:
		body = wizardPreview(d)
	case wizard.StepConfirmation:
		body = wizardConfirmation(d)
	default:
		body = wizardDataForm(d)
	}
	return appPage(l,
		stepper(d.Wizard),
		body,
	)
}

func stepper(wiz *wizard.Wizard) Node {
	items := make([]Node, 0, len(wizard.Labels))
	for i, label := range wizard.Labels {
		step := wizard.Step(i)
		className := ""
		switch {
		case step == wiz.Step:
			className = "current"
		case step < wiz.Step:
			className = "done"
		}
		text := label
		if step == wizard.StepPreview && wiz.SkipPreview && wiz.Step == wizard.StepConfirmation {
			text += " (skipped)"
		}
		items = append(items, Li(If(className != "", Class(className)), Text(text)))
	}
	return Ol(Class("stepper"), Group(items))
}

// wizardControls are the hidden fields every wizard form posts back.
func wizardControls(d wizardPageData, step wizard.Step) Node {
	edit := "false"
	if d.Wizard.Edit {
		edit = "true"
	}
	return Group([]Node{
		d.CSRF,
		Input(Type("hidden"), Name(wizardStepField), Value(step.String())),
		Input(Type("hidden"), Name(wizardEditField), Value(edit)),
		Input(Type("hidden"), Name(wizardIDField), Value(d.Wizard.Record.IDString())),
	})
}

func actionButton(action, label, className string) Node {
	return Button(Type("submit"), Name(wizardActionField), Value(action), Class(className), Text(label))
}

func wizardDataForm(d wizardPageData) Node {
	wiz := d.Wizard
	s := wiz.Schema

	inputs := make([]Node, 0, len(s.Fields))
	for _, f := range s.Fields {
		if !f.Writable() {
			continue
		}
		var errs []string
		if wiz.Touched[f.Name] {
			errs = wiz.Errors[f.Name]
		}
		inputs = append(inputs, fieldInput(f, wiz.Record, errs))
	}

	var uploadNote Node
	if len(s.UploadFields()) > 0 {
		uploadNote = P(Class(mutedClass()), Text("Images and documents are uploaded from the detail page once the "+s.Label+" is saved."))
	}
	var invalid Node
	if len(wiz.Errors) > 0 {
		invalid = flash("error", "Fix the highlighted fields to continue.")
	}

	return Div(
		Class(cardClass()),
		invalid,
		Form(
			Method("post"),
			Action(d.Routes.Wizard()),
			Attr("novalidate", ""),
			wizardControls(d, wizard.StepData),
			Div(Class("form-grid"), Group(inputs)),
			uploadNote,
			Div(Class("d-flex gap-2"),
				actionButton("preview", "Preview", primaryButtonClass()),
				actionButton("submit_direct", "Save without preview", secondaryButtonClass()),
				A(Href(d.Routes.List()), Class(secondaryButtonClass()), Text("Cancel")),
			),
		),
	)
}

func wizardPreview(d wizardPageData) Node {
	wiz := d.Wizard
	mode := "New " + wiz.Schema.Label
	if wiz.Edit {
		mode = "Changes to " + wiz.Schema.Label + " " + wiz.Record.IDString()
	}
	return Div(
		Class(cardClass()),
		H3(Text(mode)),
		P(Class(mutedClass()), Text("Review the values below, then submit.")),
		detailList(wiz.Schema, wiz.Record, 0, false),
		Form(
			Method("post"),
			Action(d.Routes.Wizard()),
			wizardControls(d, wizard.StepPreview),
			hiddenValues(wiz.FormValues()),
			Div(Class("d-flex gap-2"),
				actionButton("back", "Back", secondaryButtonClass()),
				actionButton("submit", "Submit", primaryButtonClass()),
			),
		),
	)
}

func wizardConfirmation(d wizardPageData) Node {
	wiz := d.Wizard
	res := wiz.Result
	if res == nil {
		return emptyStateCard("Nothing was submitted.", "Back to list", d.Routes.List())
	}

	if !res.Success {
		items := make([]Node, 0, len(res.FieldErrors))
		for _, name := range sortedKeys(res.FieldErrors) {
			label := name
			if f, ok := wiz.Schema.Field(name); ok {
				label = f.Label
			}
			for _, msg := range res.FieldErrors[name] {
				items = append(items, Li(Strong(Text(label+": ")), Text(msg)))
			}
		}
		retry := d.Routes.Create()
		if wiz.Edit {
			retry = d.Routes.Edit(wiz.Record.IDString())
		}
		return Div(
			Class(cardClass()),
			flash("error", res.Message),
			If(len(items) > 0, Ul(Class("form-error"), Group(items))),
			Div(Class("d-flex gap-2"),
				A(Href(retry), Class(primaryButtonClass()), Text("Try again")),
				A(Href(d.Routes.List()), Class(secondaryButtonClass()), Text("Back to list")),
			),
		)
	}

	id := wiz.Record.IDString()
	return Div(
		Class(cardClass()),
		flash("success", res.Message),
		detailList(wiz.Schema, wiz.Record, 0, true),
		Div(Class("d-flex gap-2"),
			If(id != "", A(Href(d.Routes.View(id)), Class(primaryButtonClass()), Text("View "+wiz.Schema.Label))),
			A(Href(d.Routes.List()), Class(secondaryButtonClass()), Text("Back to list")),
			A(Href(d.Routes.Create()), Class(secondaryButtonClass()), Text("Create another")),
		),
	)
}

// detailList renders every field of rec. Audit rows are shown for stored
// records only.
func detailList(s *resource.Schema, rec resource.Record, stamp int64, audit bool) Node {
	rows := make([]Node, 0, 2*(len(s.Fields)+5))
	if !rec.IsNew() {
		rows = append(rows, Dt(Text("ID")), Dd(Text(rec.IDString())))
	}
	for _, f := range s.Fields {
		if f.Uploadable() && rec.IsNew() {
			continue
		}
		rows = append(rows, Dt(Text(f.Label)), Dd(fieldValue(f, rec, stamp)))
	}
	if audit && !rec.IsNew() {
		rows = append(rows,
			Dt(Text("Created By")), Dd(Text(orDash(rec.Audit.CreatedBy))),
			Dt(Text("Created At")), Dd(Text(formatTimePtr(rec.Audit.CreatedAt))),
			Dt(Text("Updated By")), Dd(Text(orDash(rec.Audit.UpdatedBy))),
			Dt(Text("Updated At")), Dd(Text(formatTimePtr(rec.Audit.UpdatedAt))),
		)
	}
	return Dl(Class("detail-grid mb-3"), Group(rows))
}
