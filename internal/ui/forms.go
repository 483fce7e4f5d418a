package ui

import (
	"net/url"
	"strconv"
	"strings"

	"tms-console/internal/resource"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// fieldInput renders the Data step control of one writable field.
func fieldInput(f resource.Field, rec resource.Record, errs []string) Node {
	id := "field-" + f.Name
	groupClass := "form-group"
	if len(errs) > 0 {
		groupClass += " has-error"
	}
	labelClass := ""
	if f.Required {
		labelClass = "required"
	}

	var control Node
	switch f.Kind {
	case resource.KindText:
		control = Textarea(ID(id), Name(f.Name), Class("form-control"), Rows("3"), Text(rec.String(f.Name)))
	case resource.KindInt:
		control = Input(ID(id), Name(f.Name), Type("number"), Step("1"), Class("form-control"), Value(rec.String(f.Name)))
	case resource.KindDecimal:
		control = Input(ID(id), Name(f.Name), Type("number"), Step("any"), Class("form-control"), Value(rec.String(f.Name)))
	case resource.KindDate:
		control = Input(ID(id), Name(f.Name), Type("date"), Class("form-control"), Value(rec.String(f.Name)))
	case resource.KindBool:
		control = Label(
			Input(ID(id), Name(f.Name), Type("checkbox"), Value("true"), If(rec.Bool(f.Name), Checked())),
			Text(" "+f.Label),
		)
	case resource.KindEnum:
		control = enumSelect(id, f.Name, f.Options, rec.String(f.Name), "Select…")
	case resource.KindRefs:
		control = Input(ID(id), Name(f.Name), Type("text"), Class("form-control"),
			Value(encodeRefs(rec.Refs(f.Name))), Placeholder("id:name, id:name"))
	default:
		control = Input(ID(id), Name(f.Name), Type("text"), Class("form-control"), Value(rec.String(f.Name)))
	}

	nodes := []Node{Class(groupClass)}
	if f.Kind != resource.KindBool {
		nodes = append(nodes, Label(For(id), If(labelClass != "", Class(labelClass)), Text(f.Label)))
	}
	nodes = append(nodes, control)
	if f.Help != "" {
		nodes = append(nodes, P(Class("form-help"), Text(f.Help)))
	}
	for _, msg := range errs {
		nodes = append(nodes, P(Class("form-error"), Text(msg)))
	}
	return Div(nodes...)
}

func enumSelect(id, name string, options []string, selected, placeholder string) Node {
	opts := []Node{Option(Value(""), Text(placeholder))}
	for _, o := range options {
		opts = append(opts, Option(Value(o), If(o == selected, Selected()), Text(o)))
	}
	return Select(If(id != "", ID(id)), Name(name), Class("form-control"), Group(opts))
}

func encodeRefs(refs []resource.Ref) string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.Name == "" {
			parts = append(parts, ref.ID)
			continue
		}
		parts = append(parts, ref.ID+":"+ref.Name)
	}
	return strings.Join(parts, ", ")
}

// hiddenValues round-trips form values through a page, e.g. the record on
// the Preview step.
func hiddenValues(values url.Values) Node {
	nodes := make([]Node, 0, len(values))
	for _, name := range sortedKeys(values) {
		for _, v := range values[name] {
			nodes = append(nodes, Input(Type("hidden"), Name(name), Value(v)))
		}
	}
	return Group(nodes)
}

// fieldValue renders a field for read-only display. stamp busts the browser
// cache of image URLs.
func fieldValue(f resource.Field, rec resource.Record, stamp int64) Node {
	switch f.Kind {
	case resource.KindBool:
		if rec.Bool(f.Name) {
			return statusLabel("Yes", "success")
		}
		return statusLabel("No", "secondary")
	case resource.KindImage:
		u := rec.String(f.Name)
		if u == "" {
			return Span(Class(mutedClass()), Text("No image"))
		}
		src := cacheBust(u, stamp)
		return A(Href(src), Target("_blank"), Img(Class("detail-image"), Src(src), Alt(f.Label)))
	case resource.KindDocument:
		u := rec.String(f.Name)
		if u == "" {
			return Span(Class(mutedClass()), Text("No document"))
		}
		return A(Href(u), Target("_blank"), Text("Open document"))
	}
	return Text(orDash(rec.String(f.Name)))
}

// cacheBust appends a t=<stamp> parameter. Re-uploads keep the same URL on
// the backend, so without it the browser shows the previous file.
func cacheBust(u string, stamp int64) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "t=" + strconv.FormatInt(stamp, 10)
}
