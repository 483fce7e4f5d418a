// Package resource holds the model contract shared by every CRUD module: the
// field schema of an entity and the Record built from it.
package resource

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the value type of a schema field.
type Kind string

const (
	KindString   Kind = "string"
	KindText     Kind = "text"
	KindInt      Kind = "int"
	KindDecimal  Kind = "decimal"
	KindBool     Kind = "bool"
	KindDate     Kind = "date"
	KindEnum     Kind = "enum"
	KindImage    Kind = "image"
	KindDocument Kind = "document"
	KindRefs     Kind = "refs"
)

// Audit field names. They are written by the server only.
const (
	FieldID        = "id"
	FieldCreatedBy = "created_by"
	FieldUpdatedBy = "updated_by"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Field describes one entity attribute.
type Field struct {
	Name           string   `yaml:"name"`
	Label          string   `yaml:"label"`
	Kind           Kind     `yaml:"kind"`
	Required       bool     `yaml:"required"`
	Pattern        string   `yaml:"pattern"`
	PatternMessage string   `yaml:"pattern_message"`
	Default        any      `yaml:"default"`
	ReadOnly       bool     `yaml:"read_only"`
	Options        []string `yaml:"options"`
	Help           string   `yaml:"help"`

	re *regexp.Regexp
}

// Uploadable reports whether the field is filled by a file upload.
func (f Field) Uploadable() bool {
	return f.Kind == KindImage || f.Kind == KindDocument
}

// Writable reports whether forms may write the field.
func (f Field) Writable() bool {
	return !f.ReadOnly && !f.Uploadable()
}

// Matches applies the field pattern. Fields without a pattern always match.
func (f Field) Matches(v string) bool {
	if f.re == nil {
		return true
	}
	return f.re.MatchString(v)
}

// Schema describes one entity module.
type Schema struct {
	Name             string   `yaml:"name"`
	Label            string   `yaml:"label"`
	Plural           string   `yaml:"plural"`
	PluralLabel      string   `yaml:"plural_label"`
	BasePath         string   `yaml:"base_path"`
	TemplateFilename string   `yaml:"template_filename"`
	ExportFilename   string   `yaml:"export_filename"`
	TitleField       string   `yaml:"title_field"`
	Deactivatable    bool     `yaml:"deactivatable"`
	Importable       bool     `yaml:"importable"`
	Columns          []string `yaml:"columns"`
	Filters          []string `yaml:"filters"`
	Fields           []Field  `yaml:"fields"`

	index map[string]int
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// RequiredFields returns the names of required fields in declaration order.
func (s *Schema) RequiredFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required && f.Writable() {
			out = append(out, f.Name)
		}
	}
	return out
}

// UploadFields returns image and document fields.
func (s *Schema) UploadFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Uploadable() {
			out = append(out, f)
		}
	}
	return out
}

// FilterFields returns the schema fields offered in the advanced filter panel.
func (s *Schema) FilterFields() []Field {
	out := make([]Field, 0, len(s.Filters))
	for _, name := range s.Filters {
		if f, ok := s.Field(name); ok {
			out = append(out, f)
		}
	}
	return out
}

// ColumnLabel returns a header label for a list column, including audit columns.
func (s *Schema) ColumnLabel(name string) string {
	if f, ok := s.Field(name); ok {
		return f.Label
	}
	switch name {
	case FieldID:
		return "ID"
	case FieldCreatedBy:
		return "Created By"
	case FieldUpdatedBy:
		return "Updated By"
	case FieldCreatedAt:
		return "Created At"
	case FieldUpdatedAt:
		return "Updated At"
	}
	return humanize(name)
}

func (s *Schema) prepare() error {
	if s.Name == "" {
		return fmt.Errorf("schema without name")
	}
	if s.BasePath == "" || !strings.HasPrefix(s.BasePath, "/") {
		return fmt.Errorf("schema %s: base_path must start with /", s.Name)
	}
	if s.Plural == "" {
		s.Plural = strings.TrimPrefix(s.BasePath, "/")
	}
	if s.Label == "" {
		s.Label = humanize(s.Name)
	}
	if s.PluralLabel == "" {
		s.PluralLabel = s.Label + "s"
	}
	if s.TemplateFilename == "" {
		s.TemplateFilename = s.Name + "_template.xlsx"
	}
	if s.ExportFilename == "" {
		s.ExportFilename = s.Plural + "_export.xlsx"
	}
	s.index = make(map[string]int, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("schema %s: field %d without name", s.Name, i)
		}
		if isAuditField(f.Name) {
			return fmt.Errorf("schema %s: %s is server-managed", s.Name, f.Name)
		}
		if _, dup := s.index[f.Name]; dup {
			return fmt.Errorf("schema %s: duplicate field %s", s.Name, f.Name)
		}
		if f.Kind == "" {
			f.Kind = KindString
		}
		if f.Label == "" {
			f.Label = humanize(f.Name)
		}
		if f.Kind == KindEnum && len(f.Options) == 0 {
			return fmt.Errorf("schema %s: enum field %s has no options", s.Name, f.Name)
		}
		if f.Pattern != "" {
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return fmt.Errorf("schema %s: field %s pattern: %w", s.Name, f.Name, err)
			}
			f.re = re
		}
		s.index[f.Name] = i
	}
	if s.TitleField == "" && len(s.Fields) > 0 {
		s.TitleField = s.Fields[0].Name
	}
	return nil
}

func isAuditField(name string) bool {
	switch name {
	case FieldID, FieldCreatedBy, FieldUpdatedBy, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}

func humanize(name string) string {
	parts := strings.Split(strings.ReplaceAll(name, "-", "_"), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
