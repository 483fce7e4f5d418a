package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tms-console/internal/resource"
)

func newSchemasCmd(registry *resource.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas [module]",
		Short: "List entity modules, or describe the fields of one",
		Long: `Without arguments, lists every entity module and what it supports.
With a module name (singular or plural) shows its fields, validation rules and defaults.`,
		Example: `  tmsctl schemas
  tmsctl schemas tenants -o json`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: registry.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listSchemas(cmd, registry)
			}
			s, ok := registry.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown module %q (known: %s)", args[0], strings.Join(registry.Names(), ", "))
			}
			return describeSchema(cmd, s)
		},
	}
}

func listSchemas(cmd *cobra.Command, registry *resource.Registry) error {
	out := cmd.OutOrStdout()
	if getOutputFormat(cmd) == "json" {
		items := make([]map[string]any, 0, len(registry.All()))
		for _, s := range registry.All() {
			items = append(items, map[string]any{
				"name":          s.Name,
				"plural":        s.Plural,
				"label":         s.Label,
				"base_path":     s.BasePath,
				"deactivatable": s.Deactivatable,
				"importable":    s.Importable,
				"uploads":       fieldNames(s.UploadFields()),
			})
		}
		return PrintJSON(out, items)
	}

	rows := make([][]string, 0, len(registry.All()))
	for _, s := range registry.All() {
		rows = append(rows, []string{
			s.Plural, s.Label, s.BasePath,
			yesNo(s.Deactivatable), yesNo(s.Importable),
			strings.Join(fieldNames(s.UploadFields()), ","),
		})
	}
	PrintTable(out, []string{"module", "label", "path", "deactivate", "import", "uploads"}, rows)
	return nil
}

func describeSchema(cmd *cobra.Command, s *resource.Schema) error {
	out := cmd.OutOrStdout()
	if getOutputFormat(cmd) == "json" {
		fields := make([]map[string]any, 0, len(s.Fields))
		for _, f := range s.Fields {
			fields = append(fields, map[string]any{
				"name":      f.Name,
				"label":     f.Label,
				"kind":      f.Kind,
				"required":  f.Required,
				"read_only": f.ReadOnly,
				"pattern":   f.Pattern,
				"default":   f.Default,
				"options":   f.Options,
			})
		}
		return PrintJSON(out, map[string]any{
			"name":    s.Name,
			"plural":  s.Plural,
			"columns": s.Columns,
			"filters": s.Filters,
			"fields":  fields,
		})
	}

	_, _ = fmt.Fprintf(out, "%s (%s)\n\n", s.PluralLabel, s.BasePath)
	rows := make([][]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		rule := f.Pattern
		if len(f.Options) > 0 {
			rule = strings.Join(f.Options, "|")
		}
		def := ""
		if f.Default != nil {
			def = fmt.Sprint(f.Default)
		}
		rows = append(rows, []string{f.Name, f.Label, string(f.Kind), yesNo(f.Required), strconv.FormatBool(!f.Writable()), rule, def})
	}
	PrintTable(out, []string{"field", "label", "kind", "required", "read-only", "rule", "default"}, rows)
	return nil
}

func fieldNames(fields []resource.Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
