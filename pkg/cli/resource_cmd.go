package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"tms-console/internal/access"
	"tms-console/internal/apiclient"
	"tms-console/internal/domain"
	"tms-console/internal/listview"
	"tms-console/internal/resource"
	"tms-console/internal/tui"
)

// newResourceCmd builds the command group of one entity module.
func newResourceCmd(s *resource.Schema, client *apiclient.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   s.Plural,
		Short: "Manage " + strings.ToLower(s.PluralLabel),
	}
	if s.Name != s.Plural {
		cmd.Aliases = []string{s.Name}
	}

	cmd.AddCommand(newListCmd(s, client))
	cmd.AddCommand(newGetCmd(s, client))
	cmd.AddCommand(newSaveCmd(s, client, false))
	cmd.AddCommand(newSaveCmd(s, client, true))
	if s.Deactivatable {
		cmd.AddCommand(newActionCmd(s, client, listview.ActionDeactivate))
	}
	cmd.AddCommand(newActionCmd(s, client, listview.ActionDelete))
	cmd.AddCommand(newTemplateCmd(s, client))
	cmd.AddCommand(newExportCmd(s, client))
	if s.Importable {
		cmd.AddCommand(newImportCmd(s, client))
	}
	if len(s.UploadFields()) > 0 {
		cmd.AddCommand(newUploadCmd(s, client))
	}
	cmd.AddCommand(newBrowseCmd(s, client))
	return cmd
}

func newAccessor(client *apiclient.Client, s *resource.Schema) *access.Accessor {
	return access.New(client.Resource(s), client.Logger)
}

// listFlags are shared by list, export and browse.
type listFlags struct {
	page      int
	perPage   int
	sortBy    string
	sortOrder sortOrder
	filters   []string
}

// sortOrder is the --sort-order flag. Anything but asc or desc is rejected
// while flags are parsed.
type sortOrder string

var _ pflag.Value = (*sortOrder)(nil)

func (o *sortOrder) String() string { return string(*o) }
func (o *sortOrder) Type() string   { return "asc|desc" }

func (o *sortOrder) Set(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	if v != "asc" && v != "desc" {
		return fmt.Errorf("must be asc or desc")
	}
	*o = sortOrder(v)
	return nil
}

func (f *listFlags) register(cmd *cobra.Command, paging bool) {
	if paging {
		cmd.Flags().IntVar(&f.page, "page", 1, "Page number, starting at 1")
		cmd.Flags().IntVar(&f.perPage, "per-page", domain.DefaultPageSize, "Rows per page")
	}
	cmd.Flags().StringVar(&f.sortBy, "sort-by", domain.DefaultSortField, "Column to sort by")
	f.sortOrder = "desc"
	cmd.Flags().Var(&f.sortOrder, "sort-order", "Sort direction (asc, desc)")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "Filter as field=value (repeatable)")
}

func (f *listFlags) query(s *resource.Schema) (domain.ListQuery, error) {
	q := domain.NewListQuery(f.perPage)
	if f.page < 1 {
		return q, fmt.Errorf("--page must be 1 or greater")
	}
	if f.perPage < 1 {
		return q, fmt.Errorf("--per-page must be 1 or greater")
	}
	q.Pagination = domain.Pagination{Page: f.page - 1, PageSize: f.perPage}

	if !knownColumn(s, f.sortBy) {
		return q, fmt.Errorf("cannot sort %s by %q", strings.ToLower(s.PluralLabel), f.sortBy)
	}
	q.Sort = domain.Sort{Field: f.sortBy, Desc: f.sortOrder != "asc"}

	filters, err := parsePairs("--filter", f.filters)
	if err != nil {
		return q, err
	}
	for k := range filters {
		if !knownColumn(s, k) {
			return q, fmt.Errorf("--filter: unknown field %q", k)
		}
	}
	q.ColumnFilters = filters
	return q, nil
}

func knownColumn(s *resource.Schema, name string) bool {
	if slices.Contains(s.Columns, name) {
		return true
	}
	_, ok := s.Field(name)
	return ok
}

func newListCmd(s *resource.Schema, client *apiclient.Client) *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + strings.ToLower(s.PluralLabel),
		Example: fmt.Sprintf(`  tmsctl %[1]s list --per-page 25 --sort-by %[2]s --sort-order asc
  tmsctl %[1]s list --filter %[3]s -o json`, s.Plural, firstOr(s.Columns, "id"), exampleFilter(s)),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := lf.query(s)
			if err != nil {
				return err
			}
			acc := newAccessor(client, s)
			defer acc.Close()

			res, err := acc.List(cmd.Context(), q.Params())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case getOutputFormat(cmd) == "json":
				rows := make([]map[string]any, 0, len(res.Data))
				for _, rec := range res.Data {
					rows = append(rows, recordJSON(s, rec))
				}
				return PrintJSON(out, map[string]any{
					"data":     rows,
					"total":    res.Total,
					"page":     q.Pagination.Page + 1,
					"per_page": q.Pagination.PageSize,
				})
			case isQuiet(cmd):
				for _, rec := range res.Data {
					_, _ = fmt.Fprintln(out, rec.IDString())
				}
				return nil
			}

			headers := make([]string, len(s.Columns))
			for i, c := range s.Columns {
				headers[i] = s.ColumnLabel(c)
			}
			rows := make([][]string, 0, len(res.Data))
			for _, rec := range res.Data {
				row := make([]string, len(s.Columns))
				for i, c := range s.Columns {
					row[i] = rec.Cell(c)
				}
				rows = append(rows, row)
			}
			PrintTable(out, headers, rows)
			_, _ = fmt.Fprintf(out, "\nPage %d of %d, %d rows\n",
				q.Pagination.Page+1, q.Pagination.PageCount(res.Total), res.Total)
			return nil
		},
	}
	lf.register(cmd, true)
	return cmd
}

func newGetCmd(s *resource.Schema, client *apiclient.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one " + strings.ToLower(s.Label),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acc := newAccessor(client, s)
			defer acc.Close()
			rec, err := acc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, s, rec, "")
		},
	}
}

// newSaveCmd builds create, or update when edit is set. Values come from
// --file and then --set and are validated before anything is sent.
func newSaveCmd(s *resource.Schema, client *apiclient.Client, edit bool) *cobra.Command {
	var (
		sets   []string
		file   string
		dryRun bool
	)
	use, short, args := "create", "Create a "+strings.ToLower(s.Label), cobra.NoArgs
	if edit {
		use, short, args = "update <id>", "Update a "+strings.ToLower(s.Label), cobra.ExactArgs(1)
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Example: fmt.Sprintf(`  tmsctl %[1]s %[2]s --set %[3]s
  tmsctl %[1]s %[2]s --file record.json --dry-run`, s.Plural, strings.Fields(use)[0]+exampleID(edit), exampleSet(s)),
		Args: args,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !edit && len(sets) == 0 && file == "" {
				return fmt.Errorf("nothing to save: pass --set field=value or --file")
			}
			acc := newAccessor(client, s)
			defer acc.Close()
			ctx := cmd.Context()

			rec := resource.New(s)
			if edit {
				current, err := acc.Get(ctx, args[0])
				if err != nil {
					return err
				}
				rec = current
			}
			if file != "" {
				obj, err := readObjectFile(file)
				if err != nil {
					return err
				}
				overlayObject(s, &rec, obj)
			}
			if err := applySets(s, &rec, sets); err != nil {
				return err
			}
			if errs := resource.Validate(s, rec); len(errs) > 0 {
				return domain.NewFieldError(0, "invalid "+strings.ToLower(s.Label), errs)
			}

			if dryRun {
				return PrintJSON(cmd.OutOrStdout(), rec.Payload(s))
			}

			var (
				saved resource.Record
				err   error
				verb  = "created"
			)
			if edit {
				saved, err = acc.Update(ctx, args[0], rec)
				verb = "updated"
			} else {
				saved, err = acc.Create(ctx, rec)
			}
			if err != nil {
				return err
			}
			return printResult(cmd, s, saved, fmt.Sprintf("%s %s %s.", s.Label, saved.IDString(), verb))
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field value as field=value (repeatable)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with field values")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and print the request body without sending it")
	return cmd
}

func newActionCmd(s *resource.Schema, client *apiclient.Client, action listview.Action) *cobra.Command {
	var yes bool
	short := "Delete a " + strings.ToLower(s.Label)
	if action == listview.ActionDeactivate {
		short = "Mark a " + strings.ToLower(s.Label) + " inactive"
	}
	cmd := &cobra.Command{
		Use:   string(action) + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := listview.NewConfirmation(s, action, args[0])
			if !yes {
				if err := confirm(cmd, conf); err != nil {
					return err
				}
			}
			acc := newAccessor(client, s)
			defer acc.Close()

			var err error
			verb := "deleted"
			if action == listview.ActionDeactivate {
				err = acc.Deactivate(cmd.Context(), args[0])
				verb = "deactivated"
			} else {
				err = acc.Delete(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return printStatus(cmd, map[string]string{"status": verb, "id": args[0]},
				fmt.Sprintf("%s %s %s.", s.Label, args[0], verb))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// errAborted is returned when the user declines a confirmation.
var errAborted = errors.New("aborted")

func confirm(cmd *cobra.Command, conf listview.Confirmation) error {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return fmt.Errorf("refusing to %s without --yes: stdin is not a terminal", conf.Action)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s\n%s\nContinue? [y/N] ", conf.Title, conf.Message)
	answer, err := readLine(in)
	if err != nil {
		return fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return errAborted
}

func newTemplateCmd(s *resource.Schema, client *apiclient.Client) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Download the blank import template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acc := newAccessor(client, s)
			defer acc.Close()
			d, err := acc.DownloadTemplate(cmd.Context())
			if err != nil {
				return err
			}
			return writeDownload(cmd, d, out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output path or directory; - for stdout (default: server file name)")
	return cmd
}

func newExportCmd(s *resource.Schema, client *apiclient.Client) *cobra.Command {
	var (
		lf  listFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export " + strings.ToLower(s.PluralLabel) + " matching the filters as a spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lf.page, lf.perPage = 1, domain.DefaultPageSize
			q, err := lf.query(s)
			if err != nil {
				return err
			}
			acc := newAccessor(client, s)
			defer acc.Close()
			d, err := acc.Export(cmd.Context(), q.ExportParams())
			if err != nil {
				return err
			}
			return writeDownload(cmd, d, out)
		},
	}
	lf.register(cmd, false)
	cmd.Flags().StringVar(&out, "out", "", "Output path or directory; - for stdout (default: server file name)")
	return cmd
}

func newImportCmd(s *resource.Schema, client *apiclient.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Bulk import " + strings.ToLower(s.PluralLabel) + " from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			acc := newAccessor(client, s)
			defer acc.Close()
			summary, err := acc.Import(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(out, map[string]any{"message": summary.Message, "data": summary.Data})
			}
			msg := summary.Message
			if msg == "" {
				msg = filepath.Base(args[0]) + " imported."
			}
			_, _ = fmt.Fprintln(out, msg)
			if len(summary.Data) > 0 {
				PrintDetail(out, summary.Data)
			}
			return nil
		},
	}
}

func newUploadCmd(s *resource.Schema, client *apiclient.Client) *cobra.Command {
	names := make([]string, 0, len(s.UploadFields()))
	for _, f := range s.UploadFields() {
		names = append(names, f.Name)
	}
	return &cobra.Command{
		Use:       "upload <id> <field> <file>",
		Short:     "Attach a file to " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(3),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, fieldName, path := args[0], args[1], args[2]
			if !slices.Contains(names, fieldName) {
				return fmt.Errorf("%s is not an upload field of %s (use one of: %s)",
					fieldName, strings.ToLower(s.PluralLabel), strings.Join(names, ", "))
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			acc := newAccessor(client, s)
			defer acc.Close()
			rec, err := acc.UploadFile(cmd.Context(), id, fieldName, filepath.Base(path), f)
			if err != nil {
				return err
			}
			field, _ := s.Field(fieldName)
			return printResult(cmd, s, rec, fmt.Sprintf("%s uploaded: %s", field.Label, rec.String(fieldName)))
		},
	}
}

func newBrowseCmd(s *resource.Schema, client *apiclient.Client) *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse " + strings.ToLower(s.PluralLabel) + " interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("browse needs an interactive terminal")
			}
			q, err := lf.query(s)
			if err != nil {
				return err
			}
			acc := newAccessor(client, s)
			defer acc.Close()
			return tui.Run(cmd.Context(), listview.New(acc, q))
		},
	}
	lf.register(cmd, true)
	return cmd
}

// writeDownload saves d to out. An empty out uses the server file name in
// the working directory; a directory keeps the server file name.
func writeDownload(cmd *cobra.Command, d apiclient.Download, out string) error {
	if out == "-" {
		_, err := cmd.OutOrStdout().Write(d.Body)
		return err
	}
	path := out
	if path == "" {
		path = d.Filename
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, d.Filename)
	}
	if err := os.WriteFile(path, d.Body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if isQuiet(cmd) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}
	return printStatus(cmd, map[string]any{"path": path, "bytes": len(d.Body), "content_type": d.ContentType},
		fmt.Sprintf("Saved %s (%d bytes)", path, len(d.Body)))
}

func printStatus[T any](cmd *cobra.Command, obj map[string]T, text string) error {
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(cmd.OutOrStdout(), obj)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

// printResult prints one record in the selected format, after an optional
// headline in table mode.
func printResult(cmd *cobra.Command, s *resource.Schema, rec resource.Record, headline string) error {
	out := cmd.OutOrStdout()
	switch {
	case getOutputFormat(cmd) == "json":
		return PrintJSON(out, recordJSON(s, rec))
	case isQuiet(cmd):
		_, _ = fmt.Fprintln(out, rec.IDString())
		return nil
	}
	if headline != "" {
		_, _ = fmt.Fprintln(out, headline)
	}
	printRecord(out, s, rec)
	return nil
}

func firstOr(list []string, fallback string) string {
	if len(list) == 0 {
		return fallback
	}
	return list[0]
}

func exampleFilter(s *resource.Schema) string {
	if fields := s.FilterFields(); len(fields) > 0 {
		return fields[0].Name + "=..."
	}
	return "id=1"
}

func exampleSet(s *resource.Schema) string {
	if req := s.RequiredFields(); len(req) > 0 {
		return req[0] + "=..."
	}
	return "field=value"
}

func exampleID(edit bool) string {
	if edit {
		return " 42"
	}
	return ""
}
