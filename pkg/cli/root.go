// Package cli implements tmsctl, the command-line client of the TMS backend.
// Every entity module declared in the schema registry gets a command group.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tms-console/internal/apiclient"
	"tms-console/internal/config"
	"tms-console/internal/domain"
	"tms-console/internal/resource"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		reportError(os.Stdout, os.Stderr, output, err)
		return 1
	}
	return 0
}

// reportError prints err as a JSON object in json mode, otherwise as text
// with one line per field or row error.
func reportError(stdout, stderr io.Writer, output string, err error) {
	apiErr, isAPI := domain.AsAPIError(err)
	if output == "json" {
		errObj := map[string]any{"error": err.Error()}
		if isAPI {
			errObj["kind"] = apiErr.Kind
			errObj["http_status"] = apiErr.HTTPStatus
			if len(apiErr.FieldErrors) > 0 {
				errObj["field_errors"] = apiErr.FieldErrors
			}
			if len(apiErr.ImportErrors) > 0 {
				errObj["import_errors"] = apiErr.ImportErrors
			}
		}
		_ = PrintJSON(stdout, errObj)
		return
	}
	_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	if isAPI {
		for _, d := range apiErr.Details() {
			_, _ = fmt.Fprintf(stderr, "  - %s\n", d)
		}
	}
}

func newRootCmd() *cobra.Command {
	var (
		host    string
		apiKey  string
		token   string
		output  string
		profile string
		quiet   bool
		debug   bool
		timeout time.Duration
	)

	client := apiclient.NewClient(config.DefaultBackendURL, "", "")
	registry := resource.MustDefault()

	rootCmd := &cobra.Command{
		Use:           "tmsctl",
		Short:         "TMS admin CLI",
		Long:          "Command-line client for the TMS master data API: tenants, users, roles, partners and rates.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadOrNewUserConfig()
			p, err := cfg.ActiveProfile(profile)
			if err != nil {
				return err
			}

			// Apply precedence: flag > env > profile > default
			resolve := func(flag, env string, target *string, fromProfile string) {
				if cmd.Flags().Changed(flag) {
					return
				}
				if v := os.Getenv(env); v != "" {
					*target = v
				} else if fromProfile != "" {
					*target = fromProfile
				}
			}
			resolve("host", "TMS_HOST", &host, p.Host)
			resolve("api-key", "TMS_API_KEY", &apiKey, p.APIKey)
			resolve("token", "TMS_TOKEN", &token, p.Token)
			resolve("output", "TMS_OUTPUT", &output, p.Output)

			if err := validateOutputFormat(output); err != nil {
				return err
			}
			base, err := normalizeHost(host)
			if err != nil {
				return err
			}

			client.BaseURL = base
			client.APIKey = apiKey
			client.Token = token
			client.HTTPClient = &http.Client{Timeout: timeout}
			level := slog.LevelWarn
			if debug {
				level = slog.LevelDebug
			}
			client.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", config.DefaultBackendURL, "Backend API base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token for authentication")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only output record identifiers")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log every backend request to stderr")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", apiclient.DefaultTimeout, "Timeout of a single backend call")

	for _, s := range registry.All() {
		rootCmd.AddCommand(newResourceCmd(s, client))
	}

	rootCmd.AddCommand(newSchemasCmd(registry))
	rootCmd.AddCommand(newVersionCmd(registry))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// buildCommit returns the linked commit, falling back to the VCS revision the
// go toolchain stamps into module builds.
func buildCommit() string {
	if commit != "none" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return commit
}

func newVersionCmd(registry *resource.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]any{
				"version": version,
				"commit":  buildCommit(),
				"go":      runtime.Version(),
				"modules": len(registry.All()),
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), info)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tmsctl %s (commit %s, %s, %d modules)\n",
				info["version"], info["commit"], info["go"], info["modules"])
			return nil
		},
	}
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
