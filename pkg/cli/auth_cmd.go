package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tms-console/internal/middleware"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthTokenCmd())
	cmd.AddCommand(newAuthWhoamiCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		useAPIKey bool
		host      string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token or API key in the active profile",
		Long: `Prompts for a bearer token (or an API key with --api-key-auth) without
echoing it and saves it to the active profile. The other credential kind is
cleared so exactly one is sent to the backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			label := "Bearer token"
			if useAPIKey {
				label = "API key"
			}
			secret, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), label+": ")
			if err != nil {
				return err
			}
			secret = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(secret), "Bearer "))
			if secret == "" {
				return fmt.Errorf("%s cannot be empty", strings.ToLower(label))
			}

			cfg := loadOrNewUserConfig()
			name := cfg.activeName()
			p := cfg.Profiles[name]
			if useAPIKey {
				p.APIKey, p.Token = secret, ""
			} else {
				p.Token, p.APIKey = secret, ""
			}
			if cmd.Flags().Changed("host") {
				normalized, err := normalizeHost(host)
				if err != nil {
					return err
				}
				p.Host = normalized
			}
			cfg.Profiles[name] = p
			if err := SaveUserConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Credentials saved to profile %q\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&useAPIKey, "api-key-auth", false, "Store an API key instead of a bearer token")
	cmd.Flags().StringVar(&host, "host", "", "Also set the profile's backend URL")

	return cmd
}

// readSecret reads one line without echo when in is a terminal.
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(label, ": "), err)
		}
		return string(b), nil
	}
	line, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return line, nil
}

// readLine reads up to the first newline. A final line without one is fine.
func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newAuthTokenCmd() *cobra.Command {
	var (
		principal string
		name      string
		secret    string
		expires   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate a development JWT and save it to the active profile",
		Long:  "Generate an HS256 JWT for local development against a backend that shares the secret. The token is saved to the active profile.",
		Example: `  # Token for a local backend
  tmsctl auth token --principal ops@example.com --secret dev-secret

  # Display name and custom expiry
  tmsctl auth token --principal ops@example.com --name "Ops Desk" --secret dev-secret --expires 48h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			claims := jwt.MapClaims{
				"sub": principal,
				"iat": now.Unix(),
				"exp": now.Add(expires).Unix(),
			}
			if name != "" {
				claims["name"] = name
			}

			token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
			signed, err := token.SignedString([]byte(secret))
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}

			cfg := loadOrNewUserConfig()
			profileName := cfg.activeName()
			p := cfg.Profiles[profileName]
			p.Token = signed
			cfg.Profiles[profileName] = p
			if err := SaveUserConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Principal (JWT sub claim)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (JWT name claim)")
	cmd.Flags().StringVar(&secret, "secret", "", "JWT signing secret (HS256)")
	cmd.Flags().DurationVar(&expires, "expires", 24*time.Hour, "Token expiry duration")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}

func newAuthWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the resolved credentials identify",
		Long:  "Decodes the bearer token without verifying it. The backend remains the authority on every call.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Root().PersistentFlags()
			token, _ := flags.GetString("token")
			apiKey, _ := flags.GetString("api-key")

			out := map[string]string{"kind": "none"}
			switch {
			case token != "":
				out["kind"] = "bearer"
				if p, ok := middleware.PrincipalFromToken(token); ok {
					out["name"] = p.Name
				}
			case apiKey != "":
				out["kind"] = "api_key"
				out["api_key"] = maskSecret(apiKey)
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), out)
			}
			switch out["kind"] {
			case "bearer":
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Bearer token for %s\n", orUnknown(out["name"]))
			case "api_key":
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "API key %s\n", out["api_key"])
			default:
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
			}
			return nil
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "an unnamed principal"
	}
	return s
}
