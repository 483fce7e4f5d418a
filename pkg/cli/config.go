package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// UserConfig represents ~/.tms/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile" json:"current_profile"`
	Profiles       map[string]Profile `yaml:"profiles" json:"profiles"`
}

// Profile is one named backend connection.
type Profile struct {
	Host   string `yaml:"host,omitempty" json:"host,omitempty"`
	APIKey string `yaml:"api-key,omitempty" json:"api_key,omitempty"`
	Token  string `yaml:"token,omitempty" json:"token,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

func newUserConfig() *UserConfig {
	return &UserConfig{CurrentProfile: "default", Profiles: map[string]Profile{}}
}

// ActiveProfile returns the profile named by override, or the current
// profile. An explicit override must exist; a missing current profile is empty.
func (c *UserConfig) ActiveProfile(override string) (Profile, error) {
	if override != "" {
		p, ok := c.Profiles[override]
		if !ok {
			return Profile{}, fmt.Errorf("profile %q not found", override)
		}
		return p, nil
	}
	return c.Profiles[c.CurrentProfile], nil
}

// activeName is the profile written by commands that save credentials.
func (c *UserConfig) activeName() string {
	if c.CurrentProfile == "" {
		c.CurrentProfile = "default"
	}
	return c.CurrentProfile
}

// ConfigDir returns ~/.tms, or $TMS_CONFIG_DIR when set.
func ConfigDir() string {
	if dir := os.Getenv("TMS_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tms")
}

// ConfigPath returns the path of config.yaml inside ConfigDir.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadUserConfig reads the config file.
func LoadUserConfig() (*UserConfig, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return &cfg, nil
}

// loadOrNewUserConfig treats a missing or unreadable file as empty.
func loadOrNewUserConfig() *UserConfig {
	cfg, err := LoadUserConfig()
	if err != nil {
		return newUserConfig()
	}
	return cfg
}

// SaveUserConfig writes the config file with owner-only permissions.
func SaveUserConfig(cfg *UserConfig) error {
	if err := os.MkdirAll(ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}

// normalizeHost checks a backend base URL and returns it in the form stored in
// profiles and used by the client: scheme and host with the path prefix kept
// and trailing slashes removed.
func normalizeHost(host string) (string, error) {
	raw := strings.TrimSpace(host)
	if raw == "" {
		return "", fmt.Errorf("invalid host %q: host URL cannot be empty", host)
	}
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return "", fmt.Errorf("invalid host %q: %w", host, err)
	case u.Scheme != "http" && u.Scheme != "https":
		return "", fmt.Errorf("invalid host %q: scheme must be http or https", host)
	case u.Host == "":
		return "", fmt.Errorf("invalid host %q: missing host", host)
	case u.User != nil:
		return "", fmt.Errorf("invalid host %q: credentials belong in a profile, not the URL", host)
	case u.RawQuery != "" || u.Fragment != "":
		return "", fmt.Errorf("invalid host %q: host must not include query or fragment", host)
	}
	return u.Scheme + "://" + u.Host + strings.TrimRight(u.EscapedPath(), "/"), nil
}
