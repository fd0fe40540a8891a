package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	DefaultExecTimeout    = 60
	MinExecTimeout        = 1
	MaxExecTimeout        = 1800
	DefaultMaxOutputChars = 10000
	DefaultSearchProvider = "brave"
	DefaultSearchResults  = 5
	MaxSearchResults      = 10
	DefaultSearchTimeout  = 10
	DefaultFetchMaxChars  = 50000
	DefaultFetchTimeout   = 30
	EnvPrefix             = "AGTOOLS"
	configDirName         = "ag-tools"
)

// ExecConfig configures the exec tool.
type ExecConfig struct {
	Timeout             int      `mapstructure:"timeout"`
	EnvStrip            []string `mapstructure:"env_strip"`
	MaxOutputChars      int      `mapstructure:"max_output_chars"`
	WorkingDir          string   `mapstructure:"working_dir"`
	DenyPatterns        []string `mapstructure:"deny_patterns"`
	AllowPatterns       []string `mapstructure:"allow_patterns"`
	RestrictToWorkspace bool     `mapstructure:"restrict_to_workspace"`
	Shell               string   `mapstructure:"shell"`
}

// SearchConfig configures the web_search tool. Timeout is in seconds.
type SearchConfig struct {
	Provider          string  `mapstructure:"provider"`
	APIKey            string  `mapstructure:"api_key"`
	MaxResults        int     `mapstructure:"max_results"`
	Timeout           int     `mapstructure:"timeout"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// FetchConfig configures the web_fetch tool. Timeout is in seconds.
type FetchConfig struct {
	MaxChars int `mapstructure:"max_chars"`
	Timeout  int `mapstructure:"timeout"`
}

// WebConfig groups the web tools.
type WebConfig struct {
	Search SearchConfig `mapstructure:"search"`
	Fetch  FetchConfig  `mapstructure:"fetch"`
}

// ToolsConfig groups every tool section.
type ToolsConfig struct {
	Exec ExecConfig `mapstructure:"exec"`
	Web  WebConfig  `mapstructure:"web"`
}

// StoreConfig locates the call history database. An empty path disables it.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Config holds runtime configuration values.
type Config struct {
	Tools ToolsConfig `mapstructure:"tools"`
	Store StoreConfig `mapstructure:"store"`
	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// Load resolves configuration from defaults, the config file, env and the
// --config flag of cmd.
func Load(cmd *cobra.Command) (Config, error) {
	path := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			path = flag.Value.String()
		}
	}
	return LoadFrom(path)
}

// LoadFrom resolves configuration using an explicit config file. An empty
// path searches the user config directory.
func LoadFrom(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	file, err := loadConfigFile(v, path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           &cfg,
		MatchName:        matchKey,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = file
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tools.exec.timeout", DefaultExecTimeout)
	v.SetDefault("tools.exec.envStrip", []string{})
	v.SetDefault("tools.exec.maxOutputChars", DefaultMaxOutputChars)
	v.SetDefault("tools.exec.workingDir", "")
	v.SetDefault("tools.exec.restrictToWorkspace", false)
	v.SetDefault("tools.exec.shell", "")
	v.SetDefault("tools.web.search.provider", "")
	v.SetDefault("tools.web.search.apiKey", "")
	v.SetDefault("tools.web.search.maxResults", DefaultSearchResults)
	v.SetDefault("tools.web.search.timeout", DefaultSearchTimeout)
	v.SetDefault("tools.web.search.requestsPerSecond", 0)
	v.SetDefault("tools.web.fetch.maxChars", DefaultFetchMaxChars)
	v.SetDefault("tools.web.fetch.timeout", DefaultFetchTimeout)
	v.SetDefault("store.path", "")
}

// matchKey treats apiKey, api_key and APIKEY as the same key.
func matchKey(mapKey, fieldName string) bool {
	return foldKey(mapKey) == foldKey(fieldName)
}

func foldKey(s string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(s))
}

func (c *Config) normalize() {
	search := &c.Tools.Web.Search
	search.Provider = strings.ToLower(strings.TrimSpace(search.Provider))
	// A bare apiKey from older configs belongs to the default provider.
	if search.Provider == "" {
		search.Provider = DefaultSearchProvider
	}
	search.APIKey = strings.TrimSpace(search.APIKey)
	if search.MaxResults <= 0 {
		search.MaxResults = DefaultSearchResults
	}
	if search.MaxResults > MaxSearchResults {
		search.MaxResults = MaxSearchResults
	}
	if search.Timeout <= 0 {
		search.Timeout = DefaultSearchTimeout
	}

	exec := &c.Tools.Exec
	if exec.Timeout == 0 {
		exec.Timeout = DefaultExecTimeout
	}
	if exec.MaxOutputChars <= 0 {
		exec.MaxOutputChars = DefaultMaxOutputChars
	}

	fetch := &c.Tools.Web.Fetch
	if fetch.MaxChars <= 0 {
		fetch.MaxChars = DefaultFetchMaxChars
	}
	if fetch.Timeout <= 0 {
		fetch.Timeout = DefaultFetchTimeout
	}
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	var errs []error
	switch c.Tools.Web.Search.Provider {
	case "brave", "tavily":
	default:
		errs = append(errs, fmt.Errorf("tools.web.search.provider: unsupported provider %q (want brave or tavily)", c.Tools.Web.Search.Provider))
	}
	if t := c.Tools.Exec.Timeout; t < MinExecTimeout || t > MaxExecTimeout {
		errs = append(errs, fmt.Errorf("tools.exec.timeout: %d out of range %d-%d", t, MinExecTimeout, MaxExecTimeout))
	}
	if c.Tools.Web.Search.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("tools.web.search.requestsPerSecond: must not be negative"))
	}
	return errors.Join(errs...)
}

func loadConfigFile(v *viper.Viper, explicit string) (string, error) {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", explicit, err)
		}
		return explicit, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", nil
	}
	base := filepath.Join(configDir, configDirName)
	for _, name := range []string{"config.yaml", "config.yml", "config.json", "config.toml"} {
		path := filepath.Join(base, name)
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return "", fmt.Errorf("read config %s: %w", path, err)
			}
			return path, nil
		}
	}
	return "", nil
}
