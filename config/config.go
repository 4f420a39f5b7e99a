// Package config loads the application configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/log"
	"github.com/codex-mohan/autonix/provider"
	"github.com/codex-mohan/autonix/registry"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Model     ModelConfig               `yaml:"model"`
	LLM       llmconfig.LLMConfig       `yaml:"llm"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Store     StoreConfig               `yaml:"store"`
	Log       LogConfig                 `yaml:"log"`
	Tools     ToolsConfig               `yaml:"tools"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ModelConfig selects the default chat model.
type ModelConfig struct {
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
}

// ProviderConfig holds the credentials and endpoint of one provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// StoreConfig names the persistence backends. See store/backend for DSN schemes.
type StoreConfig struct {
	CheckpointDSN   string `yaml:"checkpoint_dsn"`
	ConversationDSN string `yaml:"conversation_dsn"`
}

// LogConfig sets the root level and per-logger overrides.
type LogConfig struct {
	Level  string            `yaml:"level"`
	Levels map[string]string `yaml:"levels"`
}

// ToolsConfig configures the built-in tools.
type ToolsConfig struct {
	WorkDir      string        `yaml:"work_dir"`
	ShellTimeout time.Duration `yaml:"shell_timeout"`
}

// Defaults.
const (
	DefaultListenAddr    = ":8080"
	DefaultProvider      = "google"
	DefaultModel         = "gemini-2.5-flash"
	DefaultCheckpointDSN = "memory://"
	DefaultShellTimeout  = 30 * time.Second
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{ListenAddr: DefaultListenAddr},
		Model:     ModelConfig{Provider: DefaultProvider, Name: DefaultModel},
		LLM:       llmconfig.Default(),
		Providers: map[string]ProviderConfig{},
		Store:     StoreConfig{CheckpointDSN: DefaultCheckpointDSN},
		Log:       LogConfig{Level: "info"},
		Tools:     ToolsConfig{ShellTimeout: DefaultShellTimeout},
	}
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result. An empty path starts from Default.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		applyEnv(cfg, os.Getenv)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over Default, applies environment
// overrides and validates. Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	applyEnv(cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment variables read by Load. Provider keys also accept the
// variable names the vendors document.
const (
	EnvListenAddr      = "AUTONIX_LISTEN_ADDR"
	EnvProvider        = "AUTONIX_PROVIDER"
	EnvModel           = "AUTONIX_MODEL"
	EnvLogLevel        = "AUTONIX_LOG_LEVEL"
	EnvCheckpointDSN   = "AUTONIX_CHECKPOINT_DSN"
	EnvConversationDSN = "AUTONIX_CONVERSATION_DSN"
	EnvWorkDir         = "AUTONIX_WORK_DIR"
)

var providerEnv = map[provider.Name]struct {
	apiKey  []string
	baseURL []string
}{
	provider.OpenAI: {apiKey: []string{"AUTONIX_OPENAI_API_KEY", "OPENAI_API_KEY"}, baseURL: []string{"AUTONIX_OPENAI_BASE_URL", "OPENAI_BASE_URL"}},
	provider.Google: {apiKey: []string{"AUTONIX_GOOGLE_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY"}, baseURL: []string{"AUTONIX_GOOGLE_BASE_URL"}},
	provider.Ollama: {baseURL: []string{"AUTONIX_OLLAMA_BASE_URL", "OLLAMA_BASE_URL", "OLLAMA_HOST"}},
}

func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Server.ListenAddr, EnvListenAddr)
	set(&cfg.Model.Provider, EnvProvider)
	set(&cfg.Model.Name, EnvModel)
	set(&cfg.Log.Level, EnvLogLevel)
	set(&cfg.Store.CheckpointDSN, EnvCheckpointDSN)
	set(&cfg.Store.ConversationDSN, EnvConversationDSN)
	set(&cfg.Tools.WorkDir, EnvWorkDir)

	for name, keys := range providerEnv {
		pc := cfg.Providers[string(name)]
		if v := firstEnv(getenv, keys.apiKey); v != "" {
			pc.APIKey = v
		}
		if v := firstEnv(getenv, keys.baseURL); v != "" {
			pc.BaseURL = v
		}
		if pc != (ProviderConfig{}) {
			cfg.Providers[string(name)] = pc
		}
	}
}

func firstEnv(getenv func(string) string, keys []string) string {
	for _, k := range keys {
		if v := getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks cfg and returns every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}

	name, err := provider.ParseName(c.Model.Provider)
	if err != nil {
		errs = append(errs, fmt.Errorf("model.provider: %w", err))
	} else if _, err := registry.Default().Resolve(string(name), c.Model.Name); err != nil {
		errs = append(errs, fmt.Errorf("model.name: %w", err))
	}

	for key := range c.Providers {
		if _, err := provider.ParseName(key); err != nil {
			errs = append(errs, fmt.Errorf("providers.%s: %w", key, err))
		}
	}

	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("llm: %w", err))
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	for logger, level := range c.Log.Levels {
		if _, err := log.ParseLevel(level); err != nil {
			errs = append(errs, fmt.Errorf("log.levels.%s: %w", logger, err))
		}
	}

	if c.Tools.ShellTimeout < 0 {
		errs = append(errs, fmt.Errorf("tools.shell_timeout %s must not be negative", c.Tools.ShellTimeout))
	}

	return errors.Join(errs...)
}

// ProviderOptions returns the factory options carrying the configured keys and endpoints.
func (c *Config) ProviderOptions() []provider.Option {
	var opts []provider.Option
	for key, pc := range c.Providers {
		name, err := provider.ParseName(key)
		if err != nil {
			continue
		}
		if pc.APIKey != "" {
			opts = append(opts, provider.WithAPIKey(name, pc.APIKey))
		}
		if pc.BaseURL != "" {
			opts = append(opts, provider.WithBaseURL(name, pc.BaseURL))
		}
	}
	return opts
}

// LogOptions returns the options for log.Setup.
func (c *Config) LogOptions() log.Options {
	return log.Options{Level: c.Log.Level, Levels: c.Log.Levels}
}
