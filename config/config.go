package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the roadmap service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Research  ResearchConfig  `mapstructure:"research"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	LogLevel       string        `mapstructure:"log_level"`
	LogMode        string        `mapstructure:"log_mode"` // dev or prod
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	ExportDir      string        `mapstructure:"export_dir"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func (s ServerConfig) Normalize() ServerConfig {
	if strings.TrimSpace(s.Address) == "" {
		s.Address = ":8000"
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}
	if strings.TrimSpace(s.ExportDir) == "" {
		s.ExportDir = "exports"
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = 5 * time.Minute
	}
	return s
}

// LLMConfig selects and parameterises the completion provider
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // openai or anthropic
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

func (l LLMConfig) Normalize() LLMConfig {
	l.Provider = strings.ToLower(strings.TrimSpace(l.Provider))
	if l.Provider == "" {
		l.Provider = "openai"
	}
	if strings.TrimSpace(l.Model) == "" {
		switch l.Provider {
		case "anthropic":
			l.Model = "claude-3-5-sonnet-latest"
		default:
			l.Model = "gpt-4o"
		}
	}
	if l.MaxTokens <= 0 {
		l.MaxTokens = 4096
	}
	if l.Timeout <= 0 {
		l.Timeout = 2 * time.Minute
	}
	if l.MaxRetries < 0 {
		l.MaxRetries = 0
	}
	return l
}

func (l LLMConfig) Validate() error {
	switch l.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider %q is not supported", l.Provider)
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2]")
	}
	return nil
}

// Configured reports whether credentials for the completion provider exist.
func (l LLMConfig) Configured() bool {
	return strings.TrimSpace(l.APIKey) != ""
}

// SourcesConfig contains resource discovery sources
type SourcesConfig struct {
	WebSearch WebSearchConfig `mapstructure:"web_search"`
}

// WebSearchConfig contains web search settings
type WebSearchConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Provider     string        `mapstructure:"provider"` // serper or brave
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

func (w WebSearchConfig) Normalize() WebSearchConfig {
	w.Provider = strings.ToLower(strings.TrimSpace(w.Provider))
	if w.Provider == "" {
		w.Provider = "serper"
		if w.SerperAPIKey == "" && w.BraveAPIKey != "" {
			w.Provider = "brave"
		}
	}
	if w.Timeout <= 0 {
		w.Timeout = 15 * time.Second
	}
	if w.MaxRetries < 0 {
		w.MaxRetries = 0
	}
	return w
}

func (w WebSearchConfig) Validate() error {
	if !w.Enabled {
		return nil
	}
	switch w.Provider {
	case "serper":
		if strings.TrimSpace(w.SerperAPIKey) == "" {
			return fmt.Errorf("sources.web_search.serper_api_key required when search is enabled")
		}
	case "brave":
		if strings.TrimSpace(w.BraveAPIKey) == "" {
			return fmt.Errorf("sources.web_search.brave_api_key required when search is enabled")
		}
	default:
		return fmt.Errorf("sources.web_search.provider %q is not supported", w.Provider)
	}
	return nil
}

// APIKey returns the key of the selected provider.
func (w WebSearchConfig) APIKey() string {
	if w.Provider == "brave" {
		return w.BraveAPIKey
	}
	return w.SerperAPIKey
}

// KindCaps bounds how many resources of each kind are attached to one node.
type KindCaps struct {
	Video         int `mapstructure:"video"`
	Course        int `mapstructure:"course"`
	Documentation int `mapstructure:"documentation"`
	Book          int `mapstructure:"book"`
}

// ResearchConfig tunes resource enrichment
type ResearchConfig struct {
	TopicCaps      KindCaps `mapstructure:"topic_caps"`
	SubtopicCaps   KindCaps `mapstructure:"subtopic_caps"`
	MaxConcurrency int      `mapstructure:"max_concurrency"`
}

func (r ResearchConfig) Normalize() ResearchConfig {
	if r.MaxConcurrency <= 0 {
		r.MaxConcurrency = 4
	}
	return r
}

func (r ResearchConfig) Validate() error {
	for name, caps := range map[string]KindCaps{"topic_caps": r.TopicCaps, "subtopic_caps": r.SubtopicCaps} {
		if caps.Video < 0 || caps.Course < 0 || caps.Documentation < 0 || caps.Book < 0 {
			return fmt.Errorf("research.%s cannot be negative", name)
		}
	}
	return nil
}

// StorageConfig contains storage settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings for the discovery cache
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TTL      time.Duration `mapstructure:"ttl"`
}

func (r RedisConfig) Normalize() RedisConfig {
	if r.Timeout <= 0 {
		r.Timeout = 2 * time.Second
	}
	if r.TTL <= 0 {
		r.TTL = 24 * time.Hour
	}
	return r
}

func (r RedisConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// TelemetryConfig contains tracing settings
type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (t TelemetryConfig) Normalize() TelemetryConfig {
	if strings.TrimSpace(t.ServiceName) == "" {
		t.ServiceName = "careergraph"
	}
	if t.SampleRatio <= 0 || t.SampleRatio > 1 {
		t.SampleRatio = 1
	}
	return t
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.log_mode", "dev")
	v.SetDefault("general.default_timeout", "5m")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("sources.web_search.enabled", false)
	v.SetDefault("sources.web_search.max_retries", 1)
	v.SetDefault("research.topic_caps.video", 2)
	v.SetDefault("research.topic_caps.course", 2)
	v.SetDefault("research.topic_caps.documentation", 1)
	v.SetDefault("research.topic_caps.book", 1)
	v.SetDefault("research.subtopic_caps.video", 1)
	v.SetDefault("research.subtopic_caps.course", 1)
	v.SetDefault("research.subtopic_caps.documentation", 0)
	v.SetDefault("research.subtopic_caps.book", 0)
	v.SetDefault("research.max_concurrency", 4)
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// legacyEnv maps the variables the service was historically deployed with
// onto config keys. They are consulted in addition to CAREERGRAPH_* names.
var legacyEnv = map[string]string{
	"llm.api_key":                       "OPENAI_API_KEY",
	"llm.model":                         "OPENAI_MODEL",
	"sources.web_search.enabled":        "SEARCH_ENABLED",
	"sources.web_search.serper_api_key": "SERPER_API_KEY",
	"sources.web_search.brave_api_key":  "BRAVE_API_KEY",
}

// LoadConfig loads config from file and environment. An empty path searches
// the usual locations; a missing file is fine, everything can come from env.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("CAREERGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // CAREERGRAPH_LLM_API_KEY, CAREERGRAPH_SERVER_ADDRESS, ...
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "CAREERGRAPH_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize applies defaults to every section.
func (c *Config) Normalize() {
	if c.General.DefaultTimeout <= 0 {
		c.General.DefaultTimeout = 5 * time.Minute
	}
	c.Server = c.Server.Normalize()
	c.LLM = c.LLM.Normalize()
	c.Sources.WebSearch = c.Sources.WebSearch.Normalize()
	c.Research = c.Research.Normalize()
	c.Storage.Redis = c.Storage.Redis.Normalize()
	c.Telemetry = c.Telemetry.Normalize()
}

// Validate checks every section and reports the first problem.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Sources.WebSearch.Validate(); err != nil {
		return err
	}
	if err := c.Research.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Redis.Validate(); err != nil {
		return err
	}
	return nil
}
