// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// Components receive the section they need; only the composition root holds the whole.
type Interface interface {
	Logger() LoggerConfig
	Agent() AgentConfig
	LLM() LLMConfig
	Generation() GenerationConfig
	Consistency() ConsistencyConfig
	Journal() JournalConfig
	Snapshot() SnapshotConfig

	SetAgentMaxIterations(int)
	SetGenerationBaseOutputDir(string)
	SetLoggerLevel(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	AgentCfg       AgentConfig       `mapstructure:"agent" yaml:"agent"`
	LLMCfg         LLMConfig         `mapstructure:"llm" yaml:"llm"`
	GenerationCfg  GenerationConfig  `mapstructure:"generation" yaml:"generation"`
	ConsistencyCfg ConsistencyConfig `mapstructure:"consistency" yaml:"consistency"`
	JournalCfg     JournalConfig     `mapstructure:"journal" yaml:"journal"`
	SnapshotCfg    SnapshotConfig    `mapstructure:"snapshot" yaml:"snapshot"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Agent() AgentConfig             { return c.AgentCfg }
func (c *Config) LLM() LLMConfig                 { return c.LLMCfg }
func (c *Config) Generation() GenerationConfig   { return c.GenerationCfg }
func (c *Config) Consistency() ConsistencyConfig { return c.ConsistencyCfg }
func (c *Config) Journal() JournalConfig         { return c.JournalCfg }
func (c *Config) Snapshot() SnapshotConfig       { return c.SnapshotCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetAgentMaxIterations(n int)         { c.AgentCfg.MaxIterations = n }
func (c *Config) SetGenerationBaseOutputDir(d string) { c.GenerationCfg.BaseOutputDir = d }
func (c *Config) SetLoggerLevel(l string)             { c.LoggerCfg.Level = l }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// AgentConfig tunes the reasoning/acting loop.
type AgentConfig struct {
	MaxIterations   int      `mapstructure:"max_iterations" yaml:"max_iterations"`
	MaxHistory      int      `mapstructure:"max_history" yaml:"max_history"`
	PromptWindow    int      `mapstructure:"prompt_window" yaml:"prompt_window"`
	SuccessKeywords []string `mapstructure:"success_keywords" yaml:"success_keywords"`
	FailureKeywords []string `mapstructure:"failure_keywords" yaml:"failure_keywords"`
	// StateTools names the tools that receive AgentState payloads merged into their input.
	StateTools []string `mapstructure:"state_tools" yaml:"state_tools"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMConfig configures the Generator.
type LLMConfig struct {
	Provider          LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	FastModel         string        `mapstructure:"fast_model" yaml:"fast_model"`
	APIKey            string        `mapstructure:"api_key" yaml:"-"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// GenerationConfig controls where and how projects are written.
type GenerationConfig struct {
	BaseOutputDir string `mapstructure:"base_output_dir" yaml:"base_output_dir"`
	PythonPath    string `mapstructure:"python_path" yaml:"python_path"`
	TechStack     string `mapstructure:"tech_stack" yaml:"tech_stack"`
	RunScriptName string `mapstructure:"run_script_name" yaml:"run_script_name"`
}

// ConsistencyConfig names the markers the classifier and analyzer key on.
type ConsistencyConfig struct {
	ValidationBase   string   `mapstructure:"validation_base" yaml:"validation_base"`
	PersistenceBases []string `mapstructure:"persistence_bases" yaml:"persistence_bases"`
	SchemaSuffixes   []string `mapstructure:"schema_suffixes" yaml:"schema_suffixes"`
	SessionAccessor  string   `mapstructure:"session_accessor" yaml:"session_accessor"`
	BaseName         string   `mapstructure:"base_name" yaml:"base_name"`
	CacheSize        int      `mapstructure:"cache_size" yaml:"cache_size"`
}

// JournalType selects the run journal backend.
type JournalType string

const (
	JournalNone     JournalType = "none"
	JournalFile     JournalType = "file"
	JournalPostgres JournalType = "postgres"
)

// JournalConfig configures where steps and errors of a run are recorded.
type JournalConfig struct {
	Type     JournalType `mapstructure:"type" yaml:"type"`
	FileName string      `mapstructure:"file_name" yaml:"file_name"`
	DSN      string      `mapstructure:"dsn" yaml:"-"`
}

// SnapshotConfig controls committing the generated project into a git repository.
type SnapshotConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	AuthorName  string `mapstructure:"author_name" yaml:"author_name"`
	AuthorEmail string `mapstructure:"author_email" yaml:"author_email"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "codesmith")
	v.SetDefault("logger.log_file", "codesmith.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Agent --
	v.SetDefault("agent.max_iterations", 99)
	v.SetDefault("agent.max_history", 200)
	v.SetDefault("agent.prompt_window", 20)
	v.SetDefault("agent.success_keywords", []string{"successfully", "created", "generated", "completed"})
	v.SetDefault("agent.failure_keywords", []string{"error", "failed", "exception", "not found"})
	v.SetDefault("agent.state_tools", []string{
		"project_structure", "file_generator", "generate_project_files", "project_validator", "create_run_script",
	})

	// -- LLM --
	v.SetDefault("llm.provider", string(ProviderGemini))
	v.SetDefault("llm.model", "gemini-2.5-pro")
	v.SetDefault("llm.fast_model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "2m")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 8192)
	v.SetDefault("llm.requests_per_second", 0.5)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", "2s")

	// -- Generation --
	v.SetDefault("generation.base_output_dir", "generated_project_code")
	v.SetDefault("generation.python_path", "python")
	v.SetDefault("generation.tech_stack", "fastapi")
	v.SetDefault("generation.run_script_name", "run.bat")

	// -- Consistency --
	v.SetDefault("consistency.validation_base", "BaseModel")
	v.SetDefault("consistency.persistence_bases", []string{"Base", "db.Model", "DeclarativeBase"})
	v.SetDefault("consistency.schema_suffixes", []string{"Create", "Update", "Base", "In", "Out", "Response", "Request", "Schema"})
	v.SetDefault("consistency.session_accessor", "get_db")
	v.SetDefault("consistency.base_name", "Base")
	v.SetDefault("consistency.cache_size", 256)

	// -- Journal --
	v.SetDefault("journal.type", string(JournalFile))
	v.SetDefault("journal.file_name", "coder_errors.json")

	// -- Snapshot --
	v.SetDefault("snapshot.enabled", false)
	v.SetDefault("snapshot.author_name", "codesmith-bot")
	v.SetDefault("snapshot.author_email", "codesmith@localhost")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("llm.api_key", "CODESMITH_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("journal.dsn", "CODESMITH_JOURNAL_DSN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.AgentCfg.Validate(); err != nil {
		return fmt.Errorf("agent configuration invalid: %w", err)
	}
	if err := c.LLMCfg.Validate(); err != nil {
		return fmt.Errorf("llm configuration invalid: %w", err)
	}
	if err := c.JournalCfg.Validate(); err != nil {
		return fmt.Errorf("journal configuration invalid: %w", err)
	}
	if strings.TrimSpace(c.ConsistencyCfg.ValidationBase) == "" {
		return fmt.Errorf("consistency.validation_base is required")
	}
	return nil
}

// Validate checks the loop bounds.
func (a *AgentConfig) Validate() error {
	if a.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be a positive integer")
	}
	if a.MaxHistory < 2 {
		return fmt.Errorf("max_history must be at least 2")
	}
	if a.PromptWindow <= 0 {
		return fmt.Errorf("prompt_window must be a positive integer")
	}
	if len(a.SuccessKeywords) == 0 {
		return fmt.Errorf("success_keywords must not be empty")
	}
	return nil
}

// Validate checks the Generator settings.
func (l *LLMConfig) Validate() error {
	if l.Provider != ProviderGemini {
		return fmt.Errorf("unsupported provider '%s'. Supported: [%s]", l.Provider, ProviderGemini)
	}
	if l.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1")
	}
	if l.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}
	return nil
}

// Validate checks the journal backend selection.
func (j *JournalConfig) Validate() error {
	switch j.Type {
	case JournalNone, JournalFile:
		return nil
	case JournalPostgres:
		if j.DSN == "" {
			return fmt.Errorf("dsn is required for the postgres journal. Ensure CODESMITH_JOURNAL_DSN is set")
		}
		return nil
	default:
		return fmt.Errorf("unknown journal type '%s'", j.Type)
	}
}
