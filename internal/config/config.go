package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/stellarlinkco/replypilot/internal/retry"
)

const (
	DefaultLoginURL               = "https://chatadmin.de/login"
	DefaultPageLoadTimeoutMs      = 20000
	DefaultProviderType           = ProviderGemini
	DefaultGeminiModel            = "gemini-2.5-flash"
	DefaultLocalBaseURL           = "http://127.0.0.1:5001/v1"
	DefaultLocalModel             = "koboldcpp"
	DefaultAnthropicModel         = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens              = 250
	DefaultTemperature            = 0.8
	DefaultTopP                   = 0.9
	DefaultLocalTimeoutSeconds    = 180
	DefaultRemoteTimeoutSeconds   = 60
	DefaultPollIntervalSeconds    = 15
	DefaultFollowUpHours          = 4
	DefaultMaxConsecutiveFailures = 5
	DefaultHistoryLimit           = 10
	DefaultBrowserRetries         = 2
	DefaultBrowserRetryDelayMs    = 700
	DefaultMaxLength              = 500
	DefaultMaxPasses              = 3
	DefaultContextTurns           = 6
	DefaultDraftRetentionDays     = 30
	DefaultExtractCron            = "0 */30 * * * *"
	DefaultPruneCron              = "0 0 4 * * *"
	DefaultExtractWindow          = 60
	DefaultDebugLevel             = 1
)

// Provider types.
const (
	ProviderGemini    = "gemini"
	ProviderLocal     = "local"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderTemplates = "templates"
)

// ProviderTypes lists every accepted provider type.
var ProviderTypes = []string{ProviderGemini, ProviderLocal, ProviderAnthropic, ProviderOpenAI, ProviderTemplates}

type Config struct {
	Chat      ChatConfig      `json:"chat"`
	Provider  ProviderConfig  `json:"provider"`
	Loop      LoopConfig      `json:"loop"`
	Policy    PolicyConfig    `json:"policy"`
	Templates TemplatesConfig `json:"templates"`
	Store     StoreConfig     `json:"store"`
	Schedule  ScheduleConfig  `json:"schedule"`
	Notify    NotifyConfig    `json:"notify"`
	Log       LogConfig       `json:"log"`
}

type ChatConfig struct {
	LoginURL string `json:"loginUrl"`
	// ChatURL is opened after login. Empty means the operator navigates manually.
	ChatURL           string `json:"chatUrl,omitempty"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	Headless          bool   `json:"headless"`
	ControlURL        string `json:"controlUrl,omitempty" jsonschema:"description=DevTools URL of an already running browser"`
	PageLoadTimeoutMs int    `json:"pageLoadTimeoutMs"`
	AutoSkipManual    bool   `json:"autoSkipManual"`
}

type ProviderConfig struct {
	Type           string       `json:"type" jsonschema:"enum=gemini,enum=local,enum=anthropic,enum=openai,enum=templates"`
	APIKey         string       `json:"apiKey,omitempty"`
	BaseURL        string       `json:"baseUrl,omitempty"`
	Model          string       `json:"model,omitempty"`
	MaxTokens      int          `json:"maxTokens"`
	Temperature    float64      `json:"temperature"`
	TopP           float64      `json:"topP"`
	TimeoutSeconds int          `json:"timeoutSeconds,omitempty"`
	Retry          *RetryConfig `json:"retry,omitempty"`
}

type RetryConfig struct {
	MaxRetries  int `json:"maxRetries"`
	BaseDelayMs int `json:"baseDelayMs"`
}

func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{MaxRetries: r.MaxRetries, BaseDelay: time.Duration(r.BaseDelayMs) * time.Millisecond}
}

type LoopConfig struct {
	PollIntervalSeconds    int     `json:"pollIntervalSeconds"`
	FollowUpHours          float64 `json:"followUpHours"`
	MaxConsecutiveFailures int     `json:"maxConsecutiveFailures"`
	HistoryLimit           int     `json:"historyLimit"`
	BrowserRetries         int     `json:"browserRetries"`
	BrowserRetryDelayMs    int     `json:"browserRetryDelayMs"`
	// Timezone of scraped timestamps; empty means the local zone.
	Timezone string `json:"timezone,omitempty"`
}

type PolicyConfig struct {
	MaxLength    int `json:"maxLength"`
	MaxPasses    int `json:"maxPasses"`
	ContextTurns int `json:"contextTurns"`
}

type TemplatesConfig struct {
	Path  string `json:"path,omitempty"`
	Watch bool   `json:"watch"`
}

type StoreConfig struct {
	Path               string `json:"path"`
	DraftRetentionDays int    `json:"draftRetentionDays"`
}

type ScheduleConfig struct {
	Enabled       bool   `json:"enabled"`
	ExtractCron   string `json:"extractCron"`
	PruneCron     string `json:"pruneCron"`
	ExtractWindow int    `json:"extractWindow"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chatId"`
	Proxy   string `json:"proxy,omitempty"`
}

type LogConfig struct {
	// DebugLevel 0 logs warnings, 1 info, 2 debug.
	DebugLevel int    `json:"debugLevel"`
	File       string `json:"file,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			LoginURL:          DefaultLoginURL,
			PageLoadTimeoutMs: DefaultPageLoadTimeoutMs,
		},
		Provider: ProviderConfig{
			Type:        DefaultProviderType,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			TopP:        DefaultTopP,
		},
		Loop: LoopConfig{
			PollIntervalSeconds:    DefaultPollIntervalSeconds,
			FollowUpHours:          DefaultFollowUpHours,
			MaxConsecutiveFailures: DefaultMaxConsecutiveFailures,
			HistoryLimit:           DefaultHistoryLimit,
			BrowserRetries:         DefaultBrowserRetries,
			BrowserRetryDelayMs:    DefaultBrowserRetryDelayMs,
		},
		Policy: PolicyConfig{
			MaxLength:    DefaultMaxLength,
			MaxPasses:    DefaultMaxPasses,
			ContextTurns: DefaultContextTurns,
		},
		Templates: TemplatesConfig{
			Path: filepath.Join(ConfigDir(), "templates.yaml"),
		},
		Store: StoreConfig{
			Path:               filepath.Join(ConfigDir(), "replypilot.db"),
			DraftRetentionDays: DefaultDraftRetentionDays,
		},
		Schedule: ScheduleConfig{
			Enabled:       true,
			ExtractCron:   DefaultExtractCron,
			PruneCron:     DefaultPruneCron,
			ExtractWindow: DefaultExtractWindow,
		},
		Log: LogConfig{DebugLevel: DefaultDebugLevel},
	}
}

func ConfigDir() string {
	if dir := os.Getenv("REPLYPILOT_HOME"); dir != "" {
		return dir
	}
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".replypilot")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LoadConfig layers defaults, the JSON file, .env files and the environment.
// Variables already set in the process environment win over .env entries.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	for _, path := range []string{".env", filepath.Join(ConfigDir(), ".env")} {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	normalize(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Chat.Username, "REPLYPILOT_CHAT_USERNAME", "VILUU_USERNAME", "CHAT_USERNAME")
	setString(&cfg.Chat.Password, "REPLYPILOT_CHAT_PASSWORD", "VILUU_PASSWORD", "CHAT_PASSWORD")
	setString(&cfg.Chat.LoginURL, "REPLYPILOT_LOGIN_URL")
	setString(&cfg.Chat.ChatURL, "REPLYPILOT_CHAT_URL")
	setString(&cfg.Chat.ControlURL, "REPLYPILOT_CONTROL_URL")
	setBool(&cfg.Chat.Headless, "REPLYPILOT_HEADLESS")
	setBool(&cfg.Chat.AutoSkipManual, "REPLYPILOT_AUTO_SKIP_MANUAL", "BOT_AUTO_SKIP_MANUAL")
	setInt(&cfg.Chat.PageLoadTimeoutMs, "REPLYPILOT_PAGE_LOAD_TIMEOUT", "BOT_PAGE_LOAD_TIMEOUT")

	if v := firstEnv("REPLYPILOT_PROVIDER", "KI_PROVIDER"); v != "" {
		cfg.Provider.Type = strings.ToLower(v)
		// The historic name for the local endpoint.
		if cfg.Provider.Type == "kobold" {
			cfg.Provider.Type = ProviderLocal
		}
	}
	setString(&cfg.Provider.APIKey, "REPLYPILOT_API_KEY")
	if cfg.Provider.APIKey == "" {
		switch cfg.Provider.Type {
		case ProviderGemini:
			setString(&cfg.Provider.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
		case ProviderAnthropic:
			setString(&cfg.Provider.APIKey, "ANTHROPIC_API_KEY", "ANTHROPIC_AUTH_TOKEN")
		case ProviderOpenAI:
			setString(&cfg.Provider.APIKey, "OPENAI_API_KEY")
		}
	}
	setString(&cfg.Provider.BaseURL, "REPLYPILOT_BASE_URL")
	if cfg.Provider.Type == ProviderLocal {
		setString(&cfg.Provider.BaseURL, "KOBOLD_ENDPOINT")
	}
	setString(&cfg.Provider.Model, "REPLYPILOT_MODEL")

	setInt(&cfg.Loop.PollIntervalSeconds, "REPLYPILOT_POLL_INTERVAL", "BOT_POLLING_INTERVAL")
	setFloat(&cfg.Loop.FollowUpHours, "REPLYPILOT_FOLLOW_UP_HOURS", "BOT_FOLLOW_UP_HOURS")
	setInt(&cfg.Loop.BrowserRetryDelayMs, "REPLYPILOT_RETRY_DELAY", "BOT_RETRY_DELAY")
	setString(&cfg.Loop.Timezone, "REPLYPILOT_TIMEZONE")

	setString(&cfg.Templates.Path, "REPLYPILOT_TEMPLATES")
	setString(&cfg.Store.Path, "REPLYPILOT_DB_PATH")

	setString(&cfg.Notify.Telegram.Token, "REPLYPILOT_TELEGRAM_TOKEN")
	if v := os.Getenv("REPLYPILOT_TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Notify.Telegram.ChatID = id
		}
	}

	setInt(&cfg.Log.DebugLevel, "REPLYPILOT_DEBUG_LEVEL", "BOT_DEBUG_LEVEL")
	setString(&cfg.Log.File, "REPLYPILOT_LOG_FILE")
}

func normalize(cfg *Config) {
	d := DefaultConfig()
	if cfg.Chat.LoginURL == "" {
		cfg.Chat.LoginURL = d.Chat.LoginURL
	}
	if cfg.Chat.PageLoadTimeoutMs <= 0 {
		cfg.Chat.PageLoadTimeoutMs = d.Chat.PageLoadTimeoutMs
	}
	if cfg.Provider.Type == "" {
		cfg.Provider.Type = DefaultProviderType
	}
	if cfg.Provider.MaxTokens <= 0 {
		cfg.Provider.MaxTokens = DefaultMaxTokens
	}
	if cfg.Provider.Temperature <= 0 {
		cfg.Provider.Temperature = DefaultTemperature
	}
	if cfg.Provider.TopP <= 0 {
		cfg.Provider.TopP = DefaultTopP
	}
	if cfg.Loop.PollIntervalSeconds == 0 {
		cfg.Loop.PollIntervalSeconds = DefaultPollIntervalSeconds
	}
	if cfg.Loop.FollowUpHours == 0 {
		cfg.Loop.FollowUpHours = DefaultFollowUpHours
	}
	if cfg.Loop.MaxConsecutiveFailures <= 0 {
		cfg.Loop.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if cfg.Loop.HistoryLimit <= 0 {
		cfg.Loop.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Loop.BrowserRetryDelayMs <= 0 {
		cfg.Loop.BrowserRetryDelayMs = DefaultBrowserRetryDelayMs
	}
	if cfg.Policy.MaxLength <= 0 {
		cfg.Policy.MaxLength = DefaultMaxLength
	}
	if cfg.Policy.MaxPasses <= 0 {
		cfg.Policy.MaxPasses = DefaultMaxPasses
	}
	if cfg.Policy.ContextTurns <= 0 {
		cfg.Policy.ContextTurns = DefaultContextTurns
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = d.Store.Path
	}
	if cfg.Store.DraftRetentionDays <= 0 {
		cfg.Store.DraftRetentionDays = DefaultDraftRetentionDays
	}
	if cfg.Schedule.ExtractCron == "" {
		cfg.Schedule.ExtractCron = DefaultExtractCron
	}
	if cfg.Schedule.PruneCron == "" {
		cfg.Schedule.PruneCron = DefaultPruneCron
	}
	if cfg.Schedule.ExtractWindow <= 0 {
		cfg.Schedule.ExtractWindow = DefaultExtractWindow
	}
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0600)
}

// ProviderRetry returns the retry budget for the configured provider. The
// local endpoint is slow but dependable; remote APIs fail fast on rate limits.
func (c *Config) ProviderRetry() retry.Policy {
	if c.Provider.Retry != nil {
		return c.Provider.Retry.Policy()
	}
	if c.Provider.Type == ProviderLocal {
		return retry.Policy{MaxRetries: 1, BaseDelay: 5 * time.Second}
	}
	return retry.Policy{MaxRetries: 3, BaseDelay: time.Second}
}

// BrowserRetry returns the retry budget for snapshot and write-back calls.
func (c *Config) BrowserRetry() retry.Policy {
	return retry.Policy{
		MaxRetries: c.Loop.BrowserRetries,
		BaseDelay:  time.Duration(c.Loop.BrowserRetryDelayMs) * time.Millisecond,
	}
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Loop.PollIntervalSeconds) * time.Second
}

func (c *Config) FollowUpAfter() time.Duration {
	return time.Duration(c.Loop.FollowUpHours * float64(time.Hour))
}

// Location resolves Loop.Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Loop.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Loop.Timezone)
}

// ProviderModel returns the configured model or the default for the type.
func (c *Config) ProviderModel() string {
	if c.Provider.Model != "" {
		return c.Provider.Model
	}
	switch c.Provider.Type {
	case ProviderGemini:
		return DefaultGeminiModel
	case ProviderLocal:
		return DefaultLocalModel
	case ProviderAnthropic:
		return DefaultAnthropicModel
	case ProviderOpenAI:
		return "gpt-4o-mini"
	}
	return ""
}

// ProviderTimeout bounds a single provider call.
func (c *Config) ProviderTimeout() time.Duration {
	if c.Provider.TimeoutSeconds > 0 {
		return time.Duration(c.Provider.TimeoutSeconds) * time.Second
	}
	if c.Provider.Type == ProviderLocal {
		return DefaultLocalTimeoutSeconds * time.Second
	}
	return DefaultRemoteTimeoutSeconds * time.Second
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func setString(dst *string, keys ...string) {
	if v := firstEnv(keys...); v != "" {
		*dst = v
	}
}

func setInt(dst *int, keys ...string) {
	if v := firstEnv(keys...); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, keys ...string) {
	if v := firstEnv(keys...); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, keys ...string) {
	if v := firstEnv(keys...); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
