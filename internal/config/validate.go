package config

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	rcron "github.com/robfig/cron/v3"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Problem is one finding of Validate.
type Problem struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s: %s", p.Severity, p.Field, p.Message)
}

const minGeminiKeyLength = 20

// cronParser matches the scheduler's six-field format.
var cronParser = rcron.NewParser(rcron.Second | rcron.Minute | rcron.Hour | rcron.Dom | rcron.Month | rcron.Dow | rcron.Descriptor)

// Validate reports configuration problems. The result is empty when the
// configuration is usable.
func (c *Config) Validate() []Problem {
	var out []Problem
	add := func(sev Severity, field, msg string) {
		out = append(out, Problem{Severity: sev, Field: field, Message: msg})
	}

	if strings.TrimSpace(c.Chat.Username) == "" {
		add(SeverityError, "chat.username", "missing (set REPLYPILOT_CHAT_USERNAME)")
	}
	if strings.TrimSpace(c.Chat.Password) == "" {
		add(SeverityError, "chat.password", "missing (set REPLYPILOT_CHAT_PASSWORD)")
	}
	if !hasHTTPScheme(c.Chat.LoginURL) {
		add(SeverityError, "chat.loginUrl", "must start with http:// or https://")
	}

	switch c.Provider.Type {
	case ProviderGemini:
		key := strings.TrimSpace(c.Provider.APIKey)
		if key == "" {
			add(SeverityError, "provider.apiKey", "missing Gemini API key (set GEMINI_API_KEY)")
		} else if len(key) < minGeminiKeyLength {
			add(SeverityWarning, "provider.apiKey", "Gemini API key looks too short")
		}
	case ProviderLocal:
		if c.Provider.BaseURL != "" && !hasHTTPScheme(c.Provider.BaseURL) {
			add(SeverityWarning, "provider.baseUrl", "local endpoint should start with http:// or https://")
		}
	case ProviderAnthropic, ProviderOpenAI:
		if strings.TrimSpace(c.Provider.APIKey) == "" {
			add(SeverityError, "provider.apiKey", fmt.Sprintf("missing %s API key", c.Provider.Type))
		}
	case ProviderTemplates:
	default:
		add(SeverityError, "provider.type", fmt.Sprintf("unknown provider %q, use one of %s", c.Provider.Type, strings.Join(ProviderTypes, ", ")))
	}

	if c.Loop.PollIntervalSeconds <= 0 {
		add(SeverityError, "loop.pollIntervalSeconds", "must be positive")
	}
	if c.Loop.FollowUpHours <= 0 {
		add(SeverityError, "loop.followUpHours", "must be positive")
	}
	if c.Loop.BrowserRetries < 0 {
		add(SeverityError, "loop.browserRetries", "must not be negative")
	}
	if c.Loop.Timezone != "" {
		if _, err := time.LoadLocation(c.Loop.Timezone); err != nil {
			add(SeverityError, "loop.timezone", err.Error())
		}
	}

	if c.Schedule.Enabled {
		for field, expr := range map[string]string{
			"schedule.extractCron": c.Schedule.ExtractCron,
			"schedule.pruneCron":   c.Schedule.PruneCron,
		} {
			if _, err := cronParser.Parse(expr); err != nil {
				add(SeverityError, field, fmt.Sprintf("invalid cron expression: %v", err))
			}
		}
	}

	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.Token == "" {
			add(SeverityError, "notify.telegram.token", "missing bot token")
		}
		if c.Notify.Telegram.ChatID == 0 {
			add(SeverityError, "notify.telegram.chatId", "missing chat id")
		}
	}

	if c.Log.DebugLevel < 0 || c.Log.DebugLevel > 2 {
		add(SeverityWarning, "log.debugLevel", "expected 0, 1 or 2")
	}

	slices.SortStableFunc(out, func(a, b Problem) int { return strings.Compare(a.Field, b.Field) })
	return out
}

// HasErrors reports whether any problem is an error.
func HasErrors(problems []Problem) bool {
	for _, p := range problems {
		if p.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Schema returns the JSON schema of Config.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
}

func hasHTTPScheme(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
