// Package config loads the bridge configuration from defaults, an optional
// YAML file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"github.com/koscakluka/ema-agentbridge/core/agents"
	"github.com/koscakluka/ema-agentbridge/core/agents/langgraph"
	"github.com/koscakluka/ema-agentbridge/core/voices"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddress string `yaml:"http_address" json:"http_address" jsonschema:"description=Address the HTTP server listens on"`
	// UserEmail is passed to every run as configurable.user_email.
	UserEmail string `yaml:"user_email" json:"user_email,omitempty"`

	LangGraph LangGraphConfig `yaml:"langgraph" json:"langgraph"`
	Language  LanguageConfig  `yaml:"language" json:"language"`
	Deepgram  DeepgramConfig  `yaml:"deepgram" json:"deepgram"`
}

type LangGraphConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Assistant   string        `yaml:"assistant" json:"assistant" jsonschema:"description=Assistant or graph id runs are started on"`
	StreamMode  string        `yaml:"stream_mode" json:"stream_mode" jsonschema:"enum=values,enum=messages,enum=updates,enum=events"`
	DebugStream bool          `yaml:"debug_stream" json:"debug_stream,omitempty"`
	AuthToken   string        `yaml:"auth_token" json:"auth_token,omitempty"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout,omitempty" jsonschema:"description=Timeout of non-streaming requests"`

	ExcludeAssistants []string          `yaml:"exclude_assistants" json:"exclude_assistants,omitempty"`
	DisplayNames      map[string]string `yaml:"display_names" json:"display_names,omitempty" jsonschema:"description=Display names by assistant or graph id"`
}

type LanguageConfig struct {
	Default          string `yaml:"default" json:"default" jsonschema:"enum=en-US,enum=es-US,enum=fr-FR,enum=de-DE,enum=zh-CN"`
	ValidateWithText bool   `yaml:"validate_with_text" json:"validate_with_text" jsonschema:"description=Check the recognizer's language against the transcript text"`
}

type DeepgramConfig struct {
	APIKey      string `yaml:"api_key" json:"api_key,omitempty"`
	ListenModel string `yaml:"listen_model" json:"listen_model,omitempty"`
}

func Default() Config {
	return Config{
		HTTPAddress: ":8080",
		LangGraph: LangGraphConfig{
			BaseURL:    langgraph.DefaultBaseURL,
			Assistant:  "agent",
			StreamMode: string(agents.StreamModeMessages),
			Timeout:    30 * time.Second,
		},
		Language: LanguageConfig{
			Default:          voices.DefaultLanguage,
			ValidateWithText: true,
		},
	}
}

// Load builds the configuration. path may be empty, a missing .env file is
// not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	setString := func(target *string, names ...string) {
		for _, name := range names {
			if value, ok := lookup(name); ok && strings.TrimSpace(value) != "" {
				*target = strings.TrimSpace(value)
				return
			}
		}
	}

	setString(&c.HTTPAddress, "HTTP_ADDRESS")
	setString(&c.UserEmail, "USER_EMAIL")
	setString(&c.LangGraph.BaseURL, "LANGGRAPH_BASE_URL")
	setString(&c.LangGraph.Assistant, "LANGGRAPH_ASSISTANT")
	setString(&c.LangGraph.StreamMode, "LANGGRAPH_STREAM_MODE")
	setString(&c.LangGraph.AuthToken, "LANGGRAPH_AUTH_TOKEN", "AUTH0_ACCESS_TOKEN", "AUTH_BEARER_TOKEN")
	setString(&c.Language.Default, "DEFAULT_LANGUAGE")
	setString(&c.Deepgram.APIKey, "DEEPGRAM_API_KEY")
	setString(&c.Deepgram.ListenModel, "DEEPGRAM_LISTEN_MODEL")

	if value, ok := lookup("EXCLUDE_ASSISTANTS"); ok {
		c.LangGraph.ExcludeAssistants = splitList(value)
	}

	for name, target := range map[string]*bool{
		"LANGGRAPH_DEBUG_STREAM":      &c.LangGraph.DebugStream,
		"VALIDATE_LANGUAGE_WITH_TEXT": &c.Language.ValidateWithText,
	} {
		value, ok := lookup(name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*target = parsed
	}

	if value, ok := lookup("LANGGRAPH_TIMEOUT"); ok && strings.TrimSpace(value) != "" {
		timeout, err := parseTimeout(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid LANGGRAPH_TIMEOUT: %w", err)
		}
		c.LangGraph.Timeout = timeout
	}

	return nil
}

// parseTimeout accepts durations ("45s") and plain seconds ("45").
func parseTimeout(value string) (time.Duration, error) {
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	return time.ParseDuration(value)
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (c Config) Validate() error {
	var errs []error
	if _, err := agents.ParseStreamMode(c.LangGraph.StreamMode); err != nil {
		errs = append(errs, err)
	}
	if !voices.Supported(c.Language.Default) {
		errs = append(errs, fmt.Errorf("unsupported default language %q", c.Language.Default))
	}
	if strings.TrimSpace(c.LangGraph.BaseURL) == "" {
		errs = append(errs, errors.New("langgraph base url is required"))
	}
	if strings.TrimSpace(c.LangGraph.Assistant) == "" {
		errs = append(errs, errors.New("langgraph assistant is required"))
	}
	if c.LangGraph.Timeout < 0 {
		errs = append(errs, fmt.Errorf("negative langgraph timeout %s", c.LangGraph.Timeout))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RunConfig is the base run configuration every session starts from.
func (c Config) RunConfig() agents.RunConfig {
	config := agents.RunConfig{Configurable: map[string]any{}}
	if c.UserEmail != "" {
		config.Configurable["user_email"] = c.UserEmail
	}
	return config
}

// Schema describes the YAML configuration file.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&Config{})
	schema.Title = "agentbridge configuration"
	return schema
}
