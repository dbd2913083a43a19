package publisher

import (
	"encoding/json"
	"errors"
	"os"
)

// Config holds the commerce API credential plus optional generation and
// server settings.
type Config struct {
	APIToken          string     `json:"api_token"`
	BaseURL           string     `json:"base_url,omitempty"`
	DefaultPriceCents int        `json:"default_price_cents,omitempty"`
	LLM               *LLMConfig `json:"llm,omitempty"`
	ServerAddr        string     `json:"server_addr,omitempty"`
}

// LLMConfig configures the generation providers.
type LLMConfig struct {
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	ImageModel string `json:"image_model,omitempty"`
	APIKey     string `json:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty"`
}

// Env variable fallbacks applied when the config file leaves a field
// empty.
const (
	envAPIToken     = "PRINTAPI_TOKEN"
	envGeminiAPIKey = "GEMINI_API_KEY"
	envOpenAIAPIKey = "OPENAI_API_KEY"
)

// LoadConfig reads JSON config from disk and fills empty credentials
// from the environment.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// DefaultConfig returns a config built purely from the environment, for
// running without a config file.
func DefaultConfig() Config {
	var cfg Config
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if cfg.APIToken == "" {
		cfg.APIToken = os.Getenv(envAPIToken)
	}
	if cfg.LLM == nil {
		cfg.LLM = &LLMConfig{}
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini"
	}
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv(envOpenAIAPIKey)
		default:
			cfg.LLM.APIKey = os.Getenv(envGeminiAPIKey)
		}
	}
}

// ErrNoToken reports a missing commerce credential at publish time.
var ErrNoToken = errors.New("commerce api token missing; provide api_token or PRINTAPI_TOKEN")
