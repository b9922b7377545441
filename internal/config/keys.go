package config

// Environment variables carrying secrets.
const (
	EnvOpenAIKey    = EnvPrefix + "_LLM_OPENAI_KEY"
	EnvAnthropicKey = EnvPrefix + "_LLM_ANTHROPIC_KEY"
	EnvFMPKey       = EnvPrefix + "_PROVIDER_FMP_KEY"
)

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "sk-...abc"
}

// CheckAPIKeys returns the status of all API keys the pipeline may need.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("OpenAI API Key", cfg.LLM.OpenAIKey, EnvOpenAIKey, "OPENAI_API_KEY"),
		checkKey("Anthropic API Key", cfg.LLM.AnthropicKey, EnvAnthropicKey, "ANTHROPIC_API_KEY"),
		checkKey("FMP API Key", cfg.Provider.FMPKey, EnvFMPKey, "FMP_API_KEY"),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value string, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value == "" {
		status.Source = KeySourceNone
		return status
	}
	status.Source = KeySourceConfig
	if firstEnv(envVars...) != "" {
		status.Source = KeySourceEnv
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey masks an API key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
