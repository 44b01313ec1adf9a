// Package config loads the chat client settings from a settings file layered
// under environment variables.
//
// The file holds a single [azure] section:
//
//	[azure]
//	openai_api_key = "..."
//	openai_endpoint = "https://example.openai.azure.com"
//	model = "gpt-4"
//	max_tokens = 800
//	temperature = 0.7
//
// Any key can be overridden with APP_AZURE__<KEY>, e.g. APP_AZURE__MODEL.
package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultPath is probed with each supported extension when no file is given.
	DefaultPath = "config/default"

	DefaultAPIVersion   = "2023-05-15"
	DefaultSystemPrompt = "You are a helpful assistant."

	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
)

// Settings is the effective configuration for one process.
type Settings struct {
	APIKey      string
	Endpoint    string
	Model       string
	MaxTokens   uint16
	Temperature float64

	APIVersion     string
	Provider       string
	SystemPrompt   string
	RequestTimeout time.Duration
}

// Validate reports a MissingCredentialsError when the credential or the
// endpoint is blank.
func (s Settings) Validate() error {
	var missing []string
	if strings.TrimSpace(s.APIKey) == "" {
		missing = append(missing, keyAPIKey)
	}
	if strings.TrimSpace(s.Endpoint) == "" {
		missing = append(missing, keyEndpoint)
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Keys: missing}
	}
	return nil
}

// String renders the settings with the credential redacted.
func (s Settings) String() string {
	key := ""
	if s.APIKey != "" {
		key = "****"
	}
	return fmt.Sprintf(
		"provider=%s endpoint=%s model=%s max_tokens=%d temperature=%g api_version=%s timeout=%s api_key=%s",
		s.Provider, s.Endpoint, s.Model, s.MaxTokens, s.Temperature, s.APIVersion, s.RequestTimeout, key,
	)
}

// normalize trims string fields and fills optional defaults.
func normalize(s Settings) Settings {
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	s.Model = strings.TrimSpace(s.Model)
	s.APIVersion = strings.TrimSpace(s.APIVersion)
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))

	if s.APIVersion == "" {
		s.APIVersion = DefaultAPIVersion
	}
	if s.Provider == "" {
		s.Provider = ProviderAzure
	}
	if strings.TrimSpace(s.SystemPrompt) == "" {
		s.SystemPrompt = DefaultSystemPrompt
	}
	if s.RequestTimeout < 0 {
		s.RequestTimeout = 0
	}
	return s
}
