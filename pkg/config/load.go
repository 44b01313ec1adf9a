package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix and EnvSeparator build override names: APP_AZURE__MODEL.
	EnvPrefix    = "APP"
	EnvSeparator = "__"

	section = "azure"

	keyAPIKey         = "openai_api_key"
	keyEndpoint       = "openai_endpoint"
	keyModel          = "model"
	keyMaxTokens      = "max_tokens"
	keyTemperature    = "temperature"
	keyAPIVersion     = "api_version"
	keyProvider       = "provider"
	keySystemPrompt   = "system_prompt"
	keyTimeoutSeconds = "timeout_seconds"
)

// supportedExts is the probe order for an extensionless settings path.
var supportedExts = []string{".toml", ".yaml", ".yml", ".json"}

type fileSettings struct {
	Azure rawSettings `toml:"azure" yaml:"azure" json:"azure"`
}

// rawSettings keeps pointers so an absent key can be told apart from a zero value.
type rawSettings struct {
	APIKey         *string  `toml:"openai_api_key" yaml:"openai_api_key" json:"openai_api_key"`
	Endpoint       *string  `toml:"openai_endpoint" yaml:"openai_endpoint" json:"openai_endpoint"`
	Model          *string  `toml:"model" yaml:"model" json:"model"`
	MaxTokens      *uint16  `toml:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
	Temperature    *float64 `toml:"temperature" yaml:"temperature" json:"temperature"`
	APIVersion     *string  `toml:"api_version" yaml:"api_version" json:"api_version"`
	Provider       *string  `toml:"provider" yaml:"provider" json:"provider"`
	SystemPrompt   *string  `toml:"system_prompt" yaml:"system_prompt" json:"system_prompt"`
	TimeoutSeconds *int     `toml:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Loader reads a settings file and overlays environment variables on top.
type Loader struct {
	// Path of the settings file. Without an extension every supported
	// extension is probed in order.
	Path string
	// EnvFile is an optional dotenv file consulted after the process
	// environment. Empty disables it.
	EnvFile string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load reads path (DefaultPath when empty), then .env, then the process
// environment, with later layers winning.
func Load(path string) (Settings, error) {
	return Loader{Path: path, EnvFile: ".env"}.Load()
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(section) + EnvSeparator + strings.ToUpper(key)
}

// Load resolves the settings. Failures are returned as *ConfigError.
func (l Loader) Load() (Settings, error) {
	path, err := resolvePath(l.Path)
	if err != nil {
		return Settings{}, err
	}

	var file fileSettings
	if err := decodeFile(path, &file); err != nil {
		return Settings{}, &ConfigError{Path: path, Err: err}
	}

	lookup, err := l.lookupFunc()
	if err != nil {
		return Settings{}, &ConfigError{Path: l.EnvFile, Err: err}
	}

	raw := file.Azure
	if err := applyEnv(&raw, lookup); err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}
		return Settings{}, err
	}

	settings, err := raw.settings()
	if err != nil {
		return Settings{}, &ConfigError{Path: path, Key: strings.Join(missingKeys(raw), ", "), Err: err}
	}
	return normalize(settings), nil
}

func (l Loader) lookupFunc() (func(string) (string, bool), error) {
	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if l.EnvFile == "" {
		return lookup, nil
	}

	dotenv, err := godotenv.Read(l.EnvFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return lookup, nil
		}
		return nil, fmt.Errorf("read env file: %w", err)
	}
	return func(name string) (string, bool) {
		if v, ok := lookup(name); ok {
			return v, true
		}
		v, ok := dotenv[name]
		return v, ok
	}, nil
}

func resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	if filepath.Ext(path) != "" {
		info, err := os.Stat(path)
		if err != nil {
			return "", &ConfigError{Path: path, Err: err}
		}
		if info.IsDir() {
			return "", &ConfigError{Path: path, Err: errors.New("is a directory")}
		}
		return path, nil
	}

	for _, ext := range supportedExts {
		candidate := path + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", &ConfigError{
		Path: path,
		Err:  fmt.Errorf("no settings file with extension %s: %w", strings.Join(supportedExts, ", "), os.ErrNotExist),
	}
}

func decodeFile(path string, out *fileSettings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err = toml.Decode(string(data), out)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	case ".json":
		err = json.Unmarshal(data, out)
	default:
		err = fmt.Errorf("unsupported settings format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func applyEnv(raw *rawSettings, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvName(key))
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}
	coerceErr := func(key string, err error) error {
		return &ConfigError{Key: key, Err: fmt.Errorf("%s: %w", EnvName(key), err)}
	}

	for key, dst := range map[string]**string{
		keyAPIKey:       &raw.APIKey,
		keyEndpoint:     &raw.Endpoint,
		keyModel:        &raw.Model,
		keyAPIVersion:   &raw.APIVersion,
		keyProvider:     &raw.Provider,
		keySystemPrompt: &raw.SystemPrompt,
	} {
		if v, ok := get(key); ok {
			*dst = &v
		}
	}

	if v, ok := get(keyMaxTokens); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 16)
		if err != nil {
			return coerceErr(keyMaxTokens, err)
		}
		maxTokens := uint16(n)
		raw.MaxTokens = &maxTokens
	}
	if v, ok := get(keyTemperature); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return coerceErr(keyTemperature, err)
		}
		raw.Temperature = &f
	}
	if v, ok := get(keyTimeoutSeconds); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return coerceErr(keyTimeoutSeconds, err)
		}
		raw.TimeoutSeconds = &n
	}
	return nil
}

func missingKeys(raw rawSettings) []string {
	var missing []string
	if raw.APIKey == nil {
		missing = append(missing, keyAPIKey)
	}
	if raw.Endpoint == nil {
		missing = append(missing, keyEndpoint)
	}
	if raw.Model == nil {
		missing = append(missing, keyModel)
	}
	if raw.MaxTokens == nil {
		missing = append(missing, keyMaxTokens)
	}
	if raw.Temperature == nil {
		missing = append(missing, keyTemperature)
	}
	return missing
}

func (r rawSettings) settings() (Settings, error) {
	if len(missingKeys(r)) > 0 {
		return Settings{}, errMissingKey
	}

	s := Settings{
		APIKey:      *r.APIKey,
		Endpoint:    *r.Endpoint,
		Model:       *r.Model,
		MaxTokens:   *r.MaxTokens,
		Temperature: *r.Temperature,
	}
	if r.APIVersion != nil {
		s.APIVersion = *r.APIVersion
	}
	if r.Provider != nil {
		s.Provider = *r.Provider
	}
	if r.SystemPrompt != nil {
		s.SystemPrompt = *r.SystemPrompt
	}
	if r.TimeoutSeconds != nil {
		s.RequestTimeout = time.Duration(*r.TimeoutSeconds) * time.Second
	}
	return s, nil
}
