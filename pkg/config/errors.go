package config

import (
	"errors"
	"fmt"
	"strings"
)

// errMissingKey marks a required key absent from both the file and the environment.
var errMissingKey = errors.New("required key is missing")

// ConfigError reports a settings file that is missing, malformed, or holds a
// value that cannot be coerced to its declared type.
type ConfigError struct {
	Path string
	Key  string
	Err  error
}

func (e *ConfigError) Error() string {
	var sb strings.Builder
	sb.WriteString("config")
	if e.Path != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Path)
	}
	if e.Key != "" {
		sb.WriteString(fmt.Sprintf(": key %q", e.Key))
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// MissingCredentialsError reports a syntactically valid configuration whose
// credential or endpoint is empty.
type MissingCredentialsError struct {
	Keys []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing credentials: %s must be set", strings.Join(e.Keys, ", "))
}
