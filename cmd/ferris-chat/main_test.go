package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, apiKey, endpoint, provider string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "default.toml")
	content := fmt.Sprintf(`
[azure]
openai_api_key = %q
openai_endpoint = %q
model = "gpt-4"
max_tokens = 256
temperature = 0.2
provider = %q
`, apiKey, endpoint, provider)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunExitsWithZeroOnExit(t *testing.T) {
	path := writeSettings(t, "key", "https://example.openai.azure.com", "azure")

	code, stdout, stderr := runCLI(t, "EXIT\n", "-config", path, "-no-color")

	assert.Equal(t, 0, code)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "Welcome to ferris-chat")
	assert.Contains(t, stdout, usageHint)
	assert.True(t, strings.HasSuffix(stdout, "You: Goodbye!\n"))
}

func TestRunFailsOnMissingConfig(t *testing.T) {
	code, _, stderr := runCLI(t, "", "-config", filepath.Join(t.TempDir(), "absent"))

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error loading configuration")
}

func TestRunFailsOnMissingCredentials(t *testing.T) {
	path := writeSettings(t, "", "https://example.openai.azure.com", "azure")

	code, stdout, stderr := runCLI(t, "hello\n", "-config", path)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "missing credentials: openai_api_key")
	assert.NotContains(t, stdout, "You:")
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	code, _, _ := runCLI(t, "", "-bogus")
	assert.Equal(t, 2, code)
}

func TestRunHelpExitsZero(t *testing.T) {
	code, _, stderr := runCLI(t, "", "-h")
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "Usage: ferris-chat")
}

func TestRunStreamsRepliesEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range []string{"Hello", " there"} {
			_, _ = fmt.Fprintf(w, "data: {\"id\":\"c\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()
	path := writeSettings(t, "key", server.URL+"/", "openai")

	code, stdout, stderr := runCLI(t, "hi\nexit\n", "-config", path, "-no-color")

	assert.Equal(t, 0, code)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "You: Assistant: Hello there\n\nYou: Goodbye!\n")
}

func TestRunLogsStreamFailureAndContinues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = fmt.Fprint(w, `{"error":{"message":"upstream down"}}`)
	}))
	defer server.Close()
	path := writeSettings(t, "key", server.URL+"/", "openai")

	code, stdout, stderr := runCLI(t, "hi\nexit\n", "-config", path, "-no-color")

	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "ERROR stream failed")
	assert.Contains(t, stdout, "Goodbye!")
}
