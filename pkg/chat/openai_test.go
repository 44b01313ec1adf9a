package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configpkg "github.com/minhyannv/ferris-chat-go/pkg/config"
)

type capturedRequest struct {
	path   string
	query  string
	apiKey string
	auth   string
	body   map[string]any
}

func chunkJSON(content string) string {
	return fmt.Sprintf(`{"id":"chunk-1","object":"chat.completion.chunk","created":1,"model":"gpt-4","choices":[{"index":0,"delta":{"role":"assistant","content":%q},"finish_reason":null}]}`, content)
}

// sseServer replies with one SSE event per payload, then [DONE] when done is set.
func sseServer(t *testing.T, captured *capturedRequest, payloads []string, done bool) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		captured.path = r.URL.Path
		captured.query = r.URL.Query().Get("api-version")
		captured.apiKey = r.Header.Get("Api-Key")
		captured.auth = r.Header.Get("Authorization")
		assert.NoError(t, json.Unmarshal(body, &captured.body))

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, p := range payloads {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", p)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if done {
			_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func openAISettings(endpoint string) configpkg.Settings {
	s := testSettings()
	s.Provider = configpkg.ProviderOpenAI
	s.Endpoint = endpoint + "/"
	return s
}

func drain(t *testing.T, stream ChunkStream) ([]string, error) {
	t.Helper()
	defer func() { _ = stream.Close() }()
	var deltas []string
	for stream.Next() {
		deltas = append(deltas, stream.Current().Deltas...)
	}
	return deltas, stream.Err()
}

func sampleRequest() Request {
	return Request{
		Model: "gpt-4",
		Messages: []Message{
			{Role: RoleSystem, Content: "You are a helpful assistant."},
			{Role: RoleUser, Content: "hi"},
		},
		MaxTokens:   800,
		Temperature: 0.7,
		Stream:      true,
	}
}

func TestOpenAICompleterStreamsDeltas(t *testing.T) {
	var captured capturedRequest
	server := sseServer(t, &captured, []string{chunkJSON("Hel"), chunkJSON("lo, "), chunkJSON("world!")}, true)
	completer := NewOpenAICompleter(openAISettings(server.URL))

	deltas, err := drain(t, completer.Stream(context.Background(), sampleRequest()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo, ", "world!"}, deltas)

	assert.Equal(t, "/chat/completions", captured.path)
	assert.Equal(t, "Bearer test-key", captured.auth)
	assert.Equal(t, true, captured.body["stream"])
	assert.Equal(t, "gpt-4", captured.body["model"])
	assert.EqualValues(t, 800, captured.body["max_tokens"])
	assert.InDelta(t, 0.7, captured.body["temperature"], 1e-9)

	messages, ok := captured.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestOpenAICompleterReportsMidStreamError(t *testing.T) {
	var captured capturedRequest
	server := sseServer(t, &captured, []string{chunkJSON("Par"), chunkJSON("tial"), `{"choices": [`}, false)
	completer := NewOpenAICompleter(openAISettings(server.URL))

	deltas, err := drain(t, completer.Stream(context.Background(), sampleRequest()))
	require.Error(t, err)
	assert.Equal(t, []string{"Par", "tial"}, deltas)
}

func TestOpenAICompleterDoesNotRetryServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer server.Close()
	completer := NewOpenAICompleter(openAISettings(server.URL))

	deltas, err := drain(t, completer.Stream(context.Background(), sampleRequest()))
	require.Error(t, err)
	assert.Empty(t, deltas)
	assert.Equal(t, 1, calls)
}

func TestOpenAICompleterAzureRouting(t *testing.T) {
	var captured capturedRequest
	server := sseServer(t, &captured, []string{chunkJSON("ok")}, true)
	s := testSettings()
	s.Provider = configpkg.ProviderAzure
	s.Endpoint = server.URL
	s.APIVersion = configpkg.DefaultAPIVersion
	completer := NewOpenAICompleter(s)

	deltas, err := drain(t, completer.Stream(context.Background(), sampleRequest()))
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, deltas)

	assert.Equal(t, "/openai/deployments/gpt-4/chat/completions", captured.path)
	assert.Equal(t, "2023-05-15", captured.query)
	assert.Equal(t, "test-key", captured.apiKey)
}

func TestOpenAICompleterNonStreamingRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.False(t, strings.Contains(string(body), `"stream":true`))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4","choices":[{"index":0,"message":{"role":"assistant","content":"whole reply"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()
	completer := NewOpenAICompleter(openAISettings(server.URL))

	req := sampleRequest()
	req.Stream = false
	deltas, err := drain(t, completer.Stream(context.Background(), req))
	require.NoError(t, err)
	assert.Equal(t, []string{"whole reply"}, deltas)
}

func TestChatLoopOverOpenAICompleter(t *testing.T) {
	var captured capturedRequest
	server := sseServer(t, &captured, []string{chunkJSON("Hello"), chunkJSON("!")}, true)
	settings := openAISettings(server.URL)
	loop, err := New(context.Background(), settings)
	require.NoError(t, err)

	var out strings.Builder
	reply, err := loop.Turn("hi", &out)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", reply.Content)
	assert.Equal(t, "Hello!", out.String())
}

func TestToOpenAIMessagesRejectsInvalidRole(t *testing.T) {
	_, err := toOpenAIMessages([]Message{{Role: "tool", Content: "bad"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 0")
}

func TestStreamWithInvalidRoleFailsWithoutRequest(t *testing.T) {
	completer := NewOpenAICompleter(openAISettings("http://127.0.0.1:1"))
	req := sampleRequest()
	req.Messages = append(req.Messages, Message{Role: "tool"})

	deltas, err := drain(t, completer.Stream(context.Background(), req))
	require.Error(t, err)
	assert.Empty(t, deltas)
}
