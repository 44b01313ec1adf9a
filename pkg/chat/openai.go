package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	configpkg "github.com/minhyannv/ferris-chat-go/pkg/config"
)

// OpenAICompleter streams completions from Azure OpenAI or any
// OpenAI-compatible endpoint.
type OpenAICompleter struct {
	client openai.Client
}

// NewOpenAICompleter builds a completer from settings. Extra request options
// are applied last.
func NewOpenAICompleter(s configpkg.Settings, extra ...option.RequestOption) *OpenAICompleter {
	return &OpenAICompleter{client: newOpenAIClient(s, extra...)}
}

func newOpenAIClient(s configpkg.Settings, extra ...option.RequestOption) openai.Client {
	// Failed turns are reported, never retried.
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	switch s.Provider {
	case configpkg.ProviderOpenAI:
		if s.Endpoint != "" {
			opts = append(opts, option.WithBaseURL(s.Endpoint))
		}
		if s.APIKey != "" {
			opts = append(opts, option.WithAPIKey(s.APIKey))
		}
	default:
		// The model identifier doubles as the Azure deployment name.
		opts = append(opts,
			azure.WithEndpoint(s.Endpoint, s.APIVersion),
			azure.WithAPIKey(s.APIKey),
		)
	}
	opts = append(opts, extra...)
	return openai.NewClient(opts...)
}

// Stream opens a completion. A non-streaming request is served as a stream
// of a single chunk.
func (c *OpenAICompleter) Stream(ctx context.Context, req Request) ChunkStream {
	params, err := newChatParams(req)
	if err != nil {
		return &failedStream{err: err}
	}

	if !req.Stream {
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return &failedStream{err: err}
		}
		if len(completion.Choices) == 0 {
			return &failedStream{err: errors.New("empty completion choices")}
		}
		chunk := Chunk{}
		for _, choice := range completion.Choices {
			if choice.Message.Content != "" {
				chunk.Deltas = append(chunk.Deltas, choice.Message.Content)
			}
		}
		return &sliceStream{chunks: []Chunk{chunk}}
	}

	return &openAIStream{stream: c.client.Chat.Completions.NewStreaming(ctx, params)}
}

func newChatParams(req Request) (openai.ChatCompletionNewParams, error) {
	messages, err := toOpenAIMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	return params, nil
}

func toOpenAIMessages(messages []Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			return nil, fmt.Errorf("invalid message role at index %d: %q", i, msg.Role)
		}
	}
	return out, nil
}

// openAIStream adapts an SSE chunk stream. Every choice contributes its
// content delta.
type openAIStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

func (s *openAIStream) Next() bool {
	return s.stream.Next()
}

func (s *openAIStream) Current() Chunk {
	raw := s.stream.Current()
	chunk := Chunk{}
	for _, choice := range raw.Choices {
		if choice.Delta.Content != "" {
			chunk.Deltas = append(chunk.Deltas, choice.Delta.Content)
		}
	}
	return chunk
}

func (s *openAIStream) Err() error {
	return s.stream.Err()
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

type failedStream struct {
	err error
}

func (s *failedStream) Next() bool     { return false }
func (s *failedStream) Current() Chunk { return Chunk{} }
func (s *failedStream) Err() error     { return s.err }
func (s *failedStream) Close() error   { return nil }

type sliceStream struct {
	chunks []Chunk
	pos    int
}

func (s *sliceStream) Next() bool {
	if s.pos >= len(s.chunks) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceStream) Current() Chunk {
	if s.pos == 0 {
		return Chunk{}
	}
	return s.chunks[s.pos-1]
}

func (s *sliceStream) Err() error   { return nil }
func (s *sliceStream) Close() error { return nil }
