// Package chat holds the conversation transcript and the loop that streams
// each turn from a remote completion service.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	configpkg "github.com/minhyannv/ferris-chat-go/pkg/config"
	loggerpkg "github.com/minhyannv/ferris-chat-go/pkg/logger"
)

// ExitCommand ends the session when typed on its own, in any case.
const ExitCommand = "exit"

// State is the conversation loop state.
type State int

const (
	StateAwaitingInput State = iota
	StateStreaming
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateStreaming:
		return "streaming"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ChatLoop drives one interactive session. It owns the transcript and is not
// safe for concurrent use: one turn completes before the next input is read.
type ChatLoop struct {
	settings   configpkg.Settings
	completer  Completer
	transcript *Transcript
	state      State
	labels     Labels
	sessionID  string

	ctx     context.Context
	logger  loggerpkg.Logger
	verbose bool
}

// New initializes a ChatLoop with the provided context, settings, and dependencies.
func New(ctx context.Context, settings configpkg.Settings, opts ...LoopOption) (*ChatLoop, error) {
	deps := loopDeps{logger: loggerpkg.NopLogger{}, labels: DefaultLabels()}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(settings.Model) == "" {
		return nil, errors.New("model is not set")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if deps.sessionID == "" {
		deps.sessionID = uuid.NewString()
	}
	if deps.logger == nil {
		deps.logger = loggerpkg.NopLogger{}
	}
	log := loggerpkg.WithFields(deps.logger, map[string]any{"session": deps.sessionID})

	completer := deps.completer
	if completer == nil {
		completer = NewOpenAICompleter(settings)
	}
	systemPrompt := settings.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = configpkg.DefaultSystemPrompt
	}

	loggerpkg.Debug(deps.verbose, log, "chat_loop init", map[string]any{
		"provider":    settings.Provider,
		"endpoint":    settings.Endpoint,
		"model":       settings.Model,
		"max_tokens":  settings.MaxTokens,
		"temperature": settings.Temperature,
		"timeout":     settings.RequestTimeout.String(),
	})

	return &ChatLoop{
		settings:   settings,
		completer:  completer,
		transcript: NewTranscript(systemPrompt),
		state:      StateAwaitingInput,
		labels:     deps.labels,
		sessionID:  deps.sessionID,

		ctx:     ctx,
		logger:  log,
		verbose: deps.verbose,
	}, nil
}

// State returns the current loop state.
func (c *ChatLoop) State() State {
	return c.state
}

// SessionID returns the id stamped on the session's log records.
func (c *ChatLoop) SessionID() string {
	return c.sessionID
}

// Transcript returns a copy of the conversation so far.
func (c *ChatLoop) Transcript() []Message {
	return c.transcript.Messages()
}

// IsExit reports whether input asks to end the session.
func IsExit(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), ExitCommand)
}

// Run reads lines from in until the user types exit or input ends, running
// one turn per line. Stream failures are logged and the session continues.
func (c *ChatLoop) Run(in LineReader, out io.Writer) error {
	if in == nil {
		return errors.New("input reader is required")
	}
	if out == nil {
		out = io.Discard
	}
	if c.state == StateTerminated {
		return errors.New("session already terminated")
	}

	loggerpkg.Debug(c.verbose, c.logger, "session start", map[string]any{"model": c.settings.Model})
	for {
		line, err := in.ReadLine(c.labels.UserPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				_, _ = fmt.Fprintln(out)
				c.terminate(out)
				return nil
			}
			c.state = StateTerminated
			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if IsExit(input) {
			c.terminate(out)
			return nil
		}

		_, _ = fmt.Fprint(out, c.labels.Assistant)
		flush(out)
		if _, err := c.Turn(input, out); err != nil {
			var streamErr *StreamError
			if !errors.As(err, &streamErr) {
				return err
			}
		}
		_, _ = fmt.Fprint(out, "\n\n")
		flush(out)
	}
}

func (c *ChatLoop) terminate(out io.Writer) {
	c.state = StateTerminated
	_, _ = fmt.Fprintln(out, c.labels.Farewell)
	flush(out)
	loggerpkg.Debug(c.verbose, c.logger, "session end", map[string]any{"messages": c.transcript.Len()})
}

// Turn appends input as a user message, streams the reply to out, and appends
// whatever was received as the assistant message. A stream failure keeps the
// partial reply and is returned as *StreamError.
func (c *ChatLoop) Turn(input string, out io.Writer) (Message, error) {
	if c.state == StateTerminated {
		return Message{}, errors.New("session already terminated")
	}
	if out == nil {
		out = io.Discard
	}
	if err := c.transcript.Append(RoleUser, input); err != nil {
		return Message{}, err
	}

	c.state = StateStreaming
	content, err := c.stream(out)
	reply := Message{Role: RoleAssistant, Content: content}
	if appendErr := c.transcript.Append(RoleAssistant, content); appendErr != nil {
		c.state = StateAwaitingInput
		return Message{}, appendErr
	}
	c.state = StateAwaitingInput

	if err != nil {
		loggerpkg.Error(c.logger, "stream failed", map[string]any{
			"error":         err.Error(),
			"partial_bytes": len(content),
		})
		return reply, &StreamError{Partial: content, Err: err}
	}
	return reply, nil
}

// stream drains one completion. Each delta reaches out before the next chunk
// is requested.
func (c *ChatLoop) stream(out io.Writer) (string, error) {
	ctx := c.ctx
	if c.settings.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.RequestTimeout)
		defer cancel()
	}

	req := Request{
		Model:       c.settings.Model,
		Messages:    c.transcript.Messages(),
		MaxTokens:   c.settings.MaxTokens,
		Temperature: c.settings.Temperature,
		Stream:      true,
	}
	loggerpkg.Debugf(c.verbose, c.logger, "[verbose] turn: sending streaming request with %d messages", len(req.Messages))

	stream := c.completer.Stream(ctx, req)
	if stream == nil {
		return "", errors.New("completer returned no stream")
	}
	defer func() { _ = stream.Close() }()

	var acc strings.Builder
	chunkCount := 0
	for stream.Next() {
		chunkCount++
		for _, delta := range stream.Current().Deltas {
			if delta == "" {
				continue
			}
			_, _ = io.WriteString(out, delta)
			flush(out)
			acc.WriteString(delta)
		}
	}
	if err := stream.Err(); err != nil {
		loggerpkg.Debugf(c.verbose, c.logger, "[verbose] turn: stream error after %d chunks", chunkCount)
		return acc.String(), err
	}
	loggerpkg.Debugf(c.verbose, c.logger, "[verbose] turn: stream completed: %d chunks, %d bytes", chunkCount, acc.Len())
	return acc.String(), nil
}
