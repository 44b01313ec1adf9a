package chat

import loggerpkg "github.com/minhyannv/ferris-chat-go/pkg/logger"

// LoopOption configures optional runtime dependencies for ChatLoop.
type LoopOption func(*loopDeps)

type loopDeps struct {
	logger    loggerpkg.Logger
	completer Completer
	sessionID string
	verbose   bool
	labels    Labels
}

// Labels are the fixed strings the loop prints around each turn.
type Labels struct {
	UserPrompt string
	Assistant  string
	Farewell   string
}

// DefaultLabels returns the uncolored prompt, reply label, and farewell.
func DefaultLabels() Labels {
	return Labels{
		UserPrompt: "You: ",
		Assistant:  "Assistant: ",
		Farewell:   "Goodbye!",
	}
}

// WithLogger injects a logger dependency. Records carry the session id as a
// session=<id> field whatever the logger's implementation.
func WithLogger(l loggerpkg.Logger) LoopOption {
	return func(d *loopDeps) {
		d.logger = l
	}
}

// WithCompleter replaces the OpenAI-backed completer.
func WithCompleter(c Completer) LoopOption {
	return func(d *loopDeps) {
		d.completer = c
	}
}

// WithSessionID fixes the id stamped on every log record of the session.
func WithSessionID(id string) LoopOption {
	return func(d *loopDeps) {
		d.sessionID = id
	}
}

// WithVerbose enables debug logging.
func WithVerbose(verbose bool) LoopOption {
	return func(d *loopDeps) {
		d.verbose = verbose
	}
}

// WithLabels overrides the prompt, reply label, and farewell.
func WithLabels(labels Labels) LoopOption {
	return func(d *loopDeps) {
		d.labels = labels
	}
}
