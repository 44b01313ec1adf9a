// Package main is a terminal chat client that streams replies from Azure OpenAI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/minhyannv/ferris-chat-go/pkg/chat"
	configpkg "github.com/minhyannv/ferris-chat-go/pkg/config"
	loggerpkg "github.com/minhyannv/ferris-chat-go/pkg/logger"
)

// main is the program entry point.
func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 when the user leaves, 1 on startup
// failure, 2 on bad flags.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseCLIOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ui := newConsole(stdout, colorsEnabled(stdout, opts.NoColor))
	ui.printBanner()

	settings, err := configpkg.Load(opts.ConfigPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return 1
	}
	if err := settings.Validate(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v in %s or %s/%s\n", err, opts.ConfigPath,
			configpkg.EnvName("openai_api_key"), configpkg.EnvName("openai_endpoint"))
		return 1
	}

	appLogger := loggerpkg.NewWriterLogger(stderr)
	loggerpkg.Debug(opts.Verbose, appLogger, "settings loaded", map[string]any{"settings": settings.String()})

	reader, closeReader, plainPrompt := newLineReader(stdin, stdout)
	defer closeReader()

	loop, err := chat.New(ctx, settings,
		chat.WithLogger(appLogger),
		chat.WithVerbose(opts.Verbose),
		chat.WithLabels(ui.labels(plainPrompt)),
	)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ui.printHint()
	if err := loop.Run(reader, stdout); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
