package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	configpkg "github.com/minhyannv/ferris-chat-go/pkg/config"
)

// cliOptions are the command-line flags. Everything else lives in the
// settings file and its environment overrides.
type cliOptions struct {
	ConfigPath string
	Verbose    bool
	NoColor    bool
}

func parseCLIOptions(args []string, stderr io.Writer) (cliOptions, error) {
	fs := flag.NewFlagSet("ferris-chat", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", configpkg.DefaultPath, "Settings file; without an extension .toml, .yaml, .yml and .json are tried")
	verbose := fs.Bool("verbose", false, "Verbose request logging")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: ferris-chat [flags]\n\n")
		fs.PrintDefaults()
		_, _ = fmt.Fprintf(stderr, "\nSettings can be overridden with %s style variables.\n", configpkg.EnvName("model"))
	}
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	return cliOptions{
		ConfigPath: strings.TrimSpace(*configPath),
		Verbose:    *verbose,
		NoColor:    *noColor,
	}, nil
}
