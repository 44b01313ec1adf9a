package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/minhyannv/ferris-chat-go/pkg/chat"
)

const (
	welcomeMessage = "Welcome to ferris-chat with Azure OpenAI, ask me anything!"
	usageHint      = "Type your messages and press Enter. Type 'exit' to quit."
	bannerWidth    = 44
)

const crab = `        \
         \
            _~^~^~_
        \) /  o o  \ (/
          '_   -   _'
          / '-----' \`

// console renders the decorative parts of the session.
type console struct {
	out     io.Writer
	output  *termenv.Output
	profile termenv.Profile
}

func newConsole(out io.Writer, colors bool) *console {
	profile := termenv.Ascii
	if colors {
		profile = termenv.ANSI
	}
	return &console{
		out:     out,
		output:  termenv.NewOutput(out, termenv.WithProfile(profile)),
		profile: profile,
	}
}

// colorsEnabled reports whether out is a terminal that accepts color.
func colorsEnabled(out io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *console) style(s, color string, bold bool) string {
	st := c.output.String(s).Foreground(c.output.Color(color))
	if bold {
		st = st.Bold()
	}
	return st.String()
}

// banner is the welcome message in a speech bubble above a crab.
func (c *console) banner(message string) string {
	renderer := lipgloss.NewRenderer(c.out)
	renderer.SetColorProfile(c.profile)

	bubble := renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("6")).
		Padding(0, 1).
		Width(bannerWidth).
		Render(message)
	return bubble + "\n" + crab
}

func (c *console) printBanner() {
	_, _ = fmt.Fprintln(c.out, c.banner(welcomeMessage))
	_, _ = fmt.Fprintln(c.out)
}

func (c *console) printHint() {
	_, _ = fmt.Fprintln(c.out, c.style(usageHint, "6", false))
}

// labels colors the loop's fixed strings. A liner prompt stays plain since
// escape codes break its cursor arithmetic.
func (c *console) labels(plainPrompt bool) chat.Labels {
	labels := chat.DefaultLabels()
	if !plainPrompt {
		labels.UserPrompt = c.style(strings.TrimSpace(labels.UserPrompt), "4", true) + " "
	}
	labels.Assistant = c.style(strings.TrimSpace(labels.Assistant), "2", true) + " "
	labels.Farewell = c.style(labels.Farewell, "2", true)
	return labels
}

// linerReader reads lines with editing and in-memory history.
type linerReader struct {
	state *liner.State
}

func newLinerReader() *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &linerReader{state: state}
}

func (r *linerReader) ReadLine(prompt string) (string, error) {
	line, err := r.state.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", io.EOF
		}
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		r.state.AppendHistory(line)
	}
	return line, nil
}

func (r *linerReader) Close() error {
	return r.state.Close()
}

// newLineReader picks liner for an interactive stdin and a buffered reader otherwise.
func newLineReader(in io.Reader, out io.Writer) (chat.LineReader, func(), bool) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r := newLinerReader()
		return r, func() { _ = r.Close() }, true
	}
	return chat.NewBufferedReader(in, out), func() {}, false
}
