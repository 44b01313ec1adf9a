package chat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LineReader reads one line of user input after showing prompt.
// It returns io.EOF when input is exhausted.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

type bufferedReader struct {
	in  *bufio.Reader
	out io.Writer
}

// NewBufferedReader reads lines of any length from in and writes prompts to out.
func NewBufferedReader(in io.Reader, out io.Writer) LineReader {
	if out == nil {
		out = io.Discard
	}
	return &bufferedReader{in: bufio.NewReader(in), out: out}
}

func (r *bufferedReader) ReadLine(prompt string) (string, error) {
	_, _ = fmt.Fprint(r.out, prompt)
	flush(r.out)

	line, err := r.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		// A final line without a newline still counts.
		if line == "" {
			return "", io.EOF
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type flusher interface {
	Flush() error
}

// flush pushes buffered output to the terminal when w buffers.
func flush(w io.Writer) {
	if f, ok := w.(flusher); ok {
		_ = f.Flush()
	}
}
