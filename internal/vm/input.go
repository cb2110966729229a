package vm

import (
	"bufio"
	"io"
	"strings"
)

// Input supplies one response line per READ instruction.
type Input interface {
	ReadLine() (string, error)
}

type lineInput struct {
	scanner *bufio.Scanner
}

// LineInput reads READ responses line by line from r.
func LineInput(r io.Reader) Input {
	return &lineInput{scanner: bufio.NewScanner(r)}
}

func (in *lineInput) ReadLine() (string, error) {
	if !in.scanner.Scan() {
		if err := in.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return in.scanner.Text(), nil
}

// Responses is a canned Input, mostly for tests and embedding.
type Responses []string

func (r *Responses) ReadLine() (string, error) {
	if len(*r) == 0 {
		return "", io.EOF
	}
	line := (*r)[0]
	*r = (*r)[1:]
	return strings.TrimRight(line, "\r\n"), nil
}
