package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers from the command's input. One prompter must serve
// all prompts of a command so buffered input is not lost between them.
type prompter struct {
	in  io.Reader
	r   *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, r: bufio.NewReader(in), out: out}
}

// line asks for a visible value.
func (p *prompter) line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	s, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.TrimSpace(prompt), ":"), err)
	}
	return strings.TrimSpace(s), nil
}

// password asks for a secret without echo when reading from a terminal.
func (p *prompter) password(prompt string) (string, error) {
	// Check if stdin is a terminal
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, prompt)
		// Read password without echo
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out) // Add newline after password input
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Fallback for non-terminal input (e.g., piped input)
	s, err := p.line(prompt)
	if err != nil {
		return "", err
	}
	return s, nil
}

// confirm asks a yes/no question; anything but y or yes is no.
func (p *prompter) confirm(prompt string) (bool, error) {
	s, err := p.line(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(s) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
