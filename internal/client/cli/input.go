package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompt prints label and reads one trimmed line. A final line without a
// newline is accepted.
func (a *App) prompt(label string) (string, error) {
	a.printf("%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// passwordPrompt reads a password without echo on a terminal and as a plain
// line otherwise.
func (a *App) passwordPrompt() (string, error) {
	if a.rawInput == nil {
		return a.prompt("Password")
	}
	a.printf("Password: ")
	pw, err := term.ReadPassword(int(a.rawInput.Fd()))
	a.printf("\n")
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

func requireValue(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}
