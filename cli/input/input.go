package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal is a terminal used for input. If `nil`, stdin is used.
var Terminal *term.Terminal

// ReadWriter combiner.
type ReadWriter struct {
	io.Reader
	io.Writer
}

// ReadLine reads a line from the input without trailing '\n'.
func ReadLine(prompt string) (string, error) {
	trm := Terminal
	if trm == nil {
		s, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return readLineFallback(prompt)
		}
		defer func() { _ = term.Restore(int(os.Stdin.Fd()), s) }()
		trm = term.NewTerminal(ReadWriter{
			Reader: os.Stdin,
			Writer: os.Stdout,
		}, "")
	}
	return readLine(trm, prompt)
}

func readLineFallback(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readLine(trm *term.Terminal, prompt string) (string, error) {
	_, err := trm.Write([]byte(prompt))
	if err != nil {
		return "", err
	}
	return trm.ReadLine()
}

// ReadPassword reads the user's password with prompt.
func ReadPassword(prompt string) (string, error) {
	if Terminal != nil {
		return Terminal.ReadPassword(prompt)
	}
	return readSecurePassword(prompt)
}

// Confirm asks for a confirmation to proceed with the operation.
func Confirm(what string) error {
	ln, err := ReadLine(fmt.Sprintf("%s. Are you sure? [y/N] ", what))
	if err != nil {
		return err
	}
	ln = strings.ToLower(strings.TrimSpace(ln))
	if len(ln) == 0 || (ln[0] != 'y') {
		return errors.New("operation canceled")
	}
	return nil
}

// ReadNewPassword reads the password twice and checks that both inputs
// match.
func ReadNewPassword(prompt, confirm string) (string, error) {
	pass, err := ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	if len(pass) == 0 {
		return "", errors.New("empty password")
	}
	again, err := ReadPassword(confirm)
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	if pass != again {
		return "", errors.New("passwords don't match")
	}
	return pass, nil
}
