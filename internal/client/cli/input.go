package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrEmptyInput is returned when a required registration or login field is
// left blank.
var ErrEmptyInput = errors.New("value is required")

// Terminal seams, replaced in tests.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// PromptField asks for one account field ("Enter username", "Enter email")
// and reads the answer from reader. Surrounding blanks are trimmed and an
// empty answer is ErrEmptyInput. A last line without a newline still counts.
//
// The prompt renders as:
//
//	Enter username
//	> _
func PromptField(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	return readField(reader)
}

func readField(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	v := strings.TrimSpace(line)
	if v == "" {
		return "", ErrEmptyInput
	}
	return v, nil
}

// PromptPassword asks for the account password. On a terminal it is read
// without echo; when stdin is piped the next line of reader is used, so
// register and login can be scripted. The caller wipes the result.
func PromptPassword(reader *bufio.Reader, w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, "Enter password: "); err != nil {
		return nil, err
	}

	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		pw, err := readField(reader)
		fmt.Fprintln(w)
		if err != nil {
			return nil, err
		}
		return []byte(pw), nil
	}

	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	if len(pw) == 0 {
		return nil, ErrEmptyInput
	}
	return pw, nil
}
