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

var readPassword = term.ReadPassword

// GetSimpleText shows prompt and returns one trimmed line. A last line
// without a newline is accepted.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	fmt.Fprintf(w, "%s\n> ", prompt)
	line, err := reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetPassword reads a password from the terminal without echo. Callers
// wipe the returned bytes.
func GetPassword(prompt string, w io.Writer) ([]byte, error) {
	fmt.Fprintf(w, "%s: ", prompt)
	defer fmt.Fprintln(w)
	return readPassword(int(os.Stdin.Fd()))
}

// GetMultiline collects lines up to the first empty one and joins them.
func GetMultiline(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	fmt.Fprintf(w, "%s\n(empty line to finish)\n", prompt)
	lines, err := readLines(reader)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func readLines(reader *bufio.Reader) ([]string, error) {
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			lines = append(lines, line)
		}
		if line == "" || err != nil {
			return lines, nil
		}
	}
}

// GetFields prompts for "name=value" lines ending on an empty line and
// returns them as a map. Names and values are trimmed; later lines win.
func GetFields(reader *bufio.Reader, prompt string, w io.Writer) (map[string]string, error) {
	fmt.Fprintf(w, "%s\nOne name=value per line (empty line to finish)\n", prompt)
	lines, err := readLines(reader)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(lines))
	for _, line := range lines {
		name, value, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed line %q, expected name=value", line)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}
