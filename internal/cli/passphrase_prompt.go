package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var errPassphraseMismatch = errors.New("passphrases do not match")

// passphrasePrompt reads a passphrase without echo from a terminal, or as
// one plain line from piped input.
type passphrasePrompt struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func newPassphrasePrompt(in io.Reader, out io.Writer) *passphrasePrompt {
	return &passphrasePrompt{in: in, out: out, reader: bufio.NewReader(in)}
}

func (prompt *passphrasePrompt) terminal() (*os.File, bool) {
	file, ok := prompt.in.(*os.File)
	if !ok || !isTerminal(file) {
		return nil, false
	}
	return file, true
}

func (prompt *passphrasePrompt) readConfirmed() (string, error) {
	file, interactive := prompt.terminal()
	if !interactive {
		return prompt.readLine()
	}

	fmt.Fprint(prompt.out, "Passphrase: ")
	first, err := readSecretNoEcho(file)
	fmt.Fprintln(prompt.out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(prompt.out, "Repeat passphrase: ")
	second, err := readSecretNoEcho(file)
	fmt.Fprintln(prompt.out)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errPassphraseMismatch
	}
	return first, nil
}

func (prompt *passphrasePrompt) readLine() (string, error) {
	return readTrimmedLine(prompt.reader)
}

func readTrimmedLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
