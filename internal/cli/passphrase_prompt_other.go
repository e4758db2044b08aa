//go:build !windows && !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package cli

import (
	"errors"
	"os"
)

func isTerminal(*os.File) bool {
	return false
}

func readSecretNoEcho(*os.File) (string, error) {
	return "", errors.New("no-echo input is not supported on this platform")
}
