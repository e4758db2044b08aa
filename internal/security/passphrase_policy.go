package security

import (
	"errors"
	"unicode"
)

const MinPassphraseLength = 8

var ErrWeakPassphrase = errors.New("weak passphrase")

// ValidatePassphraseStrength requires MinPassphraseLength runes drawn from
// at least two of: letters, digits, everything else.
func ValidatePassphraseStrength(passphrase string) error {
	if len([]rune(passphrase)) < MinPassphraseLength {
		return ErrWeakPassphrase
	}

	hasLetter := false
	hasDigit := false
	hasOther := false
	for _, char := range passphrase {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		default:
			hasOther = true
		}
	}

	classes := 0
	for _, present := range []bool{hasLetter, hasDigit, hasOther} {
		if present {
			classes++
		}
	}
	if classes >= 2 {
		return nil
	}
	return ErrWeakPassphrase
}
