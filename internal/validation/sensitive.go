package validation

import (
	"regexp"
	"strings"
)

type sensitivePattern struct {
	label   string
	pattern *regexp.Regexp
	check   func(match string) bool
}

var sensitivePatterns = []sensitivePattern{
	{
		label:   "an identity number",
		pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b|\b[A-Z]{2}\d{6}[A-D]\b`),
	},
	{
		label:   "a card number",
		pattern: regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`),
		check:   luhnValid,
	},
	{
		label:   "an email address",
		pattern: regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`),
	},
	{
		label:   "a phone number",
		pattern: regexp.MustCompile(`(?:\+\d{1,3}[ .-]?)?\(?\d{3}\)?[ .-]\d{3}[ .-]\d{4}\b`),
	},
}

// scanSensitive lists the kinds of sensitive data text appears to contain.
// Matches are heuristic and only ever produce warnings.
func scanSensitive(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	found := make([]string, 0)
	for _, candidate := range sensitivePatterns {
		for _, match := range candidate.pattern.FindAllString(text, -1) {
			if candidate.check == nil || candidate.check(match) {
				found = append(found, candidate.label)
				break
			}
		}
	}
	return found
}

func luhnValid(value string) bool {
	digits := make([]int, 0, len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 {
		return false
	}
	sum := 0
	double := false
	for index := len(digits) - 1; index >= 0; index-- {
		digit := digits[index]
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}
