package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/terraincognita07/paindiary/internal/models"
)

// MaxInputLength is the hard cap applied by SanitizeInput.
const MaxInputLength = 5000

var (
	scriptBlockPattern    = regexp.MustCompile(`(?is)<\s*script\b[^>]*>.*?<\s*/\s*script\s*>`)
	scriptTagPattern      = regexp.MustCompile(`(?i)<\s*/?\s*script\b[^>]*>?`)
	eventHandlerPattern   = regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]*)`)
	protocolPattern       = regexp.MustCompile(`(?i)(?:javascript|vbscript|data)\s*:`)
	embeddedMarkupPattern = regexp.MustCompile(`(?i)<\s*/?\s*(?:iframe|object|embed|style|link|meta)\b[^>]*>?`)
)

// SanitizeInput removes script-like constructs and truncates to
// MaxInputLength runes. It never fails; hostile input only degrades.
func SanitizeInput(text string) string {
	cleaned := scriptBlockPattern.ReplaceAllString(text, "")
	cleaned = scriptTagPattern.ReplaceAllString(cleaned, "")
	cleaned = embeddedMarkupPattern.ReplaceAllString(cleaned, "")
	cleaned = eventHandlerPattern.ReplaceAllString(cleaned, "")
	for protocolPattern.MatchString(cleaned) {
		cleaned = protocolPattern.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, cleaned)
	cleaned = strings.TrimSpace(cleaned)
	return truncateRunes(cleaned, MaxInputLength)
}

// SanitizeDraft runs SanitizeInput over every free-text field and trims
// enum values.
func SanitizeDraft(draft models.RecordDraft) models.RecordDraft {
	draft.Date = strings.TrimSpace(draft.Date)
	draft.Time = strings.TrimSpace(draft.Time)
	draft.PainTypes = trimAll(draft.PainTypes)
	draft.Locations = trimAll(draft.Locations)
	draft.Symptoms = trimAll(draft.Symptoms)
	draft.MenstrualStatus = strings.TrimSpace(draft.MenstrualStatus)
	draft.Notes = SanitizeInput(draft.Notes)

	if draft.Medications != nil {
		medications := make([]models.Medication, 0, len(draft.Medications))
		for _, medication := range draft.Medications {
			medications = append(medications, models.Medication{
				Name:   SanitizeInput(medication.Name),
				Dosage: SanitizeInput(medication.Dosage),
				Timing: SanitizeInput(medication.Timing),
			})
		}
		draft.Medications = medications
	}
	if draft.LifestyleFactors != nil {
		factors := make([]models.LifestyleFactor, 0, len(draft.LifestyleFactors))
		for _, factor := range draft.LifestyleFactors {
			factors = append(factors, models.LifestyleFactor{
				Factor: strings.TrimSpace(factor.Factor),
				Value:  factor.Value,
			})
		}
		draft.LifestyleFactors = factors
	}
	return draft
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		trimmed = append(trimmed, strings.TrimSpace(value))
	}
	return trimmed
}

func truncateRunes(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	count := 0
	for index := range value {
		if count == limit {
			return value[:index]
		}
		count++
	}
	return value
}
