package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/terraincognita07/paindiary/internal/models"
)

const (
	MaxNotesLength            = 2000
	MaxPainTypes              = 5
	MaxLocations              = 5
	MaxSymptoms               = 10
	MaxMedications            = 10
	MaxLifestyleFactors       = 10
	MaxMedicationNameLength   = 100
	MaxMedicationDosageLength = 50
	MaxMedicationTimingLength = 50
)

var (
	timePattern       = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	defaultMinimumDay = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
)

type Options struct {
	// MinDate is the earliest accepted record date.
	MinDate  time.Time
	Now      func() time.Time
	Location *time.Location
}

// Validator holds the clock and horizon the date rules depend on. All
// checks are otherwise pure.
type Validator struct {
	minDate  time.Time
	now      func() time.Time
	location *time.Location
}

func NewValidator(options Options) *Validator {
	if options.Location == nil {
		options.Location = time.UTC
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.MinDate.IsZero() {
		options.MinDate = defaultMinimumDay
	}
	minimum := options.MinDate
	return &Validator{
		minDate:  time.Date(minimum.Year(), minimum.Month(), minimum.Day(), 0, 0, 0, 0, options.Location),
		now:      options.Now,
		location: options.Location,
	}
}

func (validator *Validator) MinDate() time.Time {
	return validator.minDate
}

// ValidateRecord checks a candidate draft. Errors block persistence;
// warnings are advisory.
func (validator *Validator) ValidateRecord(draft models.RecordDraft) Result {
	result := newResult()
	now := validator.now().In(validator.location)

	if draft.PainLevel == nil {
		result.addError("painLevel", CodeRequired, "pain level is required")
	} else if *draft.PainLevel < models.MinPainLevel || *draft.PainLevel > models.MaxPainLevel {
		result.addError("painLevel", CodeOutOfRange, fmt.Sprintf("pain level must be between %d and %d", models.MinPainLevel, models.MaxPainLevel))
	}

	day, dateOK := validator.checkDate(&result, draft.Date, now)
	clockOK := checkTime(&result, draft.Time)
	if dateOK && clockOK {
		if occurredAt, ok := models.CombineDateTime(day.Format(models.DateLayout), draft.Time, validator.location); ok && occurredAt.After(now) {
			result.addError("time", CodeFutureDate, "date and time must not be in the future")
		}
	}

	checkEnumSet(&result, "painTypes", draft.PainTypes, models.PainTypes(), MaxPainTypes)
	checkEnumSet(&result, "locations", draft.Locations, models.PainLocations(), MaxLocations)
	checkEnumSet(&result, "symptoms", draft.Symptoms, models.Symptoms(), MaxSymptoms)

	// An empty status means it was not recorded.
	if draft.MenstrualStatus != "" && !contains(models.MenstrualStatuses(), draft.MenstrualStatus) {
		result.addError("menstrualStatus", CodeInvalidOption, fmt.Sprintf("unknown menstrual status %q", draft.MenstrualStatus))
	}

	if len(draft.Medications) > MaxMedications {
		result.addError("medications", CodeTooMany, fmt.Sprintf("at most %d medications are allowed", MaxMedications))
	}
	for index, medication := range draft.Medications {
		result.merge(fmt.Sprintf("medications[%d]", index), ValidateMedication(medication))
	}

	if draft.Effectiveness != nil && (*draft.Effectiveness < models.MinEffectiveness || *draft.Effectiveness > models.MaxEffectiveness) {
		result.addError("effectiveness", CodeOutOfRange, fmt.Sprintf("effectiveness must be between %d and %d", models.MinEffectiveness, models.MaxEffectiveness))
	}

	if len(draft.LifestyleFactors) > MaxLifestyleFactors {
		result.addError("lifestyleFactors", CodeTooMany, fmt.Sprintf("at most %d lifestyle factors are allowed", MaxLifestyleFactors))
	}
	seenFactors := make(map[string]struct{}, len(draft.LifestyleFactors))
	for index, factor := range draft.LifestyleFactors {
		field := fmt.Sprintf("lifestyleFactors[%d]", index)
		if _, repeated := seenFactors[factor.Factor]; repeated {
			result.addError(field+".factor", CodeRepeated, fmt.Sprintf("lifestyle factor %q is listed twice", factor.Factor))
		}
		seenFactors[factor.Factor] = struct{}{}
		result.merge(field, ValidateLifestyleFactor(factor))
	}

	if utf8.RuneCountInString(draft.Notes) > MaxNotesLength {
		result.addError("notes", CodeTooLong, fmt.Sprintf("notes must be at most %d characters", MaxNotesLength))
	}
	for _, match := range scanSensitive(draft.Notes) {
		result.addWarning("notes", CodeSensitiveData, fmt.Sprintf("notes may contain %s", match))
	}

	if len(draft.Medications) > 0 && draft.Effectiveness == nil {
		result.addWarning("effectiveness", CodeNoEffectiveness, "medications were recorded without an effectiveness rating")
	}
	if len(draft.Medications) > 0 && draft.PainLevel != nil && *draft.PainLevel == 0 {
		result.addWarning("painLevel", CodeZeroPainWithMeds, "pain level is 0 but medications were taken")
	}

	return result
}

func (validator *Validator) checkDate(result *Result, value string, now time.Time) (time.Time, bool) {
	if strings.TrimSpace(value) == "" {
		result.addError("date", CodeRequired, "date is required")
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(models.DateLayout, value, validator.location)
	if err != nil {
		result.addError("date", CodeInvalidFormat, "date must use YYYY-MM-DD")
		return time.Time{}, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, validator.location)
	if day.After(today) {
		result.addError("date", CodeFutureDate, "date must not be in the future")
		return day, false
	}
	if day.Before(validator.minDate) {
		result.addError("date", CodeBeforeMinimum, fmt.Sprintf("date must not be before %s", validator.minDate.Format(models.DateLayout)))
		return day, false
	}
	return day, true
}

func checkTime(result *Result, value string) bool {
	if strings.TrimSpace(value) == "" {
		result.addError("time", CodeRequired, "time is required")
		return false
	}
	if !timePattern.MatchString(value) {
		result.addError("time", CodeInvalidFormat, "time must use 24-hour HH:mm")
		return false
	}
	return true
}

func checkEnumSet(result *Result, field string, values []string, allowed []string, limit int) {
	if len(values) > limit {
		result.addError(field, CodeTooMany, fmt.Sprintf("at most %d selections are allowed", limit))
	}
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		if !contains(allowed, value) {
			result.addError(field, CodeInvalidOption, fmt.Sprintf("unknown option %q", value))
			continue
		}
		if _, repeated := seen[value]; repeated {
			result.addError(field, CodeRepeated, fmt.Sprintf("option %q is selected twice", value))
		}
		seen[value] = struct{}{}
	}
}

// ValidateMedication checks one medication entry on its own.
func ValidateMedication(medication models.Medication) Result {
	result := newResult()
	name := strings.TrimSpace(medication.Name)
	switch {
	case name == "":
		result.addError("name", CodeRequired, "medication name is required")
	case utf8.RuneCountInString(name) > MaxMedicationNameLength:
		result.addError("name", CodeTooLong, fmt.Sprintf("medication name must be at most %d characters", MaxMedicationNameLength))
	}
	if utf8.RuneCountInString(medication.Dosage) > MaxMedicationDosageLength {
		result.addError("dosage", CodeTooLong, fmt.Sprintf("dosage must be at most %d characters", MaxMedicationDosageLength))
	}
	if utf8.RuneCountInString(medication.Timing) > MaxMedicationTimingLength {
		result.addError("timing", CodeTooLong, fmt.Sprintf("timing must be at most %d characters", MaxMedicationTimingLength))
	}
	if name != "" && strings.TrimSpace(medication.Dosage) == "" {
		result.addWarning("dosage", CodeNoDosage, "dosage is empty")
	}
	return result
}

func ValidateLifestyleFactor(factor models.LifestyleFactor) Result {
	result := newResult()
	valueRange, ok := models.LifestyleFactorRanges()[factor.Factor]
	if !ok {
		result.addError("factor", CodeInvalidOption, fmt.Sprintf("unknown lifestyle factor %q", factor.Factor))
		return result
	}
	if math.IsNaN(factor.Value) || !valueRange.Contains(factor.Value) {
		result.addError("value", CodeOutOfRange, fmt.Sprintf("%s must be between %g and %g", factor.Factor, valueRange.Min, valueRange.Max))
	}
	return result
}

func contains(values []string, candidate string) bool {
	for _, value := range values {
		if value == candidate {
			return true
		}
	}
	return false
}
