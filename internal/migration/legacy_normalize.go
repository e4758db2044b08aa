package migration

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/terraincognita07/paindiary/internal/models"
)

var legacyClockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::\d{2}(?:\.\d+)?)?$`)

var legacyTimestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var legacyDateLayouts = []string{
	models.DateLayout,
	"2006/01/02",
	"02.01.2006",
	"01/02/2006",
}

type legacyNormalizer struct {
	options   LegacyOptions
	now       time.Time
	seenIDs   map[string]struct{}
	seenSlots map[string]struct{}
}

func newLegacyNormalizer(options LegacyOptions, now time.Time) *legacyNormalizer {
	return &legacyNormalizer{
		options:   options,
		now:       now,
		seenIDs:   make(map[string]struct{}),
		seenSlots: make(map[string]struct{}),
	}
}

// normalize maps one legacy entry onto the current record shape. Entries
// without any recognizable date cannot be placed on a timeline and are skipped.
func (normalizer *legacyNormalizer) normalize(raw any) (models.PainRecord, bool) {
	entry, ok := raw.(map[string]any)
	if !ok {
		return models.PainRecord{}, false
	}

	date, clock, ok := normalizer.resolveDateTime(entry)
	if !ok {
		return models.PainRecord{}, false
	}

	unmapped := make([]string, 0)
	painTypes, leftover := mapVocabulary(firstPresent(entry, "painTypes", "painType", "types", "type"), legacyPainTypes, fallbackPainType)
	unmapped = appendUnmapped(unmapped, "pain types", leftover)
	locations, leftover := mapVocabulary(firstPresent(entry, "locations", "location", "painLocations", "areas"), legacyLocations, fallbackLocation)
	unmapped = appendUnmapped(unmapped, "locations", leftover)
	symptoms, leftover := mapVocabulary(firstPresent(entry, "symptoms", "symptom", "associatedSymptoms"), legacySymptoms, "")
	unmapped = appendUnmapped(unmapped, "symptoms", leftover)
	factors, leftover := normalizeLifestyleFactors(entry)
	unmapped = appendUnmapped(unmapped, "lifestyle factors", leftover)

	menstrualStatus := ""
	if rawStatus, ok := firstPresent(entry, "menstrualStatus", "menstrualPhase", "cyclePhase", "phase").(string); ok && strings.TrimSpace(rawStatus) != "" {
		if mapped, found := legacyMenstrualStatuses[vocabularyKey(rawStatus)]; found {
			menstrualStatus = mapped
		} else {
			menstrualStatus = fallbackMenstrualStatus
			unmapped = appendUnmapped(unmapped, "menstrual status", []string{rawStatus})
		}
	}

	var adjusted []string
	if free, moved := normalizer.claimSlot(date, clock); moved {
		adjusted = append(adjusted, fmt.Sprintf("Time moved from %s to %s: another legacy entry held the slot", clock, free))
		clock = free
	}

	notes := stringValue(firstPresent(entry, "notes", "note", "comments", "comment", "description"))
	if len(unmapped) > 0 {
		adjusted = append(adjusted, "Unmapped legacy values: "+strings.Join(unmapped, "; "))
	}
	if len(adjusted) > 0 {
		suffix := strings.Join(adjusted, "\n")
		if strings.TrimSpace(notes) == "" {
			notes = suffix
		} else {
			notes = strings.TrimSpace(notes) + "\n" + suffix
		}
	}
	notes = truncateRunes(notes, normalizer.options.MaxNotes)

	createdAt, ok := parseLegacyTimestamp(firstPresent(entry, "createdAt", "created_at", "timestamp"), normalizer.options.Location)
	if !ok {
		createdAt = normalizer.now
	}
	updatedAt, ok := parseLegacyTimestamp(firstPresent(entry, "updatedAt", "updated_at"), normalizer.options.Location)
	if !ok || updatedAt.Before(createdAt) {
		updatedAt = createdAt
	}

	return models.PainRecord{
		ID:               normalizer.resolveID(entry),
		Date:             date,
		Time:             clock,
		PainLevel:        normalizePainLevel(firstPresent(entry, "painLevel", "intensity", "pain_level", "level", "severity", "pain")),
		PainTypes:        capSet(painTypes, maxLegacyPainTypes),
		Locations:        capSet(locations, maxLegacyLocations),
		Symptoms:         capSet(symptoms, maxLegacySymptoms),
		MenstrualStatus:  menstrualStatus,
		Medications:      normalizeMedications(entry),
		Effectiveness:    normalizeEffectiveness(firstPresent(entry, "effectiveness", "medicationEffectiveness", "relief", "reliefLevel")),
		LifestyleFactors: factors,
		Notes:            notes,
		CreatedAt:        createdAt.UTC(),
		UpdatedAt:        updatedAt.UTC(),
	}, true
}

const (
	maxLegacyPainTypes = 5
	maxLegacyLocations = 5
	maxLegacySymptoms  = 10
)

func (normalizer *legacyNormalizer) resolveID(entry map[string]any) string {
	candidate := ""
	switch typed := entry["id"].(type) {
	case string:
		candidate = strings.TrimSpace(typed)
	case float64:
		candidate = strconv.FormatFloat(typed, 'f', -1, 64)
	}
	if candidate == "" {
		candidate = normalizer.options.NewID()
	}
	for {
		if _, taken := normalizer.seenIDs[candidate]; !taken {
			break
		}
		candidate = normalizer.options.NewID()
	}
	normalizer.seenIDs[candidate] = struct{}{}
	return candidate
}

// claimSlot reserves date and clock for one record. When the slot is already
// held it steps the minute forward, wrapping past midnight within the same
// date, and returns the first free time.
func (normalizer *legacyNormalizer) claimSlot(date string, clock string) (string, bool) {
	start, err := time.Parse(models.TimeLayout, clock)
	if err != nil {
		normalizer.seenSlots[date+" "+clock] = struct{}{}
		return clock, false
	}
	minute := start.Hour()*60 + start.Minute()
	for step := 0; step < 24*60; step++ {
		current := (minute + step) % (24 * 60)
		candidate := fmt.Sprintf("%02d:%02d", current/60, current%60)
		if _, taken := normalizer.seenSlots[date+" "+candidate]; taken {
			continue
		}
		normalizer.seenSlots[date+" "+candidate] = struct{}{}
		return candidate, step > 0
	}
	return clock, false
}

func (normalizer *legacyNormalizer) resolveDateTime(entry map[string]any) (string, string, bool) {
	location := normalizer.options.Location
	date := ""
	clock := ""

	if rawDate, ok := entry["date"].(string); ok {
		rawDate = strings.TrimSpace(rawDate)
		if parsed, ok := parseLegacyDate(rawDate, location); ok {
			date = parsed.Format(models.DateLayout)
		} else if stamp, ok := parseLegacyTimestamp(rawDate, location); ok {
			local := stamp.In(location)
			date = local.Format(models.DateLayout)
			clock = local.Format(models.TimeLayout)
		}
	}
	if date == "" {
		if stamp, ok := parseLegacyTimestamp(firstPresent(entry, "datetime", "timestamp", "createdAt", "created_at"), location); ok {
			local := stamp.In(location)
			date = local.Format(models.DateLayout)
			clock = local.Format(models.TimeLayout)
		}
	}
	if date == "" {
		return "", "", false
	}

	if rawClock, ok := entry["time"].(string); ok {
		if normalized, ok := normalizeClock(rawClock); ok {
			clock = normalized
		}
	}
	if clock == "" {
		clock = models.DefaultRecordTime
	}
	return date, clock, true
}

func parseLegacyDate(value string, location *time.Location) (time.Time, bool) {
	for _, layout := range legacyDateLayouts {
		if parsed, err := time.ParseInLocation(layout, value, location); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func parseLegacyTimestamp(value any, location *time.Location) (time.Time, bool) {
	switch typed := value.(type) {
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return time.Time{}, false
		}
		for _, layout := range legacyTimestampLayouts {
			if parsed, err := time.ParseInLocation(layout, trimmed, location); err == nil {
				return parsed, true
			}
		}
		if millis, err := strconv.ParseInt(trimmed, 10, 64); err == nil && millis > 0 {
			return time.UnixMilli(millis), true
		}
	case float64:
		if typed > 0 && !math.IsInf(typed, 0) {
			return time.UnixMilli(int64(typed)), true
		}
	}
	return time.Time{}, false
}

func normalizeClock(value string) (string, bool) {
	matches := legacyClockPattern.FindStringSubmatch(strings.TrimSpace(value))
	if len(matches) != 3 {
		return "", false
	}
	hours, err := strconv.Atoi(matches[1])
	if err != nil || hours > 23 {
		return "", false
	}
	minutes, err := strconv.Atoi(matches[2])
	if err != nil || minutes > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes), true
}

func normalizePainLevel(value any) int {
	switch typed := value.(type) {
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(typed))
		if level, ok := legacySeverityLevels[trimmed]; ok {
			return level
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return models.MinPainLevel
		}
		return clampScore(parsed, models.MinPainLevel, models.MaxPainLevel)
	default:
		number, ok := asFloat(value)
		if !ok {
			return models.MinPainLevel
		}
		return clampScore(number, models.MinPainLevel, models.MaxPainLevel)
	}
}

func normalizeEffectiveness(value any) *int {
	if value == nil {
		return nil
	}
	number, ok := asFloat(value)
	if !ok {
		if text, isText := value.(string); isText {
			parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
			if err != nil {
				return nil
			}
			number = parsed
		} else {
			return nil
		}
	}
	score := clampScore(number, models.MinEffectiveness, models.MaxEffectiveness)
	return &score
}

func normalizeMedications(entry map[string]any) []models.Medication {
	medications := make([]models.Medication, 0)
	appendMedication := func(name string, dosage string, timing string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		medications = append(medications, models.Medication{
			Name:   name,
			Dosage: strings.TrimSpace(dosage),
			Timing: strings.TrimSpace(timing),
		})
	}

	switch typed := firstPresent(entry, "medications", "medication", "meds", "treatments").(type) {
	case string:
		for _, part := range strings.Split(typed, ",") {
			appendMedication(part, "", "")
		}
	case []any:
		for _, item := range typed {
			switch medication := item.(type) {
			case string:
				appendMedication(medication, "", "")
			case map[string]any:
				appendMedication(
					stringValue(firstPresent(medication, "name", "medication", "drug")),
					stringValue(firstPresent(medication, "dosage", "dose", "amount")),
					stringValue(firstPresent(medication, "timing", "time", "when", "takenAt")),
				)
			}
		}
	case map[string]any:
		appendMedication(
			stringValue(firstPresent(typed, "name", "medication", "drug")),
			stringValue(firstPresent(typed, "dosage", "dose", "amount")),
			stringValue(firstPresent(typed, "timing", "time", "when", "takenAt")),
		)
	}
	return medications
}

func normalizeLifestyleFactors(entry map[string]any) ([]models.LifestyleFactor, []string) {
	ranges := models.LifestyleFactorRanges()
	values := make(map[string]float64)
	unmapped := make([]string, 0)

	record := func(rawName string, rawValue any) {
		name, ok := legacyLifestyleFactors[vocabularyKey(rawName)]
		if !ok {
			unmapped = append(unmapped, rawName)
			return
		}
		number, ok := asFloat(rawValue)
		if !ok {
			if text, isText := rawValue.(string); isText {
				parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
				if err != nil {
					unmapped = append(unmapped, rawName)
					return
				}
				number = parsed
			} else {
				unmapped = append(unmapped, rawName)
				return
			}
		}
		valueRange := ranges[name]
		values[name] = math.Min(math.Max(number, valueRange.Min), valueRange.Max)
	}

	switch typed := entry["lifestyleFactors"].(type) {
	case []any:
		for _, item := range typed {
			factor, ok := item.(map[string]any)
			if !ok {
				continue
			}
			record(stringValue(factor["factor"]), factor["value"])
		}
	case map[string]any:
		for name, value := range typed {
			record(name, value)
		}
	}
	for _, legacyKey := range []string{"sleep", "sleepHours", "stress", "stressLevel", "exercise"} {
		if value, ok := entry[legacyKey]; ok {
			record(legacyKey, value)
		}
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	factors := make([]models.LifestyleFactor, 0, len(names))
	for _, name := range names {
		factors = append(factors, models.LifestyleFactor{Factor: name, Value: values[name]})
	}
	return factors, unmapped
}

// mapVocabulary maps a string or list of strings through table. Values
// missing from the table become fallback (when set) and are reported back.
func mapVocabulary(raw any, table map[string]string, fallback string) ([]string, []string) {
	values := make([]string, 0)
	switch typed := raw.(type) {
	case string:
		for _, part := range strings.Split(typed, ",") {
			values = append(values, part)
		}
	case []any:
		for _, item := range typed {
			if text, ok := item.(string); ok {
				values = append(values, text)
			}
		}
	}

	mapped := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	unmapped := make([]string, 0)
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		target, ok := table[vocabularyKey(trimmed)]
		if !ok {
			unmapped = append(unmapped, trimmed)
			if fallback == "" {
				continue
			}
			target = fallback
		}
		if _, duplicate := seen[target]; duplicate {
			continue
		}
		seen[target] = struct{}{}
		mapped = append(mapped, target)
	}
	return mapped, unmapped
}

func vocabularyKey(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)
	return normalized
}

func appendUnmapped(collected []string, label string, values []string) []string {
	if len(values) == 0 {
		return collected
	}
	return append(collected, label+": "+strings.Join(values, ", "))
}

func capSet(values []string, limit int) []string {
	if len(values) <= limit {
		return values
	}
	return values[:limit]
}

func clampScore(value float64, min int, max int) int {
	if math.IsNaN(value) {
		return min
	}
	rounded := int(math.Round(value))
	if rounded < min {
		return min
	}
	if rounded > max {
		return max
	}
	return rounded
}

func asFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, !math.IsNaN(typed) && !math.IsInf(typed, 0)
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	default:
		return 0, false
	}
}

func firstPresent(entry map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := entry[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return ""
	}
}

func truncateRunes(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
