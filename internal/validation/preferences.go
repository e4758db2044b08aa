package validation

import (
	"fmt"

	"github.com/terraincognita07/paindiary/internal/models"
)

func ValidatePreferences(preferences models.UserPreferences) Result {
	result := newResult()

	if !timePattern.MatchString(preferences.Reminders.Time) {
		result.addError("reminders.time", CodeInvalidFormat, "reminder time must use 24-hour HH:mm")
	}
	seenDays := make(map[int]struct{}, len(preferences.Reminders.Days))
	for _, day := range preferences.Reminders.Days {
		if day < 0 || day > 6 {
			result.addError("reminders.days", CodeOutOfRange, fmt.Sprintf("reminder day %d must be between 0 and 6", day))
			continue
		}
		if _, repeated := seenDays[day]; repeated {
			result.addError("reminders.days", CodeRepeated, fmt.Sprintf("reminder day %d is listed twice", day))
		}
		seenDays[day] = struct{}{}
	}
	if preferences.Reminders.Enabled && len(preferences.Reminders.Days) == 0 {
		result.addWarning("reminders.days", CodeRequired, "reminders are enabled without any days selected")
	}

	switch preferences.Export.DefaultFormat {
	case models.ExportFormatJSON, models.ExportFormatCSV:
	default:
		result.addError("export.defaultFormat", CodeInvalidOption, fmt.Sprintf("unknown export format %q", preferences.Export.DefaultFormat))
	}

	if preferences.Privacy.BackupRetentionDays < 0 {
		result.addError("privacy.backupRetentionDays", CodeOutOfRange, "backup retention must not be negative")
	}

	switch preferences.Display.Theme {
	case models.ThemeLight, models.ThemeDark, models.ThemeSystem:
	default:
		result.addError("display.theme", CodeInvalidOption, fmt.Sprintf("unknown theme %q", preferences.Display.Theme))
	}
	switch preferences.Display.DateFormat {
	case models.DateFormatISO, models.DateFormatEU, models.DateFormatUS:
	default:
		result.addError("display.dateFormat", CodeInvalidOption, fmt.Sprintf("unknown date format %q", preferences.Display.DateFormat))
	}
	if preferences.Display.Language == "" {
		result.addError("display.language", CodeRequired, "language is required")
	}

	return result
}
