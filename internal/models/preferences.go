package models

const (
	ExportFormatJSON = "json"
	ExportFormatCSV  = "csv"

	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"

	DateFormatISO = "YYYY-MM-DD"
	DateFormatEU  = "DD.MM.YYYY"
	DateFormatUS  = "MM/DD/YYYY"

	DefaultBackupRetentionDays = 7
)

type ReminderSettings struct {
	Enabled bool   `json:"enabled"`
	Time    string `json:"time"`
	Days    []int  `json:"days"`
}

type ExportSettings struct {
	DefaultFormat   string `json:"defaultFormat"`
	IncludeNotes    bool   `json:"includeNotes"`
	IncludeMetadata bool   `json:"includeMetadata"`
}

type PrivacySettings struct {
	BackupRetentionDays int  `json:"backupRetentionDays"`
	AnonymizeExports    bool `json:"anonymizeExports"`
}

type DisplaySettings struct {
	Theme      string `json:"theme"`
	Language   string `json:"language"`
	DateFormat string `json:"dateFormat"`
	Use24Hour  bool   `json:"use24Hour"`
}

type UserPreferences struct {
	Reminders ReminderSettings `json:"reminders"`
	Export    ExportSettings   `json:"export"`
	Privacy   PrivacySettings  `json:"privacy"`
	Display   DisplaySettings  `json:"display"`
}

func DefaultUserPreferences() UserPreferences {
	return UserPreferences{
		Reminders: ReminderSettings{
			Enabled: false,
			Time:    "20:00",
			Days:    []int{0, 1, 2, 3, 4, 5, 6},
		},
		Export: ExportSettings{
			DefaultFormat:   ExportFormatJSON,
			IncludeNotes:    true,
			IncludeMetadata: true,
		},
		Privacy: PrivacySettings{
			BackupRetentionDays: DefaultBackupRetentionDays,
			AnonymizeExports:    false,
		},
		Display: DisplaySettings{
			Theme:      ThemeSystem,
			Language:   "en",
			DateFormat: DateFormatISO,
			Use24Hour:  true,
		},
	}
}
