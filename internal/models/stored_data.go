package models

import "time"

const (
	CurrentSchemaVersion = 1
	DataFormatVersion    = "1.0.0"
)

const (
	RecordsKey        = "pain_tracker_records"
	PreferencesKey    = "pain_tracker_preferences"
	SchemaVersionKey  = "pain_tracker_schema_version"
	MetadataKey       = "pain_tracker_metadata"
	AutoBackupKey     = "pain_tracker_records_backup"
	SnapshotKeyPrefix = "pain_tracker_snapshot_"
)

// PrimaryKeys are the four keys that must exist after initialization.
func PrimaryKeys() []string {
	return []string{RecordsKey, PreferencesKey, SchemaVersionKey, MetadataKey}
}

type StorageMetadata struct {
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
	RecordCount  int       `json:"recordCount"`
	DataSize     int64     `json:"dataSize"`
	Version      string    `json:"version"`
}

type StoredData struct {
	Records       []PainRecord    `json:"records"`
	Preferences   UserPreferences `json:"preferences"`
	SchemaVersion int             `json:"schemaVersion"`
	LastBackup    *time.Time      `json:"lastBackup,omitempty"`
	Metadata      StorageMetadata `json:"metadata"`
}

type AutoBackup struct {
	CreatedAt     time.Time    `json:"createdAt"`
	SchemaVersion int          `json:"schemaVersion"`
	Records       []PainRecord `json:"records"`
}

type KeyValueEntry struct {
	Key       string    `gorm:"primaryKey;column:entry_key"`
	Payload   []byte    `gorm:"not null;column:payload"`
	SizeBytes int64     `gorm:"not null;default:0;column:size_bytes"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (KeyValueEntry) TableName() string {
	return "kv_entries"
}
