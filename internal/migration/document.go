package migration

import (
	"encoding/json"
	"math"
)

const (
	FieldRecords       = "records"
	FieldPreferences   = "preferences"
	FieldSchemaVersion = "schemaVersion"
	FieldMetadata      = "metadata"
	FieldLastBackup    = "lastBackup"
)

// Document is the persisted envelope in its decoded JSON form. Steps work on
// documents rather than typed structs because legacy payloads have no fixed shape.
type Document map[string]any

// FromValue converts any JSON-serialisable value into its generic form.
func FromValue(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// Clone returns a deep copy.
func (doc Document) Clone() Document {
	if doc == nil {
		return nil
	}
	cloned := make(Document, len(doc))
	for key, value := range doc {
		cloned[key] = cloneValue(value)
	}
	return cloned
}

// Version reads schemaVersion; absent or malformed versions count as 0.
func (doc Document) Version() int {
	value, ok := doc[FieldSchemaVersion]
	if !ok {
		return 0
	}
	version, ok := asInt(value)
	if !ok || version < 0 {
		return 0
	}
	return version
}

func (doc Document) SetVersion(version int) {
	doc[FieldSchemaVersion] = version
}

// Decode marshals the document into target.
func (doc Document) Decode(target any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

func (doc Document) Encode() ([]byte, error) {
	return json.Marshal(doc)
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		cloned := make(map[string]any, len(typed))
		for key, item := range typed {
			cloned[key] = cloneValue(item)
		}
		return cloned
	case Document:
		return typed.Clone()
	case []any:
		cloned := make([]any, len(typed))
		for index, item := range typed {
			cloned[index] = cloneValue(item)
		}
		return cloned
	case []byte:
		cloned := make([]byte, len(typed))
		copy(cloned, typed)
		return cloned
	default:
		return value
	}
}

func asInt(value any) (int, bool) {
	switch typed := value.(type) {
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return 0, false
		}
		return int(math.Round(typed)), true
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		return int(math.Round(parsed)), true
	default:
		return 0, false
	}
}
