package migration

// ShapeKind tags the on-disk layouts that predate schema versioning.
type ShapeKind int

const (
	ShapeUnknown ShapeKind = iota
	ShapeEmpty
	ShapeArray
	ShapeWrappedRecords
	ShapePainEntries
)

func (kind ShapeKind) String() string {
	switch kind {
	case ShapeEmpty:
		return "empty"
	case ShapeArray:
		return "array"
	case ShapeWrappedRecords:
		return "wrapped-records"
	case ShapePainEntries:
		return "pain-entries"
	default:
		return "unknown"
	}
}

// LegacyShape is the detected variant together with the extracted raw
// entries and, for wrapped layouts, the wrapper object itself.
type LegacyShape struct {
	Kind    ShapeKind
	Entries []any
	Wrapper map[string]any
}

// DetectLegacyShape classifies a raw records payload.
func DetectLegacyShape(raw any) LegacyShape {
	switch typed := raw.(type) {
	case nil:
		return LegacyShape{Kind: ShapeEmpty}
	case []any:
		return LegacyShape{Kind: ShapeArray, Entries: typed}
	case map[string]any:
		if entries, ok := typed["records"].([]any); ok {
			return LegacyShape{Kind: ShapeWrappedRecords, Entries: entries, Wrapper: typed}
		}
		if entries, ok := typed["painEntries"].([]any); ok {
			return LegacyShape{Kind: ShapePainEntries, Entries: entries, Wrapper: typed}
		}
		if _, hasRecords := typed["records"]; hasRecords && typed["records"] == nil {
			return LegacyShape{Kind: ShapeWrappedRecords, Wrapper: typed}
		}
		if _, hasEntries := typed["painEntries"]; hasEntries && typed["painEntries"] == nil {
			return LegacyShape{Kind: ShapePainEntries, Wrapper: typed}
		}
		return LegacyShape{Kind: ShapeUnknown, Wrapper: typed}
	case Document:
		return DetectLegacyShape(map[string]any(typed))
	default:
		return LegacyShape{Kind: ShapeUnknown}
	}
}
