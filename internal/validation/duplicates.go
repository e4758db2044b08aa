package validation

import "github.com/terraincognita07/paindiary/internal/models"

// CheckForDuplicates reports whether another record already occupies the
// same date and time slot.
func CheckForDuplicates(record models.PainRecord, existing []models.PainRecord) bool {
	_, found := FindDuplicate(record, existing)
	return found
}

// FindDuplicate returns the record sharing record's date and time under a
// different id.
func FindDuplicate(record models.PainRecord, existing []models.PainRecord) (models.PainRecord, bool) {
	for _, candidate := range existing {
		if candidate.ID == record.ID {
			continue
		}
		if candidate.Date == record.Date && candidate.Time == record.Time {
			return candidate, true
		}
	}
	return models.PainRecord{}, false
}
