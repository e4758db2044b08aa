package models

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	MinPainLevel      = 0
	MaxPainLevel      = 10
	MinEffectiveness  = 0
	MaxEffectiveness  = 10
	DefaultRecordTime = "12:00"
)

type Medication struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
	Timing string `json:"timing"`
}

type LifestyleFactor struct {
	Factor string  `json:"factor"`
	Value  float64 `json:"value"`
}

type PainRecord struct {
	ID               string            `json:"id"`
	Date             string            `json:"date"`
	Time             string            `json:"time"`
	PainLevel        int               `json:"painLevel"`
	PainTypes        []string          `json:"painTypes"`
	Locations        []string          `json:"locations"`
	Symptoms         []string          `json:"symptoms"`
	MenstrualStatus  string            `json:"menstrualStatus"`
	Medications      []Medication      `json:"medications"`
	Effectiveness    *int              `json:"effectiveness,omitempty"`
	LifestyleFactors []LifestyleFactor `json:"lifestyleFactors"`
	Notes            string            `json:"notes"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// RecordDraft is the caller-supplied part of a PainRecord. PainLevel is a
// pointer so a missing value can be told apart from a reported zero.
type RecordDraft struct {
	Date             string            `json:"date"`
	Time             string            `json:"time"`
	PainLevel        *int              `json:"painLevel"`
	PainTypes        []string          `json:"painTypes"`
	Locations        []string          `json:"locations"`
	Symptoms         []string          `json:"symptoms"`
	MenstrualStatus  string            `json:"menstrualStatus"`
	Medications      []Medication      `json:"medications"`
	Effectiveness    *int              `json:"effectiveness,omitempty"`
	LifestyleFactors []LifestyleFactor `json:"lifestyleFactors"`
	Notes            string            `json:"notes"`
}

// RecordPatch carries a partial update; nil fields keep the stored value.
type RecordPatch struct {
	Date               *string            `json:"date,omitempty"`
	Time               *string            `json:"time,omitempty"`
	PainLevel          *int               `json:"painLevel,omitempty"`
	PainTypes          *[]string          `json:"painTypes,omitempty"`
	Locations          *[]string          `json:"locations,omitempty"`
	Symptoms           *[]string          `json:"symptoms,omitempty"`
	MenstrualStatus    *string            `json:"menstrualStatus,omitempty"`
	Medications        *[]Medication      `json:"medications,omitempty"`
	Effectiveness      *int               `json:"effectiveness,omitempty"`
	ClearEffectiveness bool               `json:"clearEffectiveness,omitempty"`
	LifestyleFactors   *[]LifestyleFactor `json:"lifestyleFactors,omitempty"`
	Notes              *string            `json:"notes,omitempty"`
}

func (record PainRecord) Draft() RecordDraft {
	painLevel := record.PainLevel
	return RecordDraft{
		Date:             record.Date,
		Time:             record.Time,
		PainLevel:        &painLevel,
		PainTypes:        cloneStrings(record.PainTypes),
		Locations:        cloneStrings(record.Locations),
		Symptoms:         cloneStrings(record.Symptoms),
		MenstrualStatus:  record.MenstrualStatus,
		Medications:      cloneMedications(record.Medications),
		Effectiveness:    cloneInt(record.Effectiveness),
		LifestyleFactors: cloneLifestyleFactors(record.LifestyleFactors),
		Notes:            record.Notes,
	}
}

// Apply merges the patch onto a copy of draft.
func (patch RecordPatch) Apply(draft RecordDraft) RecordDraft {
	if patch.Date != nil {
		draft.Date = *patch.Date
	}
	if patch.Time != nil {
		draft.Time = *patch.Time
	}
	if patch.PainLevel != nil {
		draft.PainLevel = cloneInt(patch.PainLevel)
	}
	if patch.PainTypes != nil {
		draft.PainTypes = cloneStrings(*patch.PainTypes)
	}
	if patch.Locations != nil {
		draft.Locations = cloneStrings(*patch.Locations)
	}
	if patch.Symptoms != nil {
		draft.Symptoms = cloneStrings(*patch.Symptoms)
	}
	if patch.MenstrualStatus != nil {
		draft.MenstrualStatus = *patch.MenstrualStatus
	}
	if patch.Medications != nil {
		draft.Medications = cloneMedications(*patch.Medications)
	}
	if patch.ClearEffectiveness {
		draft.Effectiveness = nil
	} else if patch.Effectiveness != nil {
		draft.Effectiveness = cloneInt(patch.Effectiveness)
	}
	if patch.LifestyleFactors != nil {
		draft.LifestyleFactors = cloneLifestyleFactors(*patch.LifestyleFactors)
	}
	if patch.Notes != nil {
		draft.Notes = *patch.Notes
	}
	return draft
}

// NewPainRecord builds a record from an already validated draft.
func NewPainRecord(id string, draft RecordDraft, createdAt time.Time, updatedAt time.Time) PainRecord {
	painLevel := 0
	if draft.PainLevel != nil {
		painLevel = *draft.PainLevel
	}
	return PainRecord{
		ID:               id,
		Date:             draft.Date,
		Time:             draft.Time,
		PainLevel:        painLevel,
		PainTypes:        nonNilStrings(cloneStrings(draft.PainTypes)),
		Locations:        nonNilStrings(cloneStrings(draft.Locations)),
		Symptoms:         nonNilStrings(cloneStrings(draft.Symptoms)),
		MenstrualStatus:  draft.MenstrualStatus,
		Medications:      nonNilMedications(cloneMedications(draft.Medications)),
		Effectiveness:    cloneInt(draft.Effectiveness),
		LifestyleFactors: nonNilLifestyleFactors(cloneLifestyleFactors(draft.LifestyleFactors)),
		Notes:            draft.Notes,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}

func (record PainRecord) Clone() PainRecord {
	cloned := record
	cloned.PainTypes = cloneStrings(record.PainTypes)
	cloned.Locations = cloneStrings(record.Locations)
	cloned.Symptoms = cloneStrings(record.Symptoms)
	cloned.Medications = cloneMedications(record.Medications)
	cloned.Effectiveness = cloneInt(record.Effectiveness)
	cloned.LifestyleFactors = cloneLifestyleFactors(record.LifestyleFactors)
	return cloned
}

// OccurredAt combines Date and Time in location. ok is false when either
// part does not parse.
func (record PainRecord) OccurredAt(location *time.Location) (time.Time, bool) {
	return CombineDateTime(record.Date, record.Time, location)
}

func CombineDateTime(date string, clock string, location *time.Location) (time.Time, bool) {
	if location == nil {
		location = time.UTC
	}
	parsed, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, location)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	result := make([]string, len(values))
	copy(result, values)
	return result
}

func cloneMedications(values []Medication) []Medication {
	if values == nil {
		return nil
	}
	result := make([]Medication, len(values))
	copy(result, values)
	return result
}

func cloneLifestyleFactors(values []LifestyleFactor) []LifestyleFactor {
	if values == nil {
		return nil
	}
	result := make([]LifestyleFactor, len(values))
	copy(result, values)
	return result
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilMedications(values []Medication) []Medication {
	if values == nil {
		return []Medication{}
	}
	return values
}

func nonNilLifestyleFactors(values []LifestyleFactor) []LifestyleFactor {
	if values == nil {
		return []LifestyleFactor{}
	}
	return values
}
