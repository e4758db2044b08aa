package models

const (
	PainTypeCramping  = "cramping"
	PainTypeAching    = "aching"
	PainTypeSharp     = "sharp"
	PainTypeThrobbing = "throbbing"
	PainTypeBurning   = "burning"
	PainTypePressure  = "pressure"
	PainTypeStabbing  = "stabbing"
	PainTypeDull      = "dull"
)

const (
	LocationLowerAbdomen = "lower-abdomen"
	LocationUpperAbdomen = "upper-abdomen"
	LocationLowerBack    = "lower-back"
	LocationUpperBack    = "upper-back"
	LocationPelvis       = "pelvis"
	LocationThighs       = "thighs"
	LocationHead         = "head"
	LocationBreasts      = "breasts"
	LocationSides        = "sides"
)

const (
	SymptomNausea           = "nausea"
	SymptomVomiting         = "vomiting"
	SymptomDiarrhea         = "diarrhea"
	SymptomConstipation     = "constipation"
	SymptomBloating         = "bloating"
	SymptomHeadache         = "headache"
	SymptomFatigue          = "fatigue"
	SymptomDizziness        = "dizziness"
	SymptomMoodSwings       = "mood-swings"
	SymptomIrritability     = "irritability"
	SymptomAnxiety          = "anxiety"
	SymptomDepression       = "depression"
	SymptomBreastTenderness = "breast-tenderness"
	SymptomAcne             = "acne"
	SymptomFoodCravings     = "food-cravings"
	SymptomInsomnia         = "insomnia"
	SymptomHotFlashes       = "hot-flashes"
	SymptomBackPain         = "back-pain"
)

const (
	MenstrualStatusBeforePeriod = "before-period"
	MenstrualStatusDay1         = "day-1"
	MenstrualStatusDay23        = "day-2-3"
	MenstrualStatusDay4Plus     = "day-4-plus"
	MenstrualStatusAfterPeriod  = "after-period"
	MenstrualStatusMidCycle     = "mid-cycle"
	MenstrualStatusIrregular    = "irregular"
)

const (
	FactorSleepHours      = "sleep-hours"
	FactorStressLevel     = "stress-level"
	FactorExerciseMinutes = "exercise-minutes"
	FactorCaffeineCups    = "caffeine-cups"
	FactorAlcoholDrinks   = "alcohol-drinks"
	FactorWaterGlasses    = "water-glasses"
	FactorScreenHours     = "screen-hours"
)

type ValueRange struct {
	Min float64
	Max float64
}

func (valueRange ValueRange) Contains(value float64) bool {
	return value >= valueRange.Min && value <= valueRange.Max
}

func PainTypes() []string {
	return []string{
		PainTypeCramping,
		PainTypeAching,
		PainTypeSharp,
		PainTypeThrobbing,
		PainTypeBurning,
		PainTypePressure,
		PainTypeStabbing,
		PainTypeDull,
	}
}

func PainLocations() []string {
	return []string{
		LocationLowerAbdomen,
		LocationUpperAbdomen,
		LocationLowerBack,
		LocationUpperBack,
		LocationPelvis,
		LocationThighs,
		LocationHead,
		LocationBreasts,
		LocationSides,
	}
}

func Symptoms() []string {
	return []string{
		SymptomNausea,
		SymptomVomiting,
		SymptomDiarrhea,
		SymptomConstipation,
		SymptomBloating,
		SymptomHeadache,
		SymptomFatigue,
		SymptomDizziness,
		SymptomMoodSwings,
		SymptomIrritability,
		SymptomAnxiety,
		SymptomDepression,
		SymptomBreastTenderness,
		SymptomAcne,
		SymptomFoodCravings,
		SymptomInsomnia,
		SymptomHotFlashes,
		SymptomBackPain,
	}
}

func MenstrualStatuses() []string {
	return []string{
		MenstrualStatusBeforePeriod,
		MenstrualStatusDay1,
		MenstrualStatusDay23,
		MenstrualStatusDay4Plus,
		MenstrualStatusAfterPeriod,
		MenstrualStatusMidCycle,
		MenstrualStatusIrregular,
	}
}

// LifestyleFactorRanges lists the accepted value range per factor.
func LifestyleFactorRanges() map[string]ValueRange {
	return map[string]ValueRange{
		FactorSleepHours:      {Min: 0, Max: 24},
		FactorStressLevel:     {Min: 0, Max: 10},
		FactorExerciseMinutes: {Min: 0, Max: 1440},
		FactorCaffeineCups:    {Min: 0, Max: 20},
		FactorAlcoholDrinks:   {Min: 0, Max: 20},
		FactorWaterGlasses:    {Min: 0, Max: 30},
		FactorScreenHours:     {Min: 0, Max: 24},
	}
}
