package migration

import "github.com/terraincognita07/paindiary/internal/models"

// Legacy vocabulary tables. Keys are matched after lower-casing and folding
// spaces and underscores into hyphens. Values missing from a table take the
// documented fallback below; the raw value is kept in the record notes.
const (
	fallbackPainType        = models.PainTypeAching
	fallbackLocation        = models.LocationLowerAbdomen
	fallbackMenstrualStatus = models.MenstrualStatusIrregular
)

var legacyPainTypes = map[string]string{
	"cramping":  models.PainTypeCramping,
	"cramps":    models.PainTypeCramping,
	"cramp":     models.PainTypeCramping,
	"spasm":     models.PainTypeCramping,
	"spasms":    models.PainTypeCramping,
	"aching":    models.PainTypeAching,
	"ache":      models.PainTypeAching,
	"achy":      models.PainTypeAching,
	"sore":      models.PainTypeAching,
	"sharp":     models.PainTypeSharp,
	"shooting":  models.PainTypeSharp,
	"throbbing": models.PainTypeThrobbing,
	"pulsing":   models.PainTypeThrobbing,
	"pounding":  models.PainTypeThrobbing,
	"burning":   models.PainTypeBurning,
	"hot":       models.PainTypeBurning,
	"pressure":  models.PainTypePressure,
	"heavy":     models.PainTypePressure,
	"heaviness": models.PainTypePressure,
	"bloated":   models.PainTypePressure,
	"stabbing":  models.PainTypeStabbing,
	"piercing":  models.PainTypeStabbing,
	"dull":      models.PainTypeDull,
	"dull-ache": models.PainTypeDull,
	"mild":      models.PainTypeDull,
	"constant":  models.PainTypeDull,
}

var legacyLocations = map[string]string{
	"lower-abdomen": models.LocationLowerAbdomen,
	"lower-belly":   models.LocationLowerAbdomen,
	"abdomen":       models.LocationLowerAbdomen,
	"belly":         models.LocationLowerAbdomen,
	"stomach":       models.LocationLowerAbdomen,
	"uterus":        models.LocationLowerAbdomen,
	"upper-abdomen": models.LocationUpperAbdomen,
	"upper-belly":   models.LocationUpperAbdomen,
	"lower-back":    models.LocationLowerBack,
	"back":          models.LocationLowerBack,
	"lumbar":        models.LocationLowerBack,
	"upper-back":    models.LocationUpperBack,
	"shoulders":     models.LocationUpperBack,
	"pelvis":        models.LocationPelvis,
	"pelvic":        models.LocationPelvis,
	"groin":         models.LocationPelvis,
	"thighs":        models.LocationThighs,
	"thigh":         models.LocationThighs,
	"legs":          models.LocationThighs,
	"inner-thighs":  models.LocationThighs,
	"head":          models.LocationHead,
	"headache":      models.LocationHead,
	"temples":       models.LocationHead,
	"breasts":       models.LocationBreasts,
	"breast":        models.LocationBreasts,
	"chest":         models.LocationBreasts,
	"sides":         models.LocationSides,
	"side":          models.LocationSides,
	"flanks":        models.LocationSides,
	"ovaries":       models.LocationSides,
}

// Symptoms have no safe fallback member; unmapped ones are dropped from the
// set and preserved in notes.
var legacySymptoms = map[string]string{
	"nausea":            models.SymptomNausea,
	"nauseous":          models.SymptomNausea,
	"sick":              models.SymptomNausea,
	"vomiting":          models.SymptomVomiting,
	"vomit":             models.SymptomVomiting,
	"throwing-up":       models.SymptomVomiting,
	"diarrhea":          models.SymptomDiarrhea,
	"diarrhoea":         models.SymptomDiarrhea,
	"constipation":      models.SymptomConstipation,
	"constipated":       models.SymptomConstipation,
	"bloating":          models.SymptomBloating,
	"bloated":           models.SymptomBloating,
	"headache":          models.SymptomHeadache,
	"headaches":         models.SymptomHeadache,
	"migraine":          models.SymptomHeadache,
	"fatigue":           models.SymptomFatigue,
	"tired":             models.SymptomFatigue,
	"tiredness":         models.SymptomFatigue,
	"exhaustion":        models.SymptomFatigue,
	"dizziness":         models.SymptomDizziness,
	"dizzy":             models.SymptomDizziness,
	"lightheaded":       models.SymptomDizziness,
	"mood-swings":       models.SymptomMoodSwings,
	"mood":              models.SymptomMoodSwings,
	"moodiness":         models.SymptomMoodSwings,
	"irritability":      models.SymptomIrritability,
	"irritable":         models.SymptomIrritability,
	"anxiety":           models.SymptomAnxiety,
	"anxious":           models.SymptomAnxiety,
	"depression":        models.SymptomDepression,
	"depressed":         models.SymptomDepression,
	"low-mood":          models.SymptomDepression,
	"breast-tenderness": models.SymptomBreastTenderness,
	"tender-breasts":    models.SymptomBreastTenderness,
	"acne":              models.SymptomAcne,
	"breakouts":         models.SymptomAcne,
	"food-cravings":     models.SymptomFoodCravings,
	"cravings":          models.SymptomFoodCravings,
	"insomnia":          models.SymptomInsomnia,
	"sleeplessness":     models.SymptomInsomnia,
	"hot-flashes":       models.SymptomHotFlashes,
	"hot-flushes":       models.SymptomHotFlashes,
	"back-pain":         models.SymptomBackPain,
	"backache":          models.SymptomBackPain,
}

var legacyMenstrualStatuses = map[string]string{
	"before-period": models.MenstrualStatusBeforePeriod,
	"before":        models.MenstrualStatusBeforePeriod,
	"pre-period":    models.MenstrualStatusBeforePeriod,
	"premenstrual":  models.MenstrualStatusBeforePeriod,
	"pms":           models.MenstrualStatusBeforePeriod,
	"luteal":        models.MenstrualStatusBeforePeriod,
	"day-1":         models.MenstrualStatusDay1,
	"day1":          models.MenstrualStatusDay1,
	"first-day":     models.MenstrualStatusDay1,
	"period-day-1":  models.MenstrualStatusDay1,
	"period-start":  models.MenstrualStatusDay1,
	"day-2-3":       models.MenstrualStatusDay23,
	"day-2":         models.MenstrualStatusDay23,
	"day-3":         models.MenstrualStatusDay23,
	"day2":          models.MenstrualStatusDay23,
	"day3":          models.MenstrualStatusDay23,
	"during":        models.MenstrualStatusDay23,
	"during-period": models.MenstrualStatusDay23,
	"period":        models.MenstrualStatusDay23,
	"menstrual":     models.MenstrualStatusDay23,
	"menstruation":  models.MenstrualStatusDay23,
	"day-4-plus":    models.MenstrualStatusDay4Plus,
	"day-4+":        models.MenstrualStatusDay4Plus,
	"day4+":         models.MenstrualStatusDay4Plus,
	"day-4":         models.MenstrualStatusDay4Plus,
	"late-period":   models.MenstrualStatusDay4Plus,
	"period-end":    models.MenstrualStatusDay4Plus,
	"after-period":  models.MenstrualStatusAfterPeriod,
	"after":         models.MenstrualStatusAfterPeriod,
	"post-period":   models.MenstrualStatusAfterPeriod,
	"postmenstrual": models.MenstrualStatusAfterPeriod,
	"follicular":    models.MenstrualStatusAfterPeriod,
	"mid-cycle":     models.MenstrualStatusMidCycle,
	"midcycle":      models.MenstrualStatusMidCycle,
	"ovulation":     models.MenstrualStatusMidCycle,
	"ovulating":     models.MenstrualStatusMidCycle,
	"irregular":     models.MenstrualStatusIrregular,
	"unknown":       models.MenstrualStatusIrregular,
	"not-sure":      models.MenstrualStatusIrregular,
}

var legacyLifestyleFactors = map[string]string{
	"sleep-hours":      models.FactorSleepHours,
	"sleep":            models.FactorSleepHours,
	"sleephours":       models.FactorSleepHours,
	"hours-slept":      models.FactorSleepHours,
	"stress-level":     models.FactorStressLevel,
	"stress":           models.FactorStressLevel,
	"stresslevel":      models.FactorStressLevel,
	"exercise-minutes": models.FactorExerciseMinutes,
	"exercise":         models.FactorExerciseMinutes,
	"activity":         models.FactorExerciseMinutes,
	"caffeine-cups":    models.FactorCaffeineCups,
	"caffeine":         models.FactorCaffeineCups,
	"coffee":           models.FactorCaffeineCups,
	"alcohol-drinks":   models.FactorAlcoholDrinks,
	"alcohol":          models.FactorAlcoholDrinks,
	"water-glasses":    models.FactorWaterGlasses,
	"water":            models.FactorWaterGlasses,
	"hydration":        models.FactorWaterGlasses,
	"screen-hours":     models.FactorScreenHours,
	"screen-time":      models.FactorScreenHours,
}

// Verbal severities used by early versions instead of a 0-10 score.
var legacySeverityLevels = map[string]int{
	"none":       0,
	"minimal":    1,
	"mild":       3,
	"moderate":   5,
	"strong":     7,
	"severe":     8,
	"extreme":    10,
	"unbearable": 10,
}
