/*
Package calculator derives daily nutrition targets from a user's health
profile. Everything in this package is deterministic math: BMR via the
Mifflin-St Jeor equation, TDEE via activity multipliers, and a goal-adjusted
macro split. No I/O, no randomness.
*/
package calculator

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidProfile is returned when a profile fails range or enum checks.
// Handlers map it to a 422 response.
var ErrInvalidProfile = errors.New("invalid profile")

// activityMultipliers maps activity level strings to their TDEE multiplier.
// This is the single source of truth for valid activity levels; it is also
// used for input validation. The ordering is strictly increasing.
var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// ActivityLevels lists the recognized levels from least to most active.
var ActivityLevels = []string{"sedentary", "light", "moderate", "active", "very_active"}

// Goal calorie offsets applied to TDEE. weight_loss takes precedence over
// muscle_gain when both are supplied; this is a policy choice, not a derived
// fact.
const (
	weightLossOffset = -500
	muscleGainOffset = +300
)

// Mifflin-St Jeor sex constants. When sex is not supplied we use the midpoint
// of the male (+5) and female (-161) adjustments.
const (
	sexAdjustMale    = 5
	sexAdjustFemale  = -161
	sexAdjustNeutral = -78
)

// Calories per gram of each macronutrient.
const (
	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9
)

// Profile is the immutable input to the calculator. Age in years, weight in
// kg, height in cm.
type Profile struct {
	Age           int      `json:"age"`
	WeightKG      float64  `json:"weight"`
	HeightCM      float64  `json:"height"`
	Sex           string   `json:"sex,omitempty"` // "male", "female" or empty
	ActivityLevel string   `json:"activity_level"`
	Goals         []string `json:"goals"`
	Restrictions  []string `json:"dietary_restrictions,omitempty"`
	Preferences   []string `json:"meal_preferences,omitempty"`
}

// Targets holds the computed daily nutrition targets. All values are rounded
// to whole units.
type Targets struct {
	BMR        int     `json:"bmr"`
	TDEE       int     `json:"tdee"`
	Calories   int     `json:"calories"`
	ProteinG   int     `json:"protein_g"`
	CarbsG     int     `json:"carbs_g"`
	FatG       int     `json:"fat_g"`
	FiberG     int     `json:"fiber_g"`
	HydrationL float64 `json:"hydration_liters"`
}

// knownGoals gates the goals enum. Unknown goals fail validation rather than
// being silently ignored.
var knownGoals = map[string]bool{
	"weight_loss": true,
	"muscle_gain": true,
	"maintenance": true,
	"endurance":   true,
}

// Validate checks ranges and enum membership. It wraps ErrInvalidProfile so
// callers can use errors.Is.
func (p Profile) Validate() error {
	if p.Age <= 0 {
		return fmt.Errorf("%w: age must be positive, got %d", ErrInvalidProfile, p.Age)
	}
	if p.WeightKG <= 0 {
		return fmt.Errorf("%w: weight must be positive, got %.1f", ErrInvalidProfile, p.WeightKG)
	}
	if p.HeightCM <= 0 {
		return fmt.Errorf("%w: height must be positive, got %.1f", ErrInvalidProfile, p.HeightCM)
	}
	if _, ok := activityMultipliers[p.ActivityLevel]; !ok {
		return fmt.Errorf("%w: unknown activity level %q", ErrInvalidProfile, p.ActivityLevel)
	}
	for _, g := range p.Goals {
		if !knownGoals[g] {
			return fmt.Errorf("%w: unknown goal %q", ErrInvalidProfile, g)
		}
	}
	if p.Sex != "" && p.Sex != "male" && p.Sex != "female" {
		return fmt.Errorf("%w: sex must be \"male\", \"female\" or empty, got %q", ErrInvalidProfile, p.Sex)
	}
	return nil
}

// HasGoal reports whether the profile lists the given goal.
func (p Profile) HasGoal(goal string) bool {
	for _, g := range p.Goals {
		if g == goal {
			return true
		}
	}
	return false
}

// PrimaryGoal resolves the goal precedence order: weight_loss beats
// muscle_gain beats everything else.
func (p Profile) PrimaryGoal() string {
	switch {
	case p.HasGoal("weight_loss"):
		return "weight_loss"
	case p.HasGoal("muscle_gain"):
		return "muscle_gain"
	default:
		return "maintenance"
	}
}

// Compute derives Targets from the profile. It is a total function apart from
// profile validation: same input always produces byte-identical output.
func Compute(p Profile) (Targets, error) {
	if err := p.Validate(); err != nil {
		return Targets{}, err
	}

	bmr := bmrMifflinStJeor(p)
	tdee := bmr * activityMultipliers[p.ActivityLevel]

	calories := tdee
	switch p.PrimaryGoal() {
	case "weight_loss":
		calories += weightLossOffset
	case "muscle_gain":
		calories += muscleGainOffset
	}
	// A deficit must never push the target to or below zero.
	if calories < 1 {
		calories = 1
	}

	// Protein is anchored on body weight (g/kg), fat on a fixed fraction of
	// calories, carbs take the remainder. Multipliers follow the goal.
	proteinPerKG := 2.2
	fatFraction := 0.25
	switch p.PrimaryGoal() {
	case "weight_loss":
		fatFraction = 0.30
	case "muscle_gain":
		fatFraction = 0.20
	case "maintenance":
		proteinPerKG = 1.8
	}

	proteinG := p.WeightKG * proteinPerKG
	fatG := calories * fatFraction / kcalPerGramFat
	carbKcal := calories - proteinG*kcalPerGramProtein - fatG*kcalPerGramFat
	if carbKcal < 0 {
		carbKcal = 0
	}
	carbsG := carbKcal / kcalPerGramCarbs

	return Targets{
		BMR:        int(math.Round(bmr)),
		TDEE:       int(math.Round(tdee)),
		Calories:   int(math.Round(calories)),
		ProteinG:   int(math.Round(proteinG)),
		CarbsG:     int(math.Round(carbsG)),
		FatG:       int(math.Round(fatG)),
		FiberG:     int(math.Round(p.WeightKG * 0.5)),
		HydrationL: math.Round(p.WeightKG*0.033*10) / 10,
	}, nil
}

// bmrMifflinStJeor computes resting energy expenditure. The sex constant is
// +5 for male, -161 for female, and the midpoint -78 when sex is unknown.
func bmrMifflinStJeor(p Profile) float64 {
	bmr := 10*p.WeightKG + 6.25*p.HeightCM - 5*float64(p.Age)
	switch strings.ToLower(p.Sex) {
	case "male":
		bmr += sexAdjustMale
	case "female":
		bmr += sexAdjustFemale
	default:
		bmr += sexAdjustNeutral
	}
	return bmr
}
