package planner

import "healthcoach/internal/calculator"

// Supplement is one supplement recommendation in a nutrition summary.
type Supplement struct {
	Name    string `json:"name"`
	Dosage  string `json:"dosage"`
	Timing  string `json:"timing"`
	Purpose string `json:"purpose"`
}

// NutritionSummary is the plan variant served by the nutrition-goals
// endpoint: computed targets plus general guidance. It involves no
// generation and is fully deterministic.
type NutritionSummary struct {
	Targets            calculator.Targets `json:"targets"`
	MealTiming         map[string]string  `json:"meal_timing"`
	MicronutrientFocus []string           `json:"micronutrient_focus"`
	Supplements        []Supplement       `json:"supplements_recommended"`
}

// BuildNutritionSummary derives a NutritionSummary from the profile.
func BuildNutritionSummary(p calculator.Profile) (NutritionSummary, error) {
	targets, err := calculator.Compute(p)
	if err != nil {
		return NutritionSummary{}, err
	}

	return NutritionSummary{
		Targets: targets,
		MealTiming: map[string]string{
			"breakfast": "15-25% of daily calories",
			"lunch":     "25-35% of daily calories",
			"dinner":    "25-35% of daily calories",
			"snacks":    "15-25% of daily calories",
		},
		MicronutrientFocus: []string{
			"Vitamin D",
			"Omega-3 fatty acids",
			"Iron",
			"Calcium",
			"Magnesium",
			"Zinc",
		},
		Supplements: supplementsFor(p),
	}, nil
}

// supplementsFor returns goal-dependent supplement suggestions.
func supplementsFor(p calculator.Profile) []Supplement {
	supplements := []Supplement{
		{
			Name:    "Multivitamin",
			Dosage:  "1 tablet",
			Timing:  "With breakfast",
			Purpose: "Fill potential micronutrient gaps",
		},
	}

	if p.HasGoal("muscle_gain") {
		supplements = append(supplements,
			Supplement{
				Name:    "Creatine Monohydrate",
				Dosage:  "5g daily",
				Timing:  "Any time",
				Purpose: "Improve strength and muscle gains",
			},
			Supplement{
				Name:    "Whey Protein",
				Dosage:  "25-30g",
				Timing:  "Post-workout",
				Purpose: "Support muscle recovery and growth",
			},
		)
	}

	return supplements
}
