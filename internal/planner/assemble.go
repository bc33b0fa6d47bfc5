package planner

import (
	"math"

	"healthcoach/internal/calculator"
	"healthcoach/internal/foods"
)

// MacroTotals is a calories/protein/carbs/fat rollup.
type MacroTotals struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// MealPlanResult is the final assembled meal plan response: the accepted
// plan, the targets it was generated against, resolved food facts keyed by
// normalized name, and both the model's approximate totals and the totals
// recomputed from resolved facts.
type MealPlanResult struct {
	Plan           MealPlan              `json:"plan"`
	Targets        calculator.Targets    `json:"targets"`
	FoodFacts      map[string]foods.Fact `json:"food_facts"`
	ApproxTotals   MacroTotals           `json:"approximate_totals"`
	ResolvedTotals MacroTotals           `json:"resolved_totals"`
	Attempts       int                   `json:"generation_attempts"`
}

// WorkoutPlanResult is the final assembled workout plan response.
type WorkoutPlanResult struct {
	Plan     WorkoutPlan        `json:"plan"`
	Targets  calculator.Targets `json:"targets"`
	Attempts int                `json:"generation_attempts"`
}

// assembleMealPlan is a pure merge: it attaches facts and computes summary
// totals. It has no failure modes.
func assembleMealPlan(plan MealPlan, targets calculator.Targets, facts map[string]foods.Fact, attempts int) MealPlanResult {
	var approx, resolved MacroTotals

	for _, meal := range plan.Meals {
		for _, item := range meal.Items {
			approx.Calories += float64(item.Calories)
			approx.ProteinG += float64(item.ProteinG)
			approx.CarbsG += float64(item.CarbsG)
			approx.FatG += float64(item.FatG)

			fact, ok := facts[foods.Normalize(item.Name)]
			if !ok || !fact.Resolved {
				continue
			}
			// Per-100g figures scaled by the item's portion.
			scale := float64(item.PortionGrams) / 100
			resolved.Calories += fact.CaloriesPer100G * scale
			resolved.ProteinG += fact.ProteinPer100G * scale
			resolved.CarbsG += fact.CarbsPer100G * scale
			resolved.FatG += fact.FatPer100G * scale
		}
	}

	return MealPlanResult{
		Plan:           plan,
		Targets:        targets,
		FoodFacts:      facts,
		ApproxTotals:   roundTotals(approx),
		ResolvedTotals: roundTotals(resolved),
		Attempts:       attempts,
	}
}

func assembleWorkoutPlan(plan WorkoutPlan, targets calculator.Targets, attempts int) WorkoutPlanResult {
	return WorkoutPlanResult{
		Plan:     plan,
		Targets:  targets,
		Attempts: attempts,
	}
}

func roundTotals(t MacroTotals) MacroTotals {
	round1 := func(v float64) float64 { return math.Round(v*10) / 10 }
	return MacroTotals{
		Calories: round1(t.Calories),
		ProteinG: round1(t.ProteinG),
		CarbsG:   round1(t.CarbsG),
		FatG:     round1(t.FatG),
	}
}
