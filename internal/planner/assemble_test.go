package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"healthcoach/internal/calculator"
	"healthcoach/internal/foods"
)

func TestAssembleMealPlanPartialResolution(t *testing.T) {
	plan := MealPlan{Meals: []Meal{
		{Name: "breakfast", Items: []MealItem{
			{Name: "Oatmeal", PortionGrams: 100, Calories: 380, ProteinG: 13},
		}},
		{Name: "lunch", Items: []MealItem{
			{Name: "Chicken Breast", PortionGrams: 200, Calories: 330, ProteinG: 62},
		}},
		{Name: "dinner", Items: []MealItem{
			{Name: "Mystery Stew", PortionGrams: 300, Calories: 500, ProteinG: 20},
		}},
	}}

	facts := map[string]foods.Fact{
		"oatmeal":        {Name: "oatmeal", CaloriesPer100G: 389, ProteinPer100G: 16.9, Resolved: true, Source: "openfoodfacts"},
		"chicken breast": {Name: "chicken breast", CaloriesPer100G: 165, ProteinPer100G: 31, Resolved: true, Source: "openfoodfacts"},
		"mystery stew":   {Name: "mystery stew", Resolved: false},
	}

	targets := calculator.Targets{Calories: 1200}
	result := assembleMealPlan(plan, targets, facts, 1)

	// Two resolved facts contribute to the recomputed totals; the
	// unresolved one is present but contributes nothing.
	require.InDelta(t, 389+330, result.ResolvedTotals.Calories, 0.5)
	require.InDelta(t, 16.9+62, result.ResolvedTotals.ProteinG, 0.5)

	require.Len(t, result.FoodFacts, 3)
	require.False(t, result.FoodFacts["mystery stew"].Resolved)
	require.True(t, result.FoodFacts["oatmeal"].Resolved)

	// The model's own figures survive alongside the resolved ones.
	require.InDelta(t, 380+330+500, result.ApproxTotals.Calories, 0.5)
	require.Equal(t, targets, result.Targets)
}
