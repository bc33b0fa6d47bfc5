package planner

import (
	"fmt"
	"strings"
)

// restrictionKeywords maps a normalized dietary restriction to ingredient
// keywords that violate it. Matching is a substring screen over lowercased
// item names; it errs on the side of flagging.
var restrictionKeywords = map[string][]string{
	"vegetarian": {
		"chicken", "beef", "pork", "bacon", "ham", "lamb", "turkey",
		"fish", "salmon", "tuna", "shrimp", "anchovy", "meat", "steak", "sausage",
	},
	"vegan": {
		"chicken", "beef", "pork", "bacon", "ham", "lamb", "turkey",
		"fish", "salmon", "tuna", "shrimp", "anchovy", "meat", "steak", "sausage",
		"milk", "cheese", "yogurt", "butter", "cream", "egg", "honey", "whey",
	},
	"gluten_free": {
		"wheat", "bread", "pasta", "barley", "rye", "flour", "couscous",
		"cracker", "noodle", "seitan",
	},
	"dairy_free": {
		"milk", "cheese", "yogurt", "butter", "cream", "whey", "ghee",
	},
	"nut_free": {
		"peanut", "almond", "cashew", "walnut", "pecan", "hazelnut",
		"pistachio", "macadamia", "nut butter",
	},
	"pescatarian": {
		"chicken", "beef", "pork", "bacon", "ham", "lamb", "turkey", "steak", "sausage",
	},
}

// normalizeRestriction maps free-form restriction strings ("Gluten Free",
// "dairy-free") onto keyword table keys.
func normalizeRestriction(r string) string {
	r = strings.ToLower(strings.TrimSpace(r))
	r = strings.ReplaceAll(r, "-", "_")
	r = strings.ReplaceAll(r, " ", "_")
	return r
}

// requiredMeals must all appear in an accepted meal plan; snacks are optional.
var requiredMeals = []string{"breakfast", "lunch", "dinner"}

// validateMealPlan enforces the domain invariants on a structurally sound
// plan. Every violation is a wrapped ErrValidation whose message is specific
// enough to steer the repair prompt.
func validateMealPlan(plan MealPlan, calorieTarget int, tolerance float64, restrictions []string) error {
	present := make(map[string]bool, len(plan.Meals))
	for _, meal := range plan.Meals {
		present[strings.ToLower(meal.Name)] = true

		for _, item := range meal.Items {
			if err := nonNegative(map[string]float64{
				"portion_grams": float64(item.PortionGrams),
				"calories":      float64(item.Calories),
				"protein_g":     float64(item.ProteinG),
				"carbs_g":       float64(item.CarbsG),
				"fat_g":         float64(item.FatG),
			}); err != nil {
				return fmt.Errorf("%w: item %q in meal %q: %v", ErrValidation, item.Name, meal.Name, err)
			}
		}
	}

	for _, required := range requiredMeals {
		if !present[required] {
			return fmt.Errorf("%w: plan is missing the %q meal", ErrValidation, required)
		}
	}

	sum := plan.ItemCalorieSum()
	band := float64(calorieTarget) * tolerance
	if sum < float64(calorieTarget)-band || sum > float64(calorieTarget)+band {
		return fmt.Errorf("%w: plan totals %.0f kcal but the daily target is %d kcal (allowed deviation %.0f)",
			ErrValidation, sum, calorieTarget, band)
	}

	for _, restriction := range restrictions {
		keywords, known := restrictionKeywords[normalizeRestriction(restriction)]
		if !known {
			continue // free-form restrictions are enforced by the prompt only
		}
		for _, meal := range plan.Meals {
			for _, item := range meal.Items {
				itemName := strings.ToLower(item.Name)
				for _, kw := range keywords {
					if strings.Contains(itemName, kw) {
						return fmt.Errorf("%w: item %q in meal %q conflicts with dietary restriction %q",
							ErrValidation, item.Name, meal.Name, restriction)
					}
				}
			}
		}
	}

	return nil
}

// validateWorkoutPlan enforces the workout invariants. daysRequested of zero
// means the caller did not constrain the schedule; values above 7 are
// rejected before generation starts.
func validateWorkoutPlan(plan WorkoutPlan, daysRequested int) error {
	limit := daysRequested
	if limit <= 0 {
		limit = 7
	}

	seen := make(map[string]bool, len(plan.Days))
	for _, day := range plan.Days {
		name := strings.ToLower(day.Day)
		if seen[name] {
			return fmt.Errorf("%w: day %q is scheduled twice", ErrValidation, day.Day)
		}
		seen[name] = true

		for _, ex := range day.Exercises {
			if err := nonNegative(map[string]float64{
				"sets":             float64(ex.Sets),
				"reps":             float64(ex.Reps),
				"duration_minutes": float64(ex.DurationMin),
				"rest_seconds":     float64(ex.RestSec),
			}); err != nil {
				return fmt.Errorf("%w: exercise %q on %q: %v", ErrValidation, ex.Name, day.Day, err)
			}
			if ex.Sets == 0 && ex.Reps == 0 && ex.DurationMin == 0 {
				return fmt.Errorf("%w: exercise %q on %q has neither sets/reps nor a duration",
					ErrValidation, ex.Name, day.Day)
			}
		}
	}

	if len(seen) > limit {
		return fmt.Errorf("%w: plan schedules %d distinct days but only %d were requested",
			ErrValidation, len(seen), limit)
	}

	if float64(plan.EstimatedCaloriesBurned) < 0 {
		return fmt.Errorf("%w: estimated_calories_burned is negative", ErrValidation)
	}

	return nil
}

func nonNegative(fields map[string]float64) error {
	for name, v := range fields {
		if v < 0 {
			return fmt.Errorf("%s is negative (%.1f)", name, v)
		}
	}
	return nil
}
