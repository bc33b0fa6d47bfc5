/*
Package planner turns untrusted generative output into validated, structured
meal and workout plans. The heart of the package is a bounded
parse/validate/repair state machine: malformed or rule-breaking model output
is fed back to the prompt builder with the specific failure attached, up to a
configured number of repairs, after which the request fails with a
PlanGenerationError. An invalid plan is never forwarded.
*/
package planner

// MealItem is one food entry inside a meal. Numeric fields parse tolerantly:
// the model is allowed to write "350 kcal" or "12g" and still be understood.
type MealItem struct {
	Name         string        `json:"name"`
	PortionGrams tolerantFloat `json:"portion_grams"`
	Calories     tolerantFloat `json:"calories"`
	ProteinG     tolerantFloat `json:"protein_g"`
	CarbsG       tolerantFloat `json:"carbs_g"`
	FatG         tolerantFloat `json:"fat_g"`
}

// Meal is an ordered slot in the day: breakfast, lunch, dinner or snacks.
type Meal struct {
	Name  string     `json:"name"`
	Items []MealItem `json:"items"`
	Notes string     `json:"notes,omitempty"`
}

// MealPlan is the parsed meal plan variant.
type MealPlan struct {
	Meals         []Meal        `json:"meals"`
	TotalCalories tolerantFloat `json:"total_calories"`
	HydrationNote string        `json:"hydration_note,omitempty"`
}

// ItemCalorieSum totals the per-item calorie figures across all meals.
func (p MealPlan) ItemCalorieSum() float64 {
	var sum float64
	for _, meal := range p.Meals {
		for _, item := range meal.Items {
			sum += float64(item.Calories)
		}
	}
	return sum
}

// FoodNames returns every item name in plan order, duplicates included.
func (p MealPlan) FoodNames() []string {
	var names []string
	for _, meal := range p.Meals {
		for _, item := range meal.Items {
			names = append(names, item.Name)
		}
	}
	return names
}

// Exercise is one movement inside a workout day. Sets/Reps are zero for
// duration-based work such as cardio.
type Exercise struct {
	Name        string        `json:"name"`
	Sets        tolerantFloat `json:"sets"`
	Reps        tolerantFloat `json:"reps"`
	DurationMin tolerantFloat `json:"duration_minutes"`
	RestSec     tolerantFloat `json:"rest_seconds"`
}

// WorkoutDay is one scheduled training day.
type WorkoutDay struct {
	Day       string     `json:"day"`
	Focus     string     `json:"focus,omitempty"`
	Exercises []Exercise `json:"exercises"`
}

// WorkoutPlan is the parsed workout plan variant.
type WorkoutPlan struct {
	Days                    []WorkoutDay  `json:"days"`
	Intensity               string        `json:"intensity,omitempty"`
	EstimatedCaloriesBurned tolerantFloat `json:"estimated_calories_burned"`
}
