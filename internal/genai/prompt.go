package genai

import (
	"fmt"
	"strings"

	"healthcoach/internal/calculator"
)

/* =================================================================================
						PROMPT ENGINEERING & GUARDRAILS
=================================================================================*/

// Plan type identifiers carried on every Request and surfaced in errors.
const (
	PlanTypeMeal    = "meal_plan"
	PlanTypeWorkout = "workout_plan"
)

// Sampling temperature is fixed per deployment; plan generation favors
// consistency over creativity.
const defaultTemperature = 0.7

// WorkoutOptions are the workout-specific request fields that accompany the
// health profile.
type WorkoutOptions struct {
	FitnessLevel string   `json:"fitness_level"`
	Equipment    []string `json:"available_equipment,omitempty"`
	DaysPerWeek  int      `json:"days_per_week"`
}

/*
MealPlanSystemPrompt defines the persona and guardrails for meal generation.
The response shape instructions are strict so the parser can rely on them.
*/
const MealPlanSystemPrompt = `You are an expert nutritionist and meal planner with deep knowledge of sports nutrition, dietary science, and meal timing. Provide evidence-based recommendations that are practical and easy to follow.

RESPONSE FORMAT (CRITICAL):
- Output MUST be a single valid JSON object, nothing else.
- NO markdown fences, NO explanations, NO preamble.
- Every numeric field MUST be a non-negative number.
- Output MUST follow this exact schema:
{
  "meals": [
    {
      "name": "breakfast | lunch | dinner | snacks",
      "items": [
        {
          "name": "string",
          "portion_grams": number,
          "calories": number,
          "protein_g": number,
          "carbs_g": number,
          "fat_g": number
        }
      ],
      "notes": "preparation and timing notes"
    }
  ],
  "total_calories": number,
  "hydration_note": "string"
}`

// WorkoutSystemPrompt is the trainer persona for workout generation.
const WorkoutSystemPrompt = `You are an expert personal trainer and exercise physiologist with deep knowledge of biomechanics, exercise science, and progressive programming. Provide evidence-based recommendations that prioritize both results and safety.

RESPONSE FORMAT (CRITICAL):
- Output MUST be a single valid JSON object, nothing else.
- NO markdown fences, NO explanations, NO preamble.
- Schedule AT MOST the requested number of training days.
- Output MUST follow this exact schema:
{
  "days": [
    {
      "day": "monday | tuesday | ... | sunday",
      "focus": "string",
      "exercises": [
        {
          "name": "string",
          "sets": number,
          "reps": number,
          "duration_minutes": number,
          "rest_seconds": number
        }
      ]
    }
  ],
  "intensity": "light | moderate | vigorous",
  "estimated_calories_burned": number
}`

const mealPromptTemplate = `Create a detailed, nutritionally balanced one-day meal plan for someone with the following profile:
Age: %d years
Weight: %.1f kg
Height: %.1f cm
Activity Level: %s
Goals: %s
Dietary Restrictions: %s
Meal Preferences: %s

Daily nutrition targets the plan MUST hit:
- Calories: %d kcal (total across all meals, stay close to this number)
- Protein: %d g
- Carbs: %d g
- Fat: %d g
- Fiber: %d g

Cover breakfast, lunch, dinner and snacks. For each meal provide ingredients
with exact portions in grams, per-item nutrition, and short preparation and
timing notes. Never include any ingredient that conflicts with the dietary
restrictions listed above.`

const workoutPromptTemplate = `Create a detailed, progressive weekly workout plan for someone with the following profile:
Age: %d years
Weight: %.1f kg
Height: %.1f cm
Activity Level: %s
Fitness Level: %s
Goals: %s
Available Equipment: %s
Training Days Per Week: %d

Daily calorie target for context: %d kcal.

Schedule at most %d distinct training days. For each day give a focus and
exercises with sets, reps (or duration for cardio) and rest periods. Use only
the available equipment listed above; use bodyweight movements when the list
is empty. Include both strength and cardio components where the goals call
for them.`

// repairPreamble steers a re-prompt away from the previous failure. It is
// prepended to the original prompt so the model sees both the mistake and the
// full task.
const repairPreamble = `Your previous response was rejected for this reason:
%s

Produce a NEW response that fixes exactly this problem. Follow the required
JSON schema strictly.

`

// BuildMealPlanRequest renders the meal plan prompt. repairReason is empty on
// the first attempt; on repair it carries the specific validation failure.
func BuildMealPlanRequest(p calculator.Profile, t calculator.Targets, repairReason string) Request {
	prompt := fmt.Sprintf(mealPromptTemplate,
		p.Age,
		p.WeightKG,
		p.HeightCM,
		p.ActivityLevel,
		joinOrNone(p.Goals),
		joinOrNone(p.Restrictions),
		joinOrNone(p.Preferences),
		t.Calories,
		t.ProteinG,
		t.CarbsG,
		t.FatG,
		t.FiberG,
	)

	return Request{
		PlanType:    PlanTypeMeal,
		System:      MealPlanSystemPrompt,
		Prompt:      withRepair(prompt, repairReason),
		Temperature: defaultTemperature,
	}
}

// BuildWorkoutPlanRequest renders the workout plan prompt.
func BuildWorkoutPlanRequest(p calculator.Profile, t calculator.Targets, opts WorkoutOptions, repairReason string) Request {
	fitness := opts.FitnessLevel
	if fitness == "" {
		fitness = "intermediate"
	}

	prompt := fmt.Sprintf(workoutPromptTemplate,
		p.Age,
		p.WeightKG,
		p.HeightCM,
		p.ActivityLevel,
		fitness,
		joinOrNone(p.Goals),
		joinOrNone(opts.Equipment),
		opts.DaysPerWeek,
		t.Calories,
		opts.DaysPerWeek,
	)

	return Request{
		PlanType:    PlanTypeWorkout,
		System:      WorkoutSystemPrompt,
		Prompt:      withRepair(prompt, repairReason),
		Temperature: defaultTemperature,
	}
}

func withRepair(prompt, reason string) string {
	if reason == "" {
		return prompt
	}
	return fmt.Sprintf(repairPreamble, reason) + prompt
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
