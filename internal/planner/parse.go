package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// tolerantFloat accepts a JSON number, or a string carrying units or stray
// punctuation ("350 kcal", "12g", "1,5"). Anything that yields no digits at
// all fails the unmarshal, which surfaces as a parse failure upstream.
type tolerantFloat float64

func (f *tolerantFloat) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = tolerantFloat(num)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected number or string, got %s", string(data))
	}

	num, err := parseLooseNumber(s)
	if err != nil {
		return err
	}
	*f = tolerantFloat(num)
	return nil
}

// thousandsSeparator matches a comma grouping exactly three digits, as in
// "1,500". Any other comma is read as a decimal point.
var thousandsSeparator = regexp.MustCompile(`(\d),(\d{3})\b`)

// parseLooseNumber pulls the first numeric token out of a string, tolerating
// units, thousands separators, comma decimals and surrounding text.
func parseLooseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for {
		stripped := thousandsSeparator.ReplaceAllString(s, "$1$2")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = strings.ReplaceAll(s, ",", ".")

	start := -1
	end := -1
	for i, r := range s {
		isNumeric := r >= '0' && r <= '9' || r == '.' || (r == '-' && start == -1)
		if isNumeric && start == -1 {
			start = i
		}
		if !isNumeric && start != -1 {
			end = i
			break
		}
	}
	if start == -1 {
		return 0, fmt.Errorf("no numeric value in %q", s)
	}
	if end == -1 {
		end = len(s)
	}

	return strconv.ParseFloat(strings.TrimSuffix(s[start:end], "."), 64)
}

// extractJSON locates the JSON object inside raw model output, tolerating
// markdown fences and chatter before or after the braces.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("%w: no JSON object in response", ErrParse)
	}
	return text[start : end+1], nil
}

// parseMealPlan extracts and structurally checks a MealPlan. Structural
// problems (missing sections, empty items, non-numeric fields) are parse
// failures; domain rules live in validate.go.
func parseMealPlan(text string) (MealPlan, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return MealPlan{}, err
	}

	var plan MealPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return MealPlan{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if len(plan.Meals) == 0 {
		return MealPlan{}, fmt.Errorf("%w: required section \"meals\" is missing or empty", ErrParse)
	}
	for _, meal := range plan.Meals {
		if meal.Name == "" {
			return MealPlan{}, fmt.Errorf("%w: a meal is missing its name", ErrParse)
		}
		if len(meal.Items) == 0 {
			return MealPlan{}, fmt.Errorf("%w: meal %q has no items", ErrParse, meal.Name)
		}
		for _, item := range meal.Items {
			if item.Name == "" {
				return MealPlan{}, fmt.Errorf("%w: meal %q has an unnamed item", ErrParse, meal.Name)
			}
		}
	}

	return plan, nil
}

// parseWorkoutPlan extracts and structurally checks a WorkoutPlan.
func parseWorkoutPlan(text string) (WorkoutPlan, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return WorkoutPlan{}, err
	}

	var plan WorkoutPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return WorkoutPlan{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if len(plan.Days) == 0 {
		return WorkoutPlan{}, fmt.Errorf("%w: required section \"days\" is missing or empty", ErrParse)
	}
	for _, day := range plan.Days {
		if day.Day == "" {
			return WorkoutPlan{}, fmt.Errorf("%w: a workout day is missing its day name", ErrParse)
		}
		if len(day.Exercises) == 0 {
			return WorkoutPlan{}, fmt.Errorf("%w: day %q has no exercises", ErrParse, day.Day)
		}
		for _, ex := range day.Exercises {
			if ex.Name == "" {
				return WorkoutPlan{}, fmt.Errorf("%w: day %q has an unnamed exercise", ErrParse, day.Day)
			}
		}
	}

	return plan, nil
}
