package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"healthcoach/internal/calculator"
	"healthcoach/internal/genai"
	"healthcoach/internal/planner"
)

/* =================================================================================
							DTOs (Data Transfer Objects)
=================================================================================*/

// WorkoutPlanRequest is the workout endpoint payload: the health profile plus
// workout-specific fields.
type WorkoutPlanRequest struct {
	Age           int      `json:"age"`
	Weight        float64  `json:"weight"`
	Height        float64  `json:"height"`
	Sex           string   `json:"sex,omitempty"`
	ActivityLevel string   `json:"activity_level"`
	Goals         []string `json:"goals"`
	FitnessLevel  string   `json:"fitness_level"`
	Equipment     []string `json:"available_equipment,omitempty"`
	DaysPerWeek   int      `json:"days_per_week"`
}

/* =================================================================================
									HANDLERS
=================================================================================*/

// MealPlanHandler runs the full pipeline and returns the assembled meal plan.
func (s *Server) MealPlanHandler(c echo.Context) error {
	var profile calculator.Profile
	if err := c.Bind(&profile); err != nil {
		log.Error().Err(err).Msg("Failed to bind meal plan request body")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	result, err := s.engine.GenerateMealPlan(c.Request().Context(), profile)
	if err != nil {
		return planError(c, genai.PlanTypeMeal, err)
	}
	return c.JSON(http.StatusOK, result)
}

// NutritionGoalsHandler is pure calculation; no generation call is made.
func (s *Server) NutritionGoalsHandler(c echo.Context) error {
	var profile calculator.Profile
	if err := c.Bind(&profile); err != nil {
		log.Error().Err(err).Msg("Failed to bind nutrition goals request body")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	summary, err := s.engine.NutritionGoals(profile)
	if err != nil {
		return planError(c, "nutrition_goals", err)
	}
	return c.JSON(http.StatusOK, summary)
}

// WorkoutPlanHandler runs the pipeline for a workout plan.
func (s *Server) WorkoutPlanHandler(c echo.Context) error {
	var req WorkoutPlanRequest
	if err := c.Bind(&req); err != nil {
		log.Error().Err(err).Msg("Failed to bind workout plan request body")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	profile := calculator.Profile{
		Age:           req.Age,
		WeightKG:      req.Weight,
		HeightCM:      req.Height,
		Sex:           req.Sex,
		ActivityLevel: req.ActivityLevel,
		Goals:         req.Goals,
	}
	opts := genai.WorkoutOptions{
		FitnessLevel: req.FitnessLevel,
		Equipment:    req.Equipment,
		DaysPerWeek:  req.DaysPerWeek,
	}

	result, err := s.engine.GenerateWorkoutPlan(c.Request().Context(), profile, opts)
	if err != nil {
		return planError(c, genai.PlanTypeWorkout, err)
	}
	return c.JSON(http.StatusOK, result)
}

/* =================================================================================
								ERROR MAPPING
=================================================================================*/

// planError maps engine failures to HTTP statuses: 422 for bad profiles, 503
// for backend faults, 502 when repairs are exhausted. The body names the plan
// type and a human-readable reason, never raw model output.
func planError(c echo.Context, planType string, err error) error {
	var pge *planner.PlanGenerationError

	switch {
	case errors.Is(err, calculator.ErrInvalidProfile):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{
			"plan_type": planType,
			"error":     err.Error(),
		})

	case errors.Is(err, genai.ErrTimeout), errors.Is(err, genai.ErrUnavailable):
		log.Error().Err(err).Str("plan_type", planType).Msg("Generation backend fault")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"plan_type": planType,
			"error":     "AI service temporarily unavailable. Please try again later.",
		})

	case errors.As(err, &pge):
		log.Error().Err(err).Str("plan_type", planType).Msg("Plan generation failed after repairs")
		return c.JSON(http.StatusBadGateway, map[string]string{
			"plan_type": pge.PlanType,
			"error":     "Could not produce a valid plan: " + pge.Reason,
		})

	default:
		log.Error().Err(err).Str("plan_type", planType).Msg("Unexpected engine failure")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"plan_type": planType,
			"error":     "Internal error",
		})
	}
}
