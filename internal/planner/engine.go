package planner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"

	"healthcoach/internal/calculator"
	"healthcoach/internal/foods"
	"healthcoach/internal/genai"
)

const (
	defaultMaxRepairs       = 2
	defaultCalorieTolerance = 0.30
	// Hard cap on wall-clock time across the whole repair loop so one
	// pathological request cannot starve the dispatcher.
	defaultRepairBudget = 2 * time.Minute
)

// state enumerates the repair loop's states. The machine is explicit so its
// transitions can be logged and its termination bound tested directly.
type state int

const (
	statePending state = iota
	stateParsing
	stateValidating
	stateAccepted
	stateRepairing
	stateRejected
)

func (s state) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateParsing:
		return "parsing"
	case stateValidating:
		return "validating"
	case stateAccepted:
		return "accepted"
	case stateRepairing:
		return "repairing"
	case stateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	MaxRepairs       int
	CalorieTolerance float64
	RepairBudget     time.Duration
}

// Engine orchestrates the pipeline: targets -> prompt -> generation ->
// parse/validate/repair -> food resolution -> assembly.
type Engine struct {
	gen   genai.Generator
	foods *foods.Resolver
	cfg   Config
}

// NewEngine wires the engine with its collaborators.
func NewEngine(gen genai.Generator, resolver *foods.Resolver, cfg Config) *Engine {
	if cfg.MaxRepairs <= 0 {
		cfg.MaxRepairs = defaultMaxRepairs
	}
	if cfg.CalorieTolerance <= 0 {
		cfg.CalorieTolerance = defaultCalorieTolerance
	}
	if cfg.RepairBudget <= 0 {
		cfg.RepairBudget = defaultRepairBudget
	}
	return &Engine{gen: gen, foods: resolver, cfg: cfg}
}

// ConfigFromEnv reads PLAN_* environment variables.
func ConfigFromEnv() Config {
	var cfg Config
	if s := os.Getenv("PLAN_MAX_REPAIRS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cfg.MaxRepairs = n
		}
	}
	if s := os.Getenv("PLAN_CALORIE_TOLERANCE"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			cfg.CalorieTolerance = f
		}
	}
	return cfg
}

// generate drives the state machine for one plan type. It returns the
// accepted plan and the number of generation calls made. Backend faults
// (timeout, unavailable) surface immediately; parse and validation faults
// loop through repair until the budget runs out.
func generate[T any](
	ctx context.Context,
	e *Engine,
	planType string,
	build func(repairReason string) genai.Request,
	parse func(text string) (T, error),
	validate func(plan T) error,
) (T, int, error) {
	var (
		zero     T
		plan     T
		raw      genai.Result
		failure  error
		reason   string
		attempts int
	)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RepairBudget)
	defer cancel()

	st := statePending
	for {
		switch st {
		case statePending:
			res, err := e.gen.Generate(ctx, build(reason))
			if err != nil {
				// An expired loop deadline surfaces as a raw context error;
				// callers only understand the named failure taxonomy.
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return zero, attempts, fmt.Errorf("%w: generation exceeded the %s time limit after %d attempts",
						genai.ErrTimeout, e.cfg.RepairBudget, attempts)
				}
				return zero, attempts, err
			}
			attempts++
			raw = res
			st = stateParsing

		case stateParsing:
			if raw.Truncated {
				failure = fmt.Errorf("%w: the response was cut off at the output limit; respond more concisely", ErrParse)
				st = stateRepairing
				break
			}
			parsed, err := parse(raw.Text)
			if err != nil {
				failure = err
				st = stateRepairing
				break
			}
			plan = parsed
			st = stateValidating

		case stateValidating:
			if err := validate(plan); err != nil {
				failure = err
				st = stateRepairing
				break
			}
			st = stateAccepted

		case stateAccepted:
			log.Info().Str("plan_type", planType).Int("attempts", attempts).Msg("Plan accepted")
			return plan, attempts, nil

		case stateRepairing:
			log.Warn().Err(failure).Str("plan_type", planType).
				Msgf("Attempt %d produced an invalid plan", attempts)
			if attempts > e.cfg.MaxRepairs {
				st = stateRejected
				break
			}
			reason = failure.Error()
			st = statePending

		case stateRejected:
			return zero, attempts, &PlanGenerationError{
				PlanType: planType,
				Reason:   failure.Error(),
				Attempts: attempts,
			}
		}
	}
}

// GenerateMealPlan runs the full pipeline for a meal plan.
func (e *Engine) GenerateMealPlan(ctx context.Context, profile calculator.Profile) (*MealPlanResult, error) {
	targets, err := calculator.Compute(profile)
	if err != nil {
		return nil, err
	}

	plan, attempts, err := generate(ctx, e, genai.PlanTypeMeal,
		func(reason string) genai.Request {
			return genai.BuildMealPlanRequest(profile, targets, reason)
		},
		parseMealPlan,
		func(p MealPlan) error {
			return validateMealPlan(p, targets.Calories, e.cfg.CalorieTolerance, profile.Restrictions)
		},
	)
	if err != nil {
		return nil, err
	}

	facts := e.foods.Resolve(ctx, plan.FoodNames())
	result := assembleMealPlan(plan, targets, facts, attempts)
	return &result, nil
}

// GenerateWorkoutPlan runs the pipeline for a workout plan. No food
// resolution is involved.
func (e *Engine) GenerateWorkoutPlan(ctx context.Context, profile calculator.Profile, opts genai.WorkoutOptions) (*WorkoutPlanResult, error) {
	if opts.DaysPerWeek < 0 || opts.DaysPerWeek > 7 {
		return nil, fmt.Errorf("%w: days_per_week must be between 0 and 7, got %d",
			calculator.ErrInvalidProfile, opts.DaysPerWeek)
	}

	targets, err := calculator.Compute(profile)
	if err != nil {
		return nil, err
	}

	plan, attempts, err := generate(ctx, e, genai.PlanTypeWorkout,
		func(reason string) genai.Request {
			return genai.BuildWorkoutPlanRequest(profile, targets, opts, reason)
		},
		parseWorkoutPlan,
		func(p WorkoutPlan) error {
			return validateWorkoutPlan(p, opts.DaysPerWeek)
		},
	)
	if err != nil {
		return nil, err
	}

	result := assembleWorkoutPlan(plan, targets, attempts)
	return &result, nil
}

// NutritionGoals is pure calculation: no generation step is involved.
func (e *Engine) NutritionGoals(profile calculator.Profile) (*NutritionSummary, error) {
	summary, err := BuildNutritionSummary(profile)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
