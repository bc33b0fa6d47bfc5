package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"healthcoach/internal/calculator"
	"healthcoach/internal/foods"
	"healthcoach/internal/genai"
	"healthcoach/internal/planner"
)

// stubGenerator replays canned results in order, repeating the last one once
// the script runs out.
type stubGenerator struct {
	script []genai.Result
	err    error
	calls  int
}

func (g *stubGenerator) Generate(_ context.Context, _ genai.Request) (genai.Result, error) {
	g.calls++
	if g.err != nil {
		return genai.Result{}, g.err
	}
	i := g.calls - 1
	if i >= len(g.script) {
		i = len(g.script) - 1
	}
	return g.script[i], nil
}

// newTestAPI stands up the full router against a stubbed generator and a food
// database that never resolves anything.
func newTestAPI(t *testing.T, gen genai.Generator) *httptest.Server {
	t.Helper()

	foodSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":0}`)
	}))
	t.Cleanup(foodSrv.Close)

	engine := planner.NewEngine(gen, foods.NewResolver(foods.Config{BaseURL: foodSrv.URL}), planner.Config{})
	app := &Server{port: 0, engine: engine}

	api := httptest.NewServer(app.RegisterRoutes())
	t.Cleanup(api.Close)
	return api
}

func apiProfile() calculator.Profile {
	return calculator.Profile{
		Age:           25,
		WeightKG:      70,
		HeightCM:      175,
		ActivityLevel: "moderate",
		Goals:         []string{"weight_loss"},
	}
}

// onTargetMealPlanJSON builds a plan whose item calories land exactly on the
// profile's computed target.
func onTargetMealPlanJSON(t *testing.T) string {
	t.Helper()
	targets, err := calculator.Compute(apiProfile())
	require.NoError(t, err)

	third := targets.Calories / 3
	rest := targets.Calories - 2*third
	return fmt.Sprintf(`{
		"meals": [
			{"name": "breakfast", "items": [{"name": "oatmeal", "portion_grams": 80, "calories": %d, "protein_g": 12, "carbs_g": 54, "fat_g": 6}]},
			{"name": "lunch", "items": [{"name": "grilled chicken breast", "portion_grams": 150, "calories": %d, "protein_g": 35, "carbs_g": 20, "fat_g": 10}]},
			{"name": "dinner", "items": [{"name": "lentil curry", "portion_grams": 300, "calories": %d, "protein_g": 25, "carbs_g": 60, "fat_g": 12}]}
		],
		"total_calories": %d
	}`, third, third, rest, targets.Calories)
}

func postJSON(t *testing.T, api *httptest.Server, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(api.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, raw
}

func marshalProfile(t *testing.T, p calculator.Profile) string {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return string(raw)
}

func TestWriteTimeoutOutlastsGenerationTimeLimit(t *testing.T) {
	srv := NewServer(nil)
	require.Greater(t, srv.WriteTimeout, 2*time.Minute,
		"the transport must not cut the connection while the engine is still within its time limit")
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t, &stubGenerator{script: []genai.Result{{Text: "{}"}}})

	resp, err := http.Get(api.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMealPlanEndToEnd(t *testing.T) {
	gen := &stubGenerator{script: []genai.Result{{Text: onTargetMealPlanJSON(t)}}}
	api := newTestAPI(t, gen)

	resp, raw := postJSON(t, api, "/api/meal-plan", marshalProfile(t, apiProfile()))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var result planner.MealPlanResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Plan.Meals, 3)
	require.Equal(t, 1, result.Attempts)
	require.Greater(t, result.Targets.Calories, 0)
	require.Less(t, result.Targets.Calories, result.Targets.TDEE,
		"a weight loss target must sit below maintenance expenditure")
	require.Len(t, result.FoodFacts, 3)
}

func TestMealPlanMalformedBody(t *testing.T) {
	gen := &stubGenerator{script: []genai.Result{{Text: "{}"}}}
	api := newTestAPI(t, gen)

	resp, _ := postJSON(t, api, "/api/meal-plan", `{"age": `)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Zero(t, gen.calls)
}

func TestMealPlanInvalidProfile(t *testing.T) {
	gen := &stubGenerator{script: []genai.Result{{Text: "{}"}}}
	api := newTestAPI(t, gen)

	profile := apiProfile()
	profile.Age = -3

	resp, raw := postJSON(t, api, "/api/meal-plan", marshalProfile(t, profile))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Zero(t, gen.calls, "an invalid profile must never reach the generator")

	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Contains(t, body["error"], "invalid profile")
}

func TestMealPlanBackendUnavailable(t *testing.T) {
	gen := &stubGenerator{err: genai.ErrUnavailable}
	api := newTestAPI(t, gen)

	resp, raw := postJSON(t, api, "/api/meal-plan", marshalProfile(t, apiProfile()))
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Contains(t, body["error"], "temporarily unavailable")
}

func TestMealPlanRepairsExhausted(t *testing.T) {
	gen := &stubGenerator{script: []genai.Result{{Text: "definitely not a plan"}}}
	api := newTestAPI(t, gen)

	resp, raw := postJSON(t, api, "/api/meal-plan", marshalProfile(t, apiProfile()))
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Equal(t, 3, gen.calls)

	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Contains(t, body["error"], "Could not produce a valid plan")
	require.Equal(t, genai.PlanTypeMeal, body["plan_type"])
}

func TestWorkoutPlanEndpoint(t *testing.T) {
	threeDays := `{
		"days": [
			{"day": "monday", "exercises": [{"name": "squat", "sets": 3, "reps": 10}]},
			{"day": "wednesday", "exercises": [{"name": "bench press", "sets": 3, "reps": 10}]},
			{"day": "friday", "exercises": [{"name": "running", "duration_minutes": 30}]}
		],
		"intensity": "moderate",
		"estimated_calories_burned": 400
	}`
	gen := &stubGenerator{script: []genai.Result{{Text: threeDays}}}
	api := newTestAPI(t, gen)

	body := `{
		"age": 25, "weight": 70, "height": 175,
		"activity_level": "moderate", "goals": ["muscle_gain"],
		"fitness_level": "intermediate", "days_per_week": 3,
		"available_equipment": ["barbell", "bench"]
	}`
	resp, raw := postJSON(t, api, "/api/workout-plan", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var result planner.WorkoutPlanResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.LessOrEqual(t, len(result.Plan.Days), 3)
	require.Equal(t, 1, result.Attempts)
}

func TestNutritionGoalsEndpoint(t *testing.T) {
	gen := &stubGenerator{script: []genai.Result{{Text: "{}"}}}
	api := newTestAPI(t, gen)

	resp, raw := postJSON(t, api, "/api/nutrition-goals", marshalProfile(t, apiProfile()))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Zero(t, gen.calls, "nutrition goals is pure calculation")

	var summary planner.NutritionSummary
	require.NoError(t, json.Unmarshal(raw, &summary))
	require.Greater(t, summary.Targets.Calories, 0)
	require.NotEmpty(t, summary.MealTiming)
	require.NotEmpty(t, summary.MicronutrientFocus)
}

func TestRequestIDPropagation(t *testing.T) {
	api := newTestAPI(t, &stubGenerator{script: []genai.Result{{Text: "{}"}}})

	req, err := http.NewRequest(http.MethodGet, api.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))

	resp2, err := http.Get(api.URL + "/health")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.NotEmpty(t, resp2.Header.Get("X-Request-ID"))
}
