/*
Package foods resolves food names mentioned in generated plans against the
OpenFoodFacts database. Lookups go through a shared TTL+size bounded cache so
repeated requests for common ingredients cost zero external calls. A food
that cannot be resolved degrades to an unresolved Fact instead of failing the
plan; the cache is the only state shared across requests.
*/
package foods

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL     = "https://world.openfoodfacts.org/api/v0/product"
	defaultUserAgent   = "HealthNutritionAPI - Go"
	defaultTTL         = 72 * time.Hour
	defaultMaxEntries  = 1024
	defaultConcurrency = 4
	lookupTimeout      = 10 * time.Second

	// OpenFoodFacts asks clients to stay polite; two lookups per second with
	// a small burst keeps us well inside their usage policy.
	lookupRatePerSec = 2
	lookupBurst      = 4
)

// Fact holds normalized per-100g nutrition figures for one food. Resolved is
// false when the external lookup failed or found no match; the numbers are
// zeroed in that case.
type Fact struct {
	Name            string  `json:"name"`
	CaloriesPer100G float64 `json:"calories_per_100g"`
	ProteinPer100G  float64 `json:"protein_per_100g"`
	CarbsPer100G    float64 `json:"carbs_per_100g"`
	FatPer100G      float64 `json:"fat_per_100g"`
	FiberPer100G    float64 `json:"fiber_per_100g"`
	Source          string  `json:"source,omitempty"`
	Resolved        bool    `json:"resolved"`
}

// Resolver looks up food facts with caching and a bounded request rate.
type Resolver struct {
	baseURL     string
	userAgent   string
	http        *http.Client
	limiter     *rate.Limiter
	cache       *expirable.LRU[string, Fact]
	concurrency int
}

// Config controls a Resolver. Zero values fall back to defaults.
type Config struct {
	BaseURL     string
	UserAgent   string
	TTL         time.Duration
	MaxEntries  int
	Concurrency int
}

// NewResolver builds a Resolver from an explicit Config. Tests point BaseURL
// at an httptest server.
func NewResolver(cfg Config) *Resolver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	return &Resolver{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:   cfg.UserAgent,
		http:        &http.Client{Timeout: lookupTimeout},
		limiter:     rate.NewLimiter(lookupRatePerSec, lookupBurst),
		cache:       expirable.NewLRU[string, Fact](cfg.MaxEntries, nil, cfg.TTL),
		concurrency: cfg.Concurrency,
	}
}

// NewResolverFromEnv builds a Resolver from OPENFOODFACTS_* and FOOD_*
// environment variables.
func NewResolverFromEnv() *Resolver {
	cfg := Config{
		BaseURL:   os.Getenv("OPENFOODFACTS_URL"),
		UserAgent: os.Getenv("OPENFOODFACTS_USER_AGENT"),
	}
	if s := os.Getenv("FOOD_CACHE_TTL_HOURS"); s != "" {
		if hours, err := strconv.Atoi(s); err == nil && hours > 0 {
			cfg.TTL = time.Duration(hours) * time.Hour
		}
	}
	if s := os.Getenv("FOOD_CACHE_MAX_ENTRIES"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cfg.MaxEntries = n
		}
	}
	if s := os.Getenv("FOOD_LOOKUP_CONCURRENCY"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}
	return NewResolver(cfg)
}

// Normalize produces the cache key for a food name: lowercased with
// whitespace collapsed.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Resolve looks up facts for all names at once, keyed by normalized name.
// Duplicate names collapse to a single lookup and external calls fan out
// concurrently up to the configured bound. It never fails: unresolvable
// foods come back as unresolved Facts.
func (r *Resolver) Resolve(ctx context.Context, names []string) map[string]Fact {
	unique := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := Normalize(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, key)
	}

	results := make([]Fact, len(unique))

	g, grpCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, key := range unique {
		i, key := i, key
		g.Go(func() error {
			results[i] = r.resolveOne(grpCtx, key)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures degrade per-food

	out := make(map[string]Fact, len(unique))
	for i, key := range unique {
		out[key] = results[i]
	}
	return out
}

// resolveOne serves a single normalized key: cache first, external lookup on
// miss. Only resolved facts are cached so a transient lookup failure is
// retried on the next request.
func (r *Resolver) resolveOne(ctx context.Context, key string) Fact {
	if cached, ok := r.cache.Get(key); ok {
		// A cached entry with no name should be unreachable; treat it as a
		// miss and re-fetch rather than serving garbage.
		if cached.Name != "" {
			return cached
		}
		r.cache.Remove(key)
	}

	fact, err := r.lookup(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("food", key).Msg("Food lookup failed, marking unresolved")
		return Fact{Name: key, Resolved: false}
	}
	if !fact.Resolved {
		return fact
	}

	r.cache.Add(key, fact)
	return fact
}

// offResponse mirrors the subset of the OpenFoodFacts product payload we
// consume. Nutriment keys follow their per-100g naming.
type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string `json:"product_name"`
		Nutriments  struct {
			EnergyKcal100G float64 `json:"energy-kcal_100g"`
			Proteins100G   float64 `json:"proteins_100g"`
			Carbs100G      float64 `json:"carbohydrates_100g"`
			Fat100G        float64 `json:"fat_100g"`
			Fiber100G      float64 `json:"fiber_100g"`
		} `json:"nutriments"`
	} `json:"product"`
}

// lookup queries OpenFoodFacts for one food. The User-Agent identification
// string is required by their usage policy.
func (r *Resolver) lookup(ctx context.Context, key string) (Fact, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Fact{}, err
	}

	endpoint := fmt.Sprintf("%s/%s.json", r.baseURL, url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Fact{}, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.http.Do(req)
	if err != nil {
		return Fact{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Fact{}, fmt.Errorf("nutrition service returned %s", resp.Status)
	}

	var off offResponse
	if err := json.NewDecoder(resp.Body).Decode(&off); err != nil {
		return Fact{}, err
	}

	if off.Status != 1 {
		// No match is not an error, just an unresolved food.
		return Fact{Name: key, Resolved: false}, nil
	}

	name := off.Product.ProductName
	if name == "" {
		name = key
	}

	return Fact{
		Name:            name,
		CaloriesPer100G: off.Product.Nutriments.EnergyKcal100G,
		ProteinPer100G:  off.Product.Nutriments.Proteins100G,
		CarbsPer100G:    off.Product.Nutriments.Carbs100G,
		FatPer100G:      off.Product.Nutriments.Fat100G,
		FiberPer100G:    off.Product.Nutriments.Fiber100G,
		Source:          "openfoodfacts",
		Resolved:        true,
	}, nil
}

// CacheLen reports the current number of cached facts.
func (r *Resolver) CacheLen() int {
	return r.cache.Len()
}
