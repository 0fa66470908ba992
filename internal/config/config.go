// Package config handles loading and validating the engine configuration.
//
// Configuration lives in a JSON file (default ~/.cardpulse/config.json) and
// is created with sensible defaults on first run. A few deploy knobs can be
// overridden through environment variables or a .env file. Everything the
// scoring pipeline needs - vocabulary, weight tables, archetype catalog,
// scheduler tiers - is explicit configuration passed into components at
// construction; there is no ambient state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full engine configuration.
type Config struct {
	// Storage and logging
	DBPath   string `json:"db_path"`
	LogLevel string `json:"log_level"`

	// Scheduling
	AnalysisIntervalMinutes int   `json:"analysis_interval_minutes"`
	SamplesPerCycle         int   `json:"samples_per_cycle"`
	TierIntervalsMinutes    []int `json:"tier_intervals_minutes"`
	JitterMinSeconds        int   `json:"jitter_min_seconds"`
	JitterMaxSeconds        int   `json:"jitter_max_seconds"`
	FetchTimeoutSeconds     int   `json:"fetch_timeout_seconds"`
	RequestsPerMinute       int   `json:"requests_per_minute"`

	// Scoring
	DecayWindowHours int                  `json:"decay_window_hours"`
	MinTextLength    int                  `json:"min_text_length"`
	Engagement       EngagementWeights    `json:"engagement"`
	Strength         StrengthWeights      `json:"strength"`
	Correlation      CorrelationWeights   `json:"correlation"`
	Actionability    ActionabilityWeights `json:"actionability"`

	// Vocabulary and catalogs
	Targets    []Target    `json:"targets"`
	Entities   []Entity    `json:"entities"`
	Patterns   []Pattern   `json:"patterns"`
	Archetypes []Archetype `json:"archetypes"`
}

// EngagementWeights control how raw engagement counters become a rate score.
type EngagementWeights struct {
	Approval   float64 `json:"approval"`
	Share      float64 `json:"share"`
	Reply      float64 `json:"reply"`
	HourlyNorm float64 `json:"hourly_norm"` // weighted count per hour that maps to 1.0
	Ceiling    float64 `json:"ceiling"`     // hard cap on the normalized score
}

// StrengthWeights control the signal strength calculation.
type StrengthWeights struct {
	PatternDamping float64 `json:"pattern_damping"` // damps the summed pattern bonus
	EngagementCap  float64 `json:"engagement_cap"`  // cap on the engagement multiplier input
}

// CorrelationWeights control cross-source merging. The multi-source and
// timing constants are empirically tuned, which is exactly why they live in
// config rather than code.
type CorrelationWeights struct {
	Single            map[string]float64 `json:"single"` // source kind -> single-source weight
	Both              float64            `json:"both"`   // multi-source multiplier, > any single weight
	TimingBonus       float64            `json:"timing_bonus"`
	TimingWindowHours int                `json:"timing_window_hours"`
}

// ActionabilityWeights control tier assignment.
type ActionabilityWeights struct {
	MultiPlatformBonus float64 `json:"multi_platform_bonus"`
	MomentumBonus      float64 `json:"momentum_bonus"`
	MomentumThreshold  float64 `json:"momentum_threshold"`
	AuthorBonus        float64 `json:"author_bonus"`
	AuthorThreshold    int     `json:"author_threshold"`
}

// Target configures one monitoring target.
type Target struct {
	Kind   string  `json:"kind"` // "community" or "author"
	Handle string  `json:"handle"`
	Name   string  `json:"name"`
	URL    string  `json:"url"`
	Weight float64 `json:"weight"`
	Tier   int     `json:"tier"`
}

// Entity configures one canonical card entity and its spelling variants.
type Entity struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Weight  float64  `json:"weight"`
	Aliases []string `json:"aliases"`
}

// Pattern configures one narrative pattern and its trigger keywords.
type Pattern struct {
	Name     string   `json:"name"`
	Strength float64  `json:"strength"`
	Keywords []string `json:"keywords"`
}

// Archetype configures one narrative archetype. Catalog order matters:
// classification ties break toward the first-listed archetype.
type Archetype struct {
	Name       string   `json:"name"`
	Action     string   `json:"action"`
	Confidence float64  `json:"confidence"`
	Patterns   []string `json:"patterns"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".cardpulse", "config.json")
}

// Load reads configuration from path, creating the file with defaults if it
// does not exist. Environment variables (optionally from a .env file)
// override the deploy knobs. A config that fails validation is fatal: the
// engine must not run with an undefined scoring function.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // best effort, absence is fine

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		if saveErr := cfg.Save(path); saveErr != nil {
			return nil, fmt.Errorf("write default config: %w", saveErr)
		}
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Save writes the config as indented JSON, creating parent directories.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv overrides deploy knobs from the environment.
func (c *Config) applyEnv() {
	c.DBPath = getEnv("CARDPULSE_DB_PATH", c.DBPath)
	c.LogLevel = getEnv("CARDPULSE_LOG_LEVEL", c.LogLevel)
	c.SamplesPerCycle = getEnvInt("CARDPULSE_SAMPLES_PER_CYCLE", c.SamplesPerCycle)
	c.RequestsPerMinute = getEnvInt("CARDPULSE_REQUESTS_PER_MINUTE", c.RequestsPerMinute)
}

// Validate checks that the scoring function is fully defined.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.AnalysisIntervalMinutes < 1 {
		return fmt.Errorf("analysis_interval_minutes must be at least 1")
	}
	if c.SamplesPerCycle < 1 {
		return fmt.Errorf("samples_per_cycle must be at least 1")
	}
	if len(c.TierIntervalsMinutes) == 0 {
		return fmt.Errorf("tier_intervals_minutes must not be empty")
	}
	for i, m := range c.TierIntervalsMinutes {
		if m < 1 {
			return fmt.Errorf("tier_intervals_minutes[%d] must be at least 1", i)
		}
	}
	if c.JitterMinSeconds < 0 || c.JitterMaxSeconds < c.JitterMinSeconds {
		return fmt.Errorf("jitter range invalid: min=%d max=%d", c.JitterMinSeconds, c.JitterMaxSeconds)
	}
	if c.DecayWindowHours < 1 {
		return fmt.Errorf("decay_window_hours must be at least 1")
	}
	if c.Engagement.Ceiling <= 0 || c.Engagement.HourlyNorm <= 0 {
		return fmt.Errorf("engagement ceiling and hourly_norm must be positive")
	}
	if c.Strength.PatternDamping <= 0 {
		return fmt.Errorf("strength pattern_damping must be positive")
	}
	if len(c.Correlation.Single) == 0 {
		return fmt.Errorf("correlation single-source weights are required")
	}
	for kind, w := range c.Correlation.Single {
		if w <= 0 {
			return fmt.Errorf("correlation single weight for %q must be positive", kind)
		}
		if c.Correlation.Both <= w {
			return fmt.Errorf("correlation both weight (%.2f) must exceed single weight for %q (%.2f)",
				c.Correlation.Both, kind, w)
		}
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one monitoring target is required")
	}
	for i, t := range c.Targets {
		if t.Kind != "community" && t.Kind != "author" {
			return fmt.Errorf("target[%d] %q: unknown kind %q", i, t.Handle, t.Kind)
		}
		if t.Handle == "" || t.URL == "" {
			return fmt.Errorf("target[%d]: handle and url are required", i)
		}
		if t.Weight <= 0 || t.Weight > 1 {
			return fmt.Errorf("target[%d] %q: weight must be in (0,1], got %.2f", i, t.Handle, t.Weight)
		}
		if t.Tier < 0 {
			return fmt.Errorf("target[%d] %q: tier must be >= 0", i, t.Handle)
		}
		// Every kind that can produce signals needs a defined single-source
		// weight, or a lone source would correlate undiscounted.
		if _, ok := c.Correlation.Single[t.Kind]; !ok {
			return fmt.Errorf("target[%d] %q: correlation single weight for kind %q is missing", i, t.Handle, t.Kind)
		}
	}
	if len(c.Entities) == 0 {
		return fmt.Errorf("entity catalog must not be empty")
	}
	for i, e := range c.Entities {
		if e.ID == "" {
			return fmt.Errorf("entity[%d]: id is required", i)
		}
		if e.Weight <= 0 || e.Weight > 1 {
			return fmt.Errorf("entity %q: weight must be in (0,1], got %.2f", e.ID, e.Weight)
		}
	}
	if len(c.Patterns) == 0 {
		return fmt.Errorf("pattern catalog must not be empty")
	}
	patternNames := make(map[string]bool, len(c.Patterns))
	for _, p := range c.Patterns {
		if p.Name == "" || len(p.Keywords) == 0 {
			return fmt.Errorf("pattern %q: name and keywords are required", p.Name)
		}
		if p.Strength < 1 {
			return fmt.Errorf("pattern %q: strength must be >= 1, got %.2f", p.Name, p.Strength)
		}
		patternNames[p.Name] = true
	}
	if len(c.Archetypes) == 0 {
		return fmt.Errorf("archetype catalog must not be empty")
	}
	for _, a := range c.Archetypes {
		if a.Name == "" || a.Action == "" {
			return fmt.Errorf("archetype %q: name and action are required", a.Name)
		}
		if a.Confidence <= 0 || a.Confidence > 1 {
			return fmt.Errorf("archetype %q: confidence must be in (0,1], got %.2f", a.Name, a.Confidence)
		}
		for _, p := range a.Patterns {
			if !patternNames[p] {
				return fmt.Errorf("archetype %q references unknown pattern %q", a.Name, p)
			}
		}
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
