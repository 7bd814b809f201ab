// Package config holds the engine tunables: poll cadences, idle
// thresholds, candidate window sizes, and the decision acceptance
// thresholds. Values load from an optional YAML file and may be
// overridden per-key through LOOM_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all recognized tunables.
type Config struct {
	// Lifecycle idle thresholds.
	ActiveToCoolingMinutes int `yaml:"active_to_cooling_minutes"`
	CoolingToArchivedHours int `yaml:"cooling_to_archived_hours"`

	// Loop cadences (milliseconds).
	AssignmentPollMS int `yaml:"assignment_poll_ms"`
	LifecyclePollMS  int `yaml:"lifecycle_poll_ms"`
	MergePollMS      int `yaml:"merge_poll_ms"`

	// Candidate windows.
	MaxActiveCandidates   int `yaml:"max_active_candidates"`
	MaxArchivedCandidates int `yaml:"max_archived_candidates"`
	MergeCandidateCap     int `yaml:"merge_candidate_cap"`
	ExcerptMessages       int `yaml:"excerpt_messages"`

	// Decision acceptance thresholds. Policy knobs, not constants.
	AssignConfidenceMin    float64 `yaml:"assign_confidence_min"`
	AssignSimilarityMin    float64 `yaml:"assign_similarity_min"`
	RevivalSimilarityMin   float64 `yaml:"revival_similarity_min"`
	RevivalConfidenceMin   float64 `yaml:"revival_confidence_min"`
	MergePairSimilarityMin float64 `yaml:"merge_pair_similarity_min"`
	MergeConfidenceMin     float64 `yaml:"merge_confidence_min"`
	MergeSimilarityMin     float64 `yaml:"merge_similarity_min"`

	// Optional AI decision backend. Empty key disables it.
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		ActiveToCoolingMinutes: 240,
		CoolingToArchivedHours: 48,
		AssignmentPollMS:       2000,
		LifecyclePollMS:        60000,
		MergePollMS:            30000,
		MaxActiveCandidates:    12,
		MaxArchivedCandidates:  8,
		MergeCandidateCap:      16,
		ExcerptMessages:        5,
		AssignConfidenceMin:    0.45,
		AssignSimilarityMin:    0.26,
		RevivalSimilarityMin:   0.31,
		RevivalConfidenceMin:   0.62,
		MergePairSimilarityMin: 0.58,
		MergeConfidenceMin:     0.6,
		MergeSimilarityMin:     0.78,
		GeminiModel:            "gemini-2.0-flash",
	}
}

// Load merges defaults, the YAML file at path (if present), and LOOM_*
// environment overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	envInt("LOOM_ACTIVE_TO_COOLING_MINUTES", &cfg.ActiveToCoolingMinutes)
	envInt("LOOM_COOLING_TO_ARCHIVED_HOURS", &cfg.CoolingToArchivedHours)
	envInt("LOOM_ASSIGNMENT_POLL_MS", &cfg.AssignmentPollMS)
	envInt("LOOM_LIFECYCLE_POLL_MS", &cfg.LifecyclePollMS)
	envInt("LOOM_MERGE_POLL_MS", &cfg.MergePollMS)
	envInt("LOOM_MAX_ACTIVE_CANDIDATES", &cfg.MaxActiveCandidates)
	envInt("LOOM_MAX_ARCHIVED_CANDIDATES", &cfg.MaxArchivedCandidates)
	envInt("LOOM_MERGE_CANDIDATE_CAP", &cfg.MergeCandidateCap)
	envInt("LOOM_EXCERPT_MESSAGES", &cfg.ExcerptMessages)
	envFloat("LOOM_ASSIGN_CONFIDENCE_MIN", &cfg.AssignConfidenceMin)
	envFloat("LOOM_ASSIGN_SIMILARITY_MIN", &cfg.AssignSimilarityMin)
	envFloat("LOOM_REVIVAL_SIMILARITY_MIN", &cfg.RevivalSimilarityMin)
	envFloat("LOOM_REVIVAL_CONFIDENCE_MIN", &cfg.RevivalConfidenceMin)
	envFloat("LOOM_MERGE_PAIR_SIMILARITY_MIN", &cfg.MergePairSimilarityMin)
	envFloat("LOOM_MERGE_CONFIDENCE_MIN", &cfg.MergeConfidenceMin)
	envFloat("LOOM_MERGE_SIMILARITY_MIN", &cfg.MergeSimilarityMin)
	envString("LOOM_GEMINI_API_KEY", &cfg.GeminiAPIKey)
	envString("LOOM_GEMINI_MODEL", &cfg.GeminiModel)
}

func envInt(key string, dst *int) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			*dst = v
		}
	}
}

func envFloat(key string, dst *float64) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			*dst = v
		}
	}
}

func envString(key string, dst *string) {
	if raw := os.Getenv(key); raw != "" {
		*dst = raw
	}
}
