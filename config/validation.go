package config

import (
	"fmt"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks the loaded configuration for values the rest of
// the system assumes are sane.
func ValidateConfig(cfg *Config) error {
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return ValidationError{Field: "DB_DRIVER", Message: fmt.Sprintf("unsupported driver %q", cfg.DBDriver)}
	}

	if _, err := time.LoadLocation(cfg.TZName); err != nil {
		return ValidationError{Field: "TZ_NAME", Message: fmt.Sprintf("unknown timezone %q", cfg.TZName)}
	}

	if cfg.FactsDefaultHour < 0 || cfg.FactsDefaultHour > 23 {
		return ValidationError{Field: "FACTS_DEFAULT_HOUR", Message: "must be between 0 and 23"}
	}

	if cfg.MedNearLimitFrac <= 0 || cfg.MedNearLimitFrac > 1 {
		return ValidationError{Field: "MED_NEAR_LIMIT_FRAC", Message: "must be in (0, 1]"}
	}
	if cfg.MedFuzzyThreshold <= 0 || cfg.MedFuzzyThreshold > 1 {
		return ValidationError{Field: "MED_FUZZY_THRESHOLD", Message: "must be in (0, 1]"}
	}
	if cfg.MedInteractionHrs <= 0 {
		return ValidationError{Field: "MED_INTERACTION_HOURS", Message: "must be positive"}
	}
	for cat, limit := range cfg.MedMonthlyLimits {
		if limit <= 0 {
			return ValidationError{Field: "MED_LIMIT_" + cat, Message: "must be positive"}
		}
	}

	if cfg.CaloriesMax <= 0 {
		return ValidationError{Field: "CALORIES_MAX", Message: "must be positive"}
	}
	if cfg.ProteinMin < 0 {
		return ValidationError{Field: "PROTEIN_MIN", Message: "must not be negative"}
	}
	if cfg.FastGoalHours <= 0 {
		return ValidationError{Field: "FAST_GOAL_HOURS", Message: "must be positive"}
	}

	return nil
}

// Location resolves the configured timezone. Validation guarantees the
// name loads, so failures here fall back to UTC instead of erroring.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TZName)
	if err != nil {
		return time.UTC
	}
	return loc
}
