// Package config provides configuration models and helpers for pipeline runs.
//
// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "sources.customers"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSources(p.Sources)...)
	issues = append(issues, validateValidation(p.Validation)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

// validateSources checks that every entity input is located.
func validateSources(s Sources) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Customers) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sources.customers",
			Message:  "customers source requires a non-empty path",
		})
	}
	if strings.TrimSpace(s.Transactions) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sources.transactions",
			Message:  "transactions source requires a non-empty path",
		})
	}
	if len(s.Reviews) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "sources.reviews",
			Message:  "no review files configured; orders will carry no rating or review_date",
		})
	}
	for i, r := range s.Reviews {
		if strings.TrimSpace(r) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("sources.reviews[%d]", i),
				Message:  "review source path must not be empty",
			})
		}
	}

	return issues
}

// validateValidation checks the free-form validation options bag.
func validateValidation(o Options) []Issue {
	var issues []Issue

	if policy := o.String("dedup_policy", ""); policy != "" {
		known := map[string]struct{}{
			"keep-first":    {},
			"keep-last":     {},
			"most-complete": {},
		}
		if _, ok := known[policy]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "validation.dedup_policy",
				Message:  fmt.Sprintf("unknown dedup policy %q", policy),
			})
		}
	}
	if raw := o.Any("status_enum"); raw != nil {
		vals := o.StringSlice("status_enum")
		if len(vals) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "validation.status_enum",
				Message:  "status_enum must be a non-empty array of strings when present",
			})
		} else {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "validation.status_enum",
				Message:  "status enum overridden; ensure the store's CHECK constraint matches",
			})
		}
	}

	return issues
}

// validateStorage validates storage configuration and DB settings.
func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}

	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations.
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	if r.MaxRetries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.max_retries",
			Message:  "max_retries must not be negative",
		})
	}
	if r.RetryBackoffMS < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.retry_backoff_ms",
			Message:  "retry_backoff_ms must not be negative",
		})
	}

	return issues
}
