// Package validate partitions incoming batches by declarative constraint rules.
package validate

import (
	"fmt"

	"github.com/rs/zerolog"

	"fx-market-risk/internal/logging"
)

// Action tells the validator what to do with a record that fails a rule.
type Action int

const (
	// Drop removes the offending record from the accepted set and continues.
	Drop Action = iota
	// Fail aborts the whole batch.
	Fail
	// Warn keeps the record but logs the violation.
	Warn
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case Drop:
		return "drop"
	case Fail:
		return "fail"
	case Warn:
		return "warn"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Rule pairs a predicate with its enforcement action. The predicate returns
// true when the record conforms.
type Rule[T any] struct {
	Name      string
	Action    Action
	Predicate func(T) bool
}

// Violation captures a rejected record together with the rule it broke.
type Violation[T any] struct {
	Record T
	Rule   string
}

// BatchError is returned when a Fail-action rule is violated.
type BatchError struct {
	Rule string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("validate: batch failed rule %q", e.Rule)
}

// Validator evaluates a fixed rule set uniformly over a batch.
type Validator[T any] struct {
	rules  []Rule[T]
	logger zerolog.Logger
}

// New constructs a Validator from its rule set.
func New[T any](rules []Rule[T], logger zerolog.Logger) *Validator[T] {
	return &Validator[T]{rules: rules, logger: logging.WithComponent(logger, "validator")}
}

// Apply partitions a batch into accepted records and violations. A record is
// checked against every rule; the first Drop violation excludes it, a Fail
// violation aborts the batch, Warn violations are logged only.
func (v *Validator[T]) Apply(batch []T) ([]T, []Violation[T], error) {
	accepted := make([]T, 0, len(batch))
	var rejected []Violation[T]

	for _, rec := range batch {
		keep := true
		for _, rule := range v.rules {
			if rule.Predicate(rec) {
				continue
			}
			switch rule.Action {
			case Fail:
				return nil, nil, &BatchError{Rule: rule.Name}
			case Warn:
				v.logger.Warn().Str("rule", rule.Name).Msg("constraint violated")
			case Drop:
				rejected = append(rejected, Violation[T]{Record: rec, Rule: rule.Name})
				keep = false
			}
			if !keep {
				break
			}
		}
		if keep {
			accepted = append(accepted, rec)
		}
	}

	if len(rejected) > 0 {
		v.logger.Warn().Int("rejected", len(rejected)).Int("accepted", len(accepted)).Msg("records dropped by validation")
	}
	return accepted, rejected, nil
}
