package allow

import (
	"fmt"

	"github.com/obestwalter/datatest/internal/diff"
	"github.com/obestwalter/datatest/internal/validate"
)

// Scope is a scoped allowance filter. A scope is armed when created and
// resolved exactly once: Resolve applies the scope's predicate to every
// difference carried by a structured failure and either suppresses the
// failure (empty residue) or re-raises a new failure carrying only the
// unallowed residue.
//
// Resolve implements the exit(error?) -> error? contract:
//   - nil in, nil out (the scope was never exercised)
//   - an error that is not a *validate.ValidationError is returned
//     unmodified - non-data failures are never filtered
//   - a *validate.ValidationError is filtered; nil is returned when
//     every difference was admitted
//
// Scopes hold no state between resolutions and nothing persists across
// test cases; counting limits reset on every Resolve.
type Scope struct {
	rule rule
	msg  string
}

// entry is one difference in encounter order, with its group key when
// it came from a grouped comparison (nil key for flat differences).
type entry struct {
	key diff.Value
	d   diff.Difference
}

// rule builds a fresh predicate per resolution so counting limits and
// multiset consumption never leak between resolutions.
type rule interface {
	describe() string
	newPredicate() predicate
}

// predicate partitions a difference stream. matches must be free of
// side effects so combinators can probe both operands before either
// consumes; consume records an admission.
type predicate interface {
	matches(e entry) bool
	consume(e entry)
}

// leftoverReporter is implemented by predicates that can be
// over-specified (allow-only): after filtering, leftover returns the
// expected differences that were never observed.
type leftoverReporter interface {
	leftover() []diff.Difference
}

// Resolve filters a carried error through the scope. See the Scope
// documentation for the full contract.
func (s *Scope) Resolve(err error) error {
	if err == nil {
		return nil
	}
	verr := validate.AsValidationError(err)
	if verr == nil {
		return err // non-data failure, pass through unfiltered
	}

	p := s.rule.newPredicate()

	var residueFlat []diff.Difference
	for _, d := range verr.Differences {
		e := entry{d: d}
		if p.matches(e) {
			p.consume(e)
			continue
		}
		residueFlat = append(residueFlat, d)
	}

	var residueKeyed []diff.Keyed
	for _, k := range verr.Keyed {
		var kept []diff.Difference
		for _, d := range k.Diffs {
			e := entry{key: k.Key, d: d}
			if p.matches(e) {
				p.consume(e)
				continue
			}
			kept = append(kept, d)
		}
		if len(kept) > 0 {
			residueKeyed = append(residueKeyed, diff.Keyed{Key: k.Key, Diffs: kept})
		}
	}

	// An allow-only scope whose enumerated differences were not all
	// observed is itself a failure: surface the unmatched expectations
	// under a distinct context label rather than passing silently.
	if lr, ok := p.(leftoverReporter); ok {
		if unmatched := lr.leftover(); len(unmatched) > 0 {
			residueKeyed = append(residueKeyed, diff.Keyed{
				Key:   diff.Text("allowed difference not found"),
				Diffs: unmatched,
			})
		}
	}

	if len(residueFlat) == 0 && len(residueKeyed) == 0 {
		return nil // every difference admitted, failure suppressed
	}

	desc := s.msg
	if desc == "" {
		desc = verr.Description
	}
	return &validate.ValidationError{
		Description: desc,
		Differences: residueFlat,
		Keyed:       residueKeyed,
		Subject:     verr.Subject,
		Required:    verr.Required,
	}
}

// Describe returns a human-readable description of the scope's rule.
func (s *Scope) Describe() string { return s.rule.describe() }

// ConfigError reports an invalid allowance configuration. Allowance
// misconfiguration is fatal at scope construction time, never deferred
// to comparison time.
type ConfigError struct {
	Rule   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s allowance: %s", e.Rule, e.Reason)
}

// Option configures a scope at construction.
type Option func(*options)

type options struct {
	msg     string
	filters Filters
}

// Filters is a keyword-equality constraint over the attributes carried
// by grouped deviations (e.g. department="finance"). A non-empty filter
// never matches a difference without attributes.
type Filters map[string]diff.Value

// WithMessage sets the description used when the scope re-raises a
// residual failure.
func WithMessage(msg string) Option {
	return func(o *options) { o.msg = msg }
}

// Where adds a field filter. Multiple Where options accumulate; all
// fields must match for a difference to be admitted.
func Where(field string, value diff.Value) Option {
	return func(o *options) {
		if o.filters == nil {
			o.filters = Filters{}
		}
		o.filters[field] = value
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// matchesFilters reports whether a difference satisfies the field
// filters. Only deviations carry attributes; every other difference
// fails a non-empty filter.
func matchesFilters(e entry, filters Filters) bool {
	if len(filters) == 0 {
		return true
	}
	dev, ok := e.d.(diff.Deviation)
	if !ok {
		return false
	}
	for field, want := range filters {
		got, present := dev.Attrs[field]
		if !present || diff.Encode(got) != diff.Encode(want) {
			return false
		}
	}
	return true
}
