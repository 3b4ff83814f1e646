package cli

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/obestwalter/datatest/internal/allow"
	"github.com/obestwalter/datatest/internal/compare"
	"github.com/obestwalter/datatest/internal/diff"
)

// Suite is a check-suite file: a named list of validation checks to run
// against a subject data source.
type Suite struct {
	// Name identifies the suite in reports.
	Name string `yaml:"name"`

	// Checks lists the validations to run, in order.
	Checks []Check `yaml:"checks"`
}

// Check is one validation: a comparison shape, the subject columns it
// reads, the required data or predicate, and the allowances that
// suppress expected differences.
type Check struct {
	// Name identifies the check in reports.
	Name string `yaml:"name"`

	// Type selects the comparison shape:
	//   - "columns": subject column names against a required set
	//   - "order": subject column names against a required sequence
	//   - "set": distinct column values against a required set
	//   - "sum": grouped column sums against a required mapping
	//   - "count": grouped non-empty counts against a required mapping
	//   - "regex": distinct column values against a pattern
	//   - "notregex": distinct column values must not match a pattern
	//   - "cue": distinct column values against a CUE constraint
	Type string `yaml:"type"`

	// Columns names the subject columns for set/regex/notregex/cue checks.
	Columns []string `yaml:"columns,omitempty"`

	// Column names the aggregated column for sum/count checks.
	Column string `yaml:"column,omitempty"`

	// Keys names the group-key columns for sum/count checks.
	Keys []string `yaml:"keys,omitempty"`

	// Pattern is the regular expression for regex/notregex checks.
	Pattern string `yaml:"pattern,omitempty"`

	// Schema is the CUE constraint expression for cue checks.
	Schema string `yaml:"schema,omitempty"`

	// Required holds the literal required data (a list for
	// columns/order/set, a map for sum/count). When omitted, the
	// reference source supplies the required data.
	Required any `yaml:"required,omitempty"`

	// Filters restricts subject (and reference) rows by column equality.
	Filters map[string]any `yaml:"filters,omitempty"`

	// Message overrides the default failure description.
	Message string `yaml:"message,omitempty"`

	// Allow lists allowance scopes applied to the check's failure, in
	// order (the first listed resolves first).
	Allow []AllowSpec `yaml:"allow,omitempty"`
}

// AllowSpec declares one allowance scope.
type AllowSpec struct {
	// Type selects the rule: only|any|missing|extra|deviation|percent.
	Type string `yaml:"type"`

	// Count limits any/missing/extra admissions; 0 means unlimited.
	Count int `yaml:"count,omitempty"`

	// Lower/Upper bound deviation rules; Tolerance is sugar for
	// symmetric bounds. Percent is the percent-deviation fraction.
	Lower     *float64 `yaml:"lower,omitempty"`
	Upper     *float64 `yaml:"upper,omitempty"`
	Tolerance *float64 `yaml:"tolerance,omitempty"`
	Percent   *float64 `yaml:"percent,omitempty"`

	// Filters restricts the rule to deviations carrying these
	// group-key attributes.
	Filters map[string]any `yaml:"filters,omitempty"`

	// Message overrides the residual failure description.
	Message string `yaml:"message,omitempty"`

	// Differences enumerates the expected differences of an "only" rule.
	Differences []DifferenceSpec `yaml:"differences,omitempty"`
}

// DifferenceSpec declares one expected difference for an "only"
// allowance.
type DifferenceSpec struct {
	Kind     string         `yaml:"kind"` // missing|extra|invalid|deviation
	Value    any            `yaml:"value,omitempty"`
	Expected any            `yaml:"expected,omitempty"`
	Delta    float64        `yaml:"delta,omitempty"`
	Attrs    map[string]any `yaml:"attrs,omitempty"`
}

// LoadSuite reads and parses a check-suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite file: %w", err)
	}
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parse suite file: %w", err)
	}
	if len(suite.Checks) == 0 {
		return nil, fmt.Errorf("suite %q has no checks", suite.Name)
	}
	for i, check := range suite.Checks {
		if check.Name == "" {
			return nil, fmt.Errorf("check %d has no name", i)
		}
		if check.Type == "" {
			return nil, fmt.Errorf("check %q has no type", check.Name)
		}
	}
	return &suite, nil
}

// buildScopes constructs the check's allowance stack and returns the
// rule descriptions in listed order for diagnostics. Scopes are pushed
// in reverse listed order so unwinding resolves them as listed.
func (c Check) buildScopes() (*allow.Stack, []string, error) {
	scopes := make([]*allow.Scope, len(c.Allow))
	for i, spec := range c.Allow {
		scope, err := spec.build()
		if err != nil {
			return nil, nil, fmt.Errorf("check %q allow[%d]: %w", c.Name, i, err)
		}
		scopes[i] = scope
	}

	stack := allow.NewStack()
	descriptions := make([]string, len(scopes))
	for i := len(scopes) - 1; i >= 0; i-- {
		stack.Push(scopes[i])
	}
	for i, scope := range scopes {
		descriptions[i] = scope.Describe()
	}
	return stack, descriptions, nil
}

// build constructs the allowance scope declared by the spec.
func (a AllowSpec) build() (*allow.Scope, error) {
	opts, err := a.options()
	if err != nil {
		return nil, err
	}

	switch a.Type {
	case "only":
		expected := make([]diff.Difference, len(a.Differences))
		for i, spec := range a.Differences {
			d, err := spec.build()
			if err != nil {
				return nil, fmt.Errorf("differences[%d]: %w", i, err)
			}
			expected[i] = d
		}
		return allow.Only(expected, opts...), nil

	case "any":
		return allow.Any(a.Count, opts...)

	case "missing":
		return allow.Missing(a.Count, opts...)

	case "extra":
		return allow.Extra(a.Count, opts...)

	case "deviation":
		if a.Tolerance != nil {
			return allow.Tolerance(*a.Tolerance, opts...)
		}
		if a.Lower == nil || a.Upper == nil {
			return nil, fmt.Errorf("deviation allowance needs tolerance or lower and upper bounds")
		}
		return allow.Deviation(*a.Lower, *a.Upper, opts...)

	case "percent":
		if a.Percent == nil {
			return nil, fmt.Errorf("percent allowance needs a percent value")
		}
		return allow.PercentDeviation(*a.Percent, opts...)

	default:
		return nil, fmt.Errorf("unknown allowance type %q", a.Type)
	}
}

func (a AllowSpec) options() ([]allow.Option, error) {
	var opts []allow.Option
	if a.Message != "" {
		opts = append(opts, allow.WithMessage(a.Message))
	}
	for field, raw := range a.Filters {
		v, err := diff.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", field, err)
		}
		opts = append(opts, allow.Where(field, v))
	}
	return opts, nil
}

// build constructs the expected difference declared by the spec.
func (d DifferenceSpec) build() (diff.Difference, error) {
	switch d.Kind {
	case "missing":
		v, err := diff.FromAny(d.Value)
		if err != nil {
			return nil, err
		}
		return diff.Missing{Value: v}, nil

	case "extra":
		v, err := diff.FromAny(d.Value)
		if err != nil {
			return nil, err
		}
		return diff.Extra{Value: v}, nil

	case "invalid":
		v, err := diff.FromAny(d.Value)
		if err != nil {
			return nil, err
		}
		var expected diff.Value
		if d.Expected != nil {
			expected, err = diff.FromAny(d.Expected)
			if err != nil {
				return nil, err
			}
		}
		return diff.Invalid{Value: v, Expected: expected}, nil

	case "deviation":
		expected, err := toFloat(d.Expected)
		if err != nil {
			return nil, fmt.Errorf("deviation expected: %w", err)
		}
		attrs, err := toAttrs(d.Attrs)
		if err != nil {
			return nil, err
		}
		return diff.NewDeviation(d.Delta, expected, attrs)

	default:
		return nil, fmt.Errorf("unknown difference kind %q", d.Kind)
	}
}

// valuesFromAny converts a YAML list into element values.
func valuesFromAny(raw any) ([]diff.Value, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("required data must be a list, got %T", raw)
	}
	return diff.Values(list...)
}

// mappingFromAny converts YAML required data into a grouped mapping.
// Accepts a plain map (string group keys) or a list of {key, value}
// entries (which also supports compound keys given as lists).
func mappingFromAny(raw any) (compare.Mapping, error) {
	switch data := raw.(type) {
	case map[string]any:
		// yaml.v3 preserves no order for maps; sort for determinism.
		var mapping compare.Mapping
		for _, key := range sortedMapKeys(data) {
			val, err := diff.FromAny(data[key])
			if err != nil {
				return nil, fmt.Errorf("required[%q]: %w", key, err)
			}
			mapping = append(mapping, compare.Pair{Key: diff.Text(key), Value: val})
		}
		return mapping, nil

	case []any:
		var mapping compare.Mapping
		for i, entry := range data {
			pair, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("required[%d]: expected {key, value} entry, got %T", i, entry)
			}
			key, err := diff.FromAny(pair["key"])
			if err != nil {
				return nil, fmt.Errorf("required[%d] key: %w", i, err)
			}
			val, err := diff.FromAny(pair["value"])
			if err != nil {
				return nil, fmt.Errorf("required[%d] value: %w", i, err)
			}
			mapping = append(mapping, compare.Pair{Key: key, Value: val})
		}
		return mapping, nil

	default:
		return nil, fmt.Errorf("required data must be a map or a list of {key, value} entries, got %T", raw)
	}
}

func sortedMapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", raw)
	}
}

func toAttrs(raw map[string]any) (map[string]diff.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	attrs := make(map[string]diff.Value, len(raw))
	for field, v := range raw {
		val, err := diff.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("attr %q: %w", field, err)
		}
		attrs[field] = val
	}
	return attrs, nil
}
