package allow

import (
	"fmt"
	"math"

	"github.com/obestwalter/datatest/internal/diff"
)

// Only admits a difference iff it structurally equals one of the
// enumerated expected differences; each expected difference is consumed
// at most once (multiset semantics). Enumerated differences that are
// never observed are themselves an error: Resolve surfaces them under
// the "allowed difference not found" context label even when the
// observed residue is empty.
func Only(expected []diff.Difference, opts ...Option) *Scope {
	o := applyOptions(opts)
	return &Scope{rule: onlyRule{expected: expected, filters: o.filters}, msg: o.msg}
}

type onlyRule struct {
	expected []diff.Difference
	filters  Filters
}

func (r onlyRule) describe() string {
	return fmt.Sprintf("allow only %d enumerated differences", len(r.expected))
}

func (r onlyRule) newPredicate() predicate {
	p := &onlyPredicate{
		remaining: make(map[string]int, len(r.expected)),
		filters:   r.filters,
	}
	// Keep one exemplar per key, in enumeration order, for leftover
	// reporting.
	for _, d := range r.expected {
		key := d.Key()
		if p.remaining[key] == 0 {
			p.order = append(p.order, d)
		}
		p.remaining[key]++
	}
	return p
}

type onlyPredicate struct {
	remaining map[string]int
	order     []diff.Difference
	filters   Filters
}

func (p *onlyPredicate) matches(e entry) bool {
	return p.remaining[e.d.Key()] > 0 && matchesFilters(e, p.filters)
}

func (p *onlyPredicate) consume(e entry) { p.remaining[e.d.Key()]-- }

func (p *onlyPredicate) leftover() []diff.Difference {
	var out []diff.Difference
	for _, d := range p.order {
		for i := 0; i < p.remaining[d.Key()]; i++ {
			out = append(out, d)
		}
	}
	return out
}

// kindMask restricts a counting rule to particular difference variants.
type kindMask int

const (
	anyKind kindMask = iota
	missingKind
	extraKind
)

func (m kindMask) matches(d diff.Difference) bool {
	switch m {
	case missingKind:
		_, ok := d.(diff.Missing)
		return ok
	case extraKind:
		_, ok := d.(diff.Extra)
		return ok
	default:
		return true
	}
}

// Any admits up to number differences of any kind that satisfy the
// field filters; number zero means unlimited. Admission is first-come
// in encounter order, so the residue is deterministic: the first
// matching differences are admitted and the excess remains.
func Any(number int, opts ...Option) (*Scope, error) {
	return countingScope("any", anyKind, number, opts)
}

// Missing specializes Any to Missing differences only.
func Missing(number int, opts ...Option) (*Scope, error) {
	return countingScope("missing", missingKind, number, opts)
}

// Extra specializes Any to Extra differences only.
func Extra(number int, opts ...Option) (*Scope, error) {
	return countingScope("extra", extraKind, number, opts)
}

func countingScope(name string, mask kindMask, number int, opts []Option) (*Scope, error) {
	if number < 0 {
		return nil, &ConfigError{Rule: name, Reason: fmt.Sprintf("count must not be negative, got %d", number)}
	}
	o := applyOptions(opts)
	return &Scope{
		rule: countingRule{name: name, mask: mask, limit: number, filters: o.filters},
		msg:  o.msg,
	}, nil
}

type countingRule struct {
	name    string
	mask    kindMask
	limit   int // 0 means unlimited
	filters Filters
}

func (r countingRule) describe() string {
	if r.limit == 0 {
		return fmt.Sprintf("allow %s differences", r.name)
	}
	return fmt.Sprintf("allow up to %d %s differences", r.limit, r.name)
}

func (r countingRule) newPredicate() predicate {
	return &countingPredicate{rule: r}
}

type countingPredicate struct {
	rule countingRule
	used int
}

func (p *countingPredicate) matches(e entry) bool {
	if !p.rule.mask.matches(e.d) {
		return false
	}
	if !matchesFilters(e, p.rule.filters) {
		return false
	}
	return p.rule.limit == 0 || p.used < p.rule.limit
}

func (p *countingPredicate) consume(e entry) { p.used++ }

// Deviation admits Deviation differences with lower <= delta <= upper,
// inclusive. The bounds must straddle zero: lower <= 0 <= upper.
func Deviation(lower, upper float64, opts ...Option) (*Scope, error) {
	if lower > 0 || upper < 0 {
		return nil, &ConfigError{
			Rule:   "deviation",
			Reason: fmt.Sprintf("bounds must satisfy lower <= 0 <= upper, got [%v, %v]", lower, upper),
		}
	}
	if math.IsNaN(lower) || math.IsNaN(upper) {
		return nil, &ConfigError{Rule: "deviation", Reason: "bounds must be defined numbers"}
	}
	o := applyOptions(opts)
	return &Scope{
		rule: deviationRule{lower: lower, upper: upper, filters: o.filters},
		msg:  o.msg,
	}, nil
}

// Tolerance is sugar for Deviation(-tolerance, +tolerance). The
// tolerance must not be negative.
func Tolerance(tolerance float64, opts ...Option) (*Scope, error) {
	if tolerance < 0 || math.IsNaN(tolerance) {
		return nil, &ConfigError{
			Rule:   "deviation",
			Reason: fmt.Sprintf("tolerance must not be negative, got %v; use Deviation for asymmetric bounds", tolerance),
		}
	}
	return Deviation(-tolerance, tolerance, opts...)
}

type deviationRule struct {
	lower, upper float64
	filters      Filters
}

func (r deviationRule) describe() string {
	return fmt.Sprintf("allow deviations in [%v, %v]", r.lower, r.upper)
}

func (r deviationRule) newPredicate() predicate { return deviationPredicate{rule: r} }

type deviationPredicate struct {
	rule deviationRule
}

func (p deviationPredicate) matches(e entry) bool {
	dev, ok := e.d.(diff.Deviation)
	if !ok {
		return false
	}
	if !matchesFilters(e, p.rule.filters) {
		return false
	}
	// NaN deltas fail both bounds checks and are never admitted.
	return dev.Delta >= p.rule.lower && dev.Delta <= p.rule.upper
}

func (deviationPredicate) consume(entry) {}

// PercentDeviation admits Deviation differences whose delta, as a
// fraction of the non-zero expected value, is within the given
// deviation: |delta / expected| <= deviation.
func PercentDeviation(deviation float64, opts ...Option) (*Scope, error) {
	if deviation < 0 || math.IsNaN(deviation) {
		return nil, &ConfigError{
			Rule:   "percent deviation",
			Reason: fmt.Sprintf("deviation must not be negative, got %v", deviation),
		}
	}
	o := applyOptions(opts)
	return &Scope{
		rule: percentRule{deviation: deviation, filters: o.filters},
		msg:  o.msg,
	}, nil
}

type percentRule struct {
	deviation float64
	filters   Filters
}

func (r percentRule) describe() string {
	return fmt.Sprintf("allow deviations within %v%% of expected", r.deviation*100)
}

func (r percentRule) newPredicate() predicate { return percentPredicate{rule: r} }

type percentPredicate struct {
	rule percentRule
}

func (p percentPredicate) matches(e entry) bool {
	dev, ok := e.d.(diff.Deviation)
	if !ok {
		return false
	}
	if !matchesFilters(e, p.rule.filters) {
		return false
	}
	if dev.Expected == 0 || math.IsNaN(dev.Delta) {
		return false
	}
	return math.Abs(dev.Delta/dev.Expected) <= p.rule.deviation
}

func (percentPredicate) consume(entry) {}

// And combines two scopes' predicates pointwise: a difference is
// admitted iff both admit it. Counting state in either operand advances
// only when the combined predicate admits.
func And(a, b *Scope, opts ...Option) *Scope {
	o := applyOptions(opts)
	return &Scope{rule: comboRule{a: a.rule, b: b.rule, or: false}, msg: o.msg}
}

// Or combines two scopes' predicates pointwise: a difference is
// admitted if either admits it. When both match, only the left operand
// consumes.
func Or(a, b *Scope, opts ...Option) *Scope {
	o := applyOptions(opts)
	return &Scope{rule: comboRule{a: a.rule, b: b.rule, or: true}, msg: o.msg}
}

type comboRule struct {
	a, b rule
	or   bool
}

func (r comboRule) describe() string {
	op := "and"
	if r.or {
		op = "or"
	}
	return fmt.Sprintf("(%s) %s (%s)", r.a.describe(), op, r.b.describe())
}

func (r comboRule) newPredicate() predicate {
	return &comboPredicate{a: r.a.newPredicate(), b: r.b.newPredicate(), or: r.or}
}

type comboPredicate struct {
	a, b predicate
	or   bool
}

func (p *comboPredicate) matches(e entry) bool {
	if p.or {
		return p.a.matches(e) || p.b.matches(e)
	}
	return p.a.matches(e) && p.b.matches(e)
}

func (p *comboPredicate) consume(e entry) {
	if p.or {
		if p.a.matches(e) {
			p.a.consume(e)
		} else {
			p.b.consume(e)
		}
		return
	}
	p.a.consume(e)
	p.b.consume(e)
}

// leftover forwards over-specification reporting from combined
// allow-only operands.
func (p *comboPredicate) leftover() []diff.Difference {
	var out []diff.Difference
	if lr, ok := p.a.(leftoverReporter); ok {
		out = append(out, lr.leftover()...)
	}
	if lr, ok := p.b.(leftoverReporter); ok {
		out = append(out, lr.leftover()...)
	}
	return out
}
