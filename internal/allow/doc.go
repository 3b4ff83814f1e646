// Package allow implements the allowance engine: composable scoped
// filters that suppress expected or tolerated differences before a
// residual failure is raised.
//
// Each scope owns a predicate over differences, an optional count
// limit, and optional field filters. Scopes combine with And/Or and
// nest through a LIFO Stack; a structured failure propagates through
// the active scopes innermost-first, each filtering the difference set,
// until a scope swallows it (empty residue) or the residue reaches the
// test framework.
//
// Non-data errors pass through every scope unfiltered and unmodified.
// Misconfigured allowances (lower > upper, negative tolerance or count)
// fail at construction time with a *ConfigError.
package allow
