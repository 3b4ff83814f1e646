// Package compare implements the comparator: pure functions that take
// subject data and a requirement and produce a typed, deterministic
// collection of differences.
//
// Requirements form a closed set of variants (Requirement is sealed);
// the variant is resolved once at the assertion boundary and each
// comparison shape has exactly one handler. Comparisons never perform
// I/O and return nil when the subject conforms.
package compare
