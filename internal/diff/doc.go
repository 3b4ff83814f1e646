// Package diff defines the difference model: typed, immutable records of
// data non-conformance (Missing, Extra, Invalid, Deviation) and the sealed
// Value type that subject and reference elements are expressed in.
//
// This package contains value types only. All other internal packages
// import diff; diff imports nothing internal, keeping it the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Differences are value objects with structural equality via Key()
//   - Numeric comparison is exact - tolerance lives in the allow package
//   - All reported collections are deterministically ordered
package diff
