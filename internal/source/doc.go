// Package source provides the tabular data collaborator: an in-memory
// SQLite table with distinct, grouped-sum, and grouped-count queries
// plus keyword row filters.
//
// The validation core never performs I/O itself; it consumes the
// element collections and grouped mappings this package produces. All
// queries are parameterized, identifiers are validated against a
// whitelist pattern, and every query carries ORDER BY so results are
// deterministic.
package source
