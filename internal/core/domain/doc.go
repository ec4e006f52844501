// Package domain defines the core business entities for DocVault.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A stored document with derived entity fields
//   - EmbeddingRecord: A document's vector representation
//   - AuditEntry: A hash-chained record of a guarded action
//   - SafeQuery: A sanitised search query
//   - RouterResult: The normalised outcome of a routed query
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
