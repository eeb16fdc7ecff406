// Package domain defines the core entities of the memory engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SummaryRecord: A summarised conversation session
//   - Fragment: One indexable unit derived from a summary
//   - IndexHit: A single result from the lexical or semantic index
//   - RankedDocument: A fused, scored and bucketed retrieval result
//   - Settings: Index, embedding and fusion configuration
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
