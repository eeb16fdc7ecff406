// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - LexicalIndex: Keyword search over fragments (SQLite FTS5 or bleve)
//   - SemanticIndex: Cosine similarity search over fragment embeddings (chromem-go)
//   - EmbeddingService: Turns text into vectors for the semantic index
//   - SummaryStore: Session summary lookup for the indexing pipeline
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Metrics: Operational counters and latencies. A nil recorder records nothing.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
