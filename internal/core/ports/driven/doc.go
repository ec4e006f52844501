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
//   - DocumentStore: Document and derived-entity persistence
//   - EmbeddingStore: Embedding record persistence
//   - AuditStore: Audit trail persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Embedder: Generates vector embeddings. Without it, semantic search is disabled.
//   - AnalysisEngine: Generative analysis. Without it, complex queries degrade to semantic results.
//   - ModelStore: Local model artifact management for the analysis engine.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
