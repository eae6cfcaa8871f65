// Package triage provides the business boundary for Scout's startup triage
// pipeline. It defines the domain models (Flag, Category, Startup, Snapshot),
// the deterministic keyword pre-filter, the LLM-backed classifier client with
// retry, the Engine (fetch, classify, enrich, rank, persist), the Service
// (run serialization, read access), and the SnapshotStore interface.
package triage
