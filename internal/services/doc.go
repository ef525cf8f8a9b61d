// Package services defines shared utilities consumed by the analysis pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs and component names for logging
//     and tracing.
//   - Structured error markers plus the Wrap helper that let the API layer map
//     failures onto status codes without string matching.
//
// Use these helpers when wiring new collaborators so error handling and
// observability stay uniform across the pipeline.
package services
