// Package services defines shared utilities consumed by the pipeline
// collaborators.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that keep collaborator
//     failures classifiable after they cross the pipeline boundary.
//   - Operator-facing hints derived from the error classification, used when
//     logging item failures.
//
// Use these helpers when wiring new collaborator logic so error handling and
// observability stay uniform across the pipeline.
package services
