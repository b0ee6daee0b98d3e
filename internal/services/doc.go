// Package services holds the cross-cutting plumbing shared by the batch
// orchestrator, the conversion engine, and the CLI: error markers used for
// failure classification and context keys consumed by the logging package.
package services
