// Package main hosts the batchmux CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into batch requests for
// the orchestrator: it resolves configuration, merges flag overrides, checks
// that ffmpeg and the output directory are usable, and renders progress and
// summaries. Conversion logic lives in the internal packages; commands here
// only wire collaborators together.
package main
