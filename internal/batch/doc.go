// Package batch turns a list of input media files into an ordered set of
// conversion jobs and runs them one at a time through a conversion engine.
//
// Plan resolves every output path through the naming package and rejects the
// batch before any file is touched when two jobs would write the same output
// or a job would overwrite another job's input. Orchestrator.Run then walks
// the plan strictly in order, records per-job failures without stopping, and
// reports round((i+1)/total*100) to the progress sink after each attempt.
// Cancellation is observed only between jobs; an engine call that has started
// always runs to completion.
package batch
