// Package engine wraps the external ffmpeg binary as the conversion engine
// used by the batch orchestrator.
//
// Each Convert call is one blocking ffmpeg invocation that remuxes the input
// into the container implied by the output extension, copying audio and video
// streams without re-encoding. When atomic writes are enabled the output is
// produced under a hidden partial name and renamed into place only after
// ffmpeg succeeds, so a failed or interrupted job never leaves a truncated
// file at the destination.
//
// Failures are returned as *Error values carrying the tail of ffmpeg's stderr
// and a coarse classification derived from it.
package engine
