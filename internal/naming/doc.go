// Package naming derives output file names for batch conversion jobs.
//
// A Policy selects one of two schemes: OriginalName keeps each input's stem
// and swaps its extension, SequencePrefix numbers outputs by their zero-based
// position in the batch ("video0.mp4", "video1.mp4", ...). Resolve is pure:
// it performs no I/O and returns the same name for the same arguments.
//
// CollisionKey canonicalizes resolved paths so the orchestrator can detect two
// jobs that would write the same file, optionally folding case for
// filesystems that do not distinguish "Clip.mp4" from "clip.mp4".
package naming
