// Package preflight provides readiness checks for the external binaries and
// filesystem paths a batch depends on.
//
// The CLI runs these before a batch starts so a missing ffmpeg or an
// unwritable output directory is reported once, up front, instead of as a
// failure on every job. The `check` command prints the same results.
package preflight
