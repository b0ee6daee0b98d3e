package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"syscall"

	"batchmux/internal/services"
)

// Kind classifies why a conversion failed.
type Kind string

const (
	KindUnknown          Kind = "unknown"
	KindInvalidRequest   Kind = "invalid_request"
	KindInputUnreadable  Kind = "input_unreadable"
	KindOutputExists     Kind = "output_exists"
	KindUnsupportedCodec Kind = "unsupported_codec"
	KindPermission       Kind = "permission_denied"
	KindDiskFull         Kind = "disk_full"
	KindMissingBinary    Kind = "missing_binary"
	KindTimeout          Kind = "timeout"
	KindCanceled         Kind = "canceled"
)

// Error reports a failed conversion of one input.
type Error struct {
	Input   string
	Output  string
	Kind    Kind
	Message string
	Err     error
}

func newError(req Request, kind Kind, message string, err error) *Error {
	return &Error{Input: req.Input, Output: req.Output, Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != e.Err.Error() {
		return fmt.Sprintf("convert %s: %s (%s): %v", e.Input, e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("convert %s: %s (%s)", e.Input, e.Message, e.Kind)
}

// Unwrap exposes both the external-tool marker and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrExternalTool}
	}
	return []error{services.ErrExternalTool, e.Err}
}

var (
	reInputUnreadable = regexp.MustCompile(
		`(?i)No such file or directory|Invalid data found when processing input|` +
			`moov atom not found|EBML header parsing failed`)

	reUnsupportedCodec = regexp.MustCompile(
		`(?i)Could not find tag for codec|codec not currently supported in container|` +
			`Could not write header|Subtitle codec .* is not supported|Unknown encoder`)

	rePermission = regexp.MustCompile(`(?i)Permission denied|Operation not permitted|Read-only file system`)

	reDiskFull = regexp.MustCompile(`(?i)No space left on device|Disk quota exceeded`)
)

// Classify maps ffmpeg stderr output to a failure kind. Disk and permission
// problems are checked first because ffmpeg often reports them alongside a
// generic header-write error.
func Classify(stderr string) Kind {
	switch {
	case reDiskFull.MatchString(stderr):
		return KindDiskFull
	case rePermission.MatchString(stderr):
		return KindPermission
	case reUnsupportedCodec.MatchString(stderr):
		return KindUnsupportedCodec
	case reInputUnreadable.MatchString(stderr):
		return KindInputUnreadable
	default:
		return KindUnknown
	}
}

func classifyOSError(err error) Kind {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	case errors.Is(err, syscall.ENOSPC):
		return KindDiskFull
	default:
		return KindUnknown
	}
}
