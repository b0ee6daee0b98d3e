package engine

import (
	"context"
	"fmt"
	"strings"
)

// Version reports the first line of `ffmpeg -version`.
func (f *FFmpeg) Version(ctx context.Context) (string, error) {
	out, err := f.run(ctx, f.opts.Binary, "-hide_banner", "-version")
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", f.opts.Binary, err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line), nil
}
