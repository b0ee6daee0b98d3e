package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"batchmux/internal/logging"
	"batchmux/internal/services"
)

type recordedCall struct {
	name string
	args []string
}

func writeLastArg(calls *[]recordedCall) commandRunner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: append([]string(nil), args...)})
		return nil, os.WriteFile(args[len(args)-1], []byte("remuxed"), 0o644)
	}
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("source"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestBuildArgs(t *testing.T) {
	got := BuildArgs("/in/a.mkv", "/out/a.mp4", true, true)
	want := []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-y", "-i", "/in/a.mkv", "-c:v", "copy", "-c:a", "copy", "/out/a.mp4"}
	if !slices.Equal(got, want) {
		t.Fatalf("BuildArgs = %v, want %v", got, want)
	}

	got = BuildArgs("/in/a.mkv", "/out/a.mp4", false, false)
	if slices.Contains(got, "copy") {
		t.Fatalf("expected no stream copy args, got %v", got)
	}
	if !slices.Contains(got, "-n") || slices.Contains(got, "-y") {
		t.Fatalf("expected -n without -y, got %v", got)
	}
}

func TestConvertWritesOutputDirectly(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "clip.mkv")
	output := filepath.Join(dir, "out", "clip.mp4")

	var calls []recordedCall
	eng := NewFFmpeg(Options{Binary: "ffmpeg-test"}, logging.NewNop())
	eng.WithCommandRunner(writeLastArg(&calls))

	if err := eng.Convert(context.Background(), Request{Input: input, Output: output, CopyStreams: true, Overwrite: true}); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(calls) != 1 || calls[0].name != "ffmpeg-test" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if last := calls[0].args[len(calls[0].args)-1]; last != output {
		t.Fatalf("expected ffmpeg to write %q, wrote %q", output, last)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestConvertAtomicRenamesPartial(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "clip.mkv")
	output := filepath.Join(dir, "clip.mp4")

	var calls []recordedCall
	eng := NewFFmpeg(Options{AtomicWrites: true}, logging.NewNop())
	eng.WithCommandRunner(writeLastArg(&calls))

	if err := eng.Convert(context.Background(), Request{Input: input, Output: output, CopyStreams: true}); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	written := calls[0].args[len(calls[0].args)-1]
	if filepath.Base(written) != ".partial-clip.mp4" {
		t.Fatalf("expected partial target, got %q", written)
	}
	if filepath.Ext(written) != ".mp4" {
		t.Fatalf("partial path must keep container extension, got %q", written)
	}
	if _, err := os.Stat(written); !os.IsNotExist(err) {
		t.Fatalf("expected partial file to be renamed away, stat err=%v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil || string(data) != "remuxed" {
		t.Fatalf("unexpected output contents %q err=%v", data, err)
	}
}

func TestConvertFailureRemovesPartialAndClassifies(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "broken.mkv")
	output := filepath.Join(dir, "broken.mp4")

	eng := NewFFmpeg(Options{AtomicWrites: true}, logging.NewNop())
	eng.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		_ = os.WriteFile(args[len(args)-1], []byte("half"), 0o644)
		return []byte("frame=1\n[matroska] EBML header parsing failed\nbroken.mkv: Invalid data found when processing input\n"), errors.New("exit status 1")
	})

	err := eng.Convert(context.Background(), Request{Input: input, Output: output, CopyStreams: true})
	var engErr *Error
	if !errors.As(err, &engErr) {
		t.Fatalf("expected *Error, got %T %v", err, err)
	}
	if engErr.Kind != KindInputUnreadable {
		t.Fatalf("expected input_unreadable, got %s", engErr.Kind)
	}
	if !strings.Contains(engErr.Message, "Invalid data found") {
		t.Fatalf("expected stderr tail in message, got %q", engErr.Message)
	}
	if engErr.Input != input || engErr.Output != output {
		t.Fatalf("unexpected paths on error: %+v", engErr)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker")
	}
	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), partialPrefix) || entry.Name() == "broken.mp4" {
			t.Fatalf("unexpected leftover %s", entry.Name())
		}
	}
}

func TestConvertRejectsInvalidRequests(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "clip.mkv")
	existing := writeInput(t, dir, "taken.mp4")

	calls := 0
	eng := NewFFmpeg(Options{}, logging.NewNop())
	eng.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		calls++
		return nil, nil
	})

	tests := []struct {
		name string
		req  Request
		kind Kind
	}{
		{"empty", Request{}, KindInvalidRequest},
		{"same path", Request{Input: input, Output: input}, KindInvalidRequest},
		{"missing input", Request{Input: filepath.Join(dir, "nope.mkv"), Output: filepath.Join(dir, "nope.mp4")}, KindInputUnreadable},
		{"exists without overwrite", Request{Input: input, Output: existing}, KindOutputExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eng.Convert(context.Background(), tt.req)
			var engErr *Error
			if !errors.As(err, &engErr) || engErr.Kind != tt.kind {
				t.Fatalf("expected kind %s, got %v", tt.kind, err)
			}
		})
	}
	if calls != 0 {
		t.Fatalf("expected ffmpeg not to run, ran %d times", calls)
	}
}

func TestConvertTimeout(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "slow.mkv")

	eng := NewFFmpeg(Options{Timeout: 10 * time.Millisecond}, logging.NewNop())
	eng.WithCommandRunner(func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, errors.New("signal: killed")
	})

	err := eng.Convert(context.Background(), Request{Input: input, Output: filepath.Join(dir, "slow.mp4"), Overwrite: true})
	var engErr *Error
	if !errors.As(err, &engErr) || engErr.Kind != KindTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected deadline exceeded and timeout marker in chain")
	}
}

func TestConvertCanceled(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "clip.mkv")
	ctx, cancel := context.WithCancel(context.Background())

	eng := NewFFmpeg(Options{}, logging.NewNop())
	eng.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		cancel()
		return nil, errors.New("signal: killed")
	})

	err := eng.Convert(ctx, Request{Input: input, Output: filepath.Join(dir, "clip.mp4"), Overwrite: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		stderr string
		want   Kind
	}{
		{"out.mp4: No space left on device", KindDiskFull},
		{"Could not write header for output file #0: Permission denied", KindPermission},
		{"Could not find tag for codec pcm_dvd in stream #1, codec not currently supported in container", KindUnsupportedCodec},
		{"in.mkv: No such file or directory", KindInputUnreadable},
		{"something unexpected", KindUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.stderr); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.stderr, got, tt.want)
		}
	}
}

func TestConvertWithStubBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\nin=\"\"\nout=\"\"\nwhile [ $# -gt 0 ]; do\n  if [ \"$1\" = \"-i\" ]; then in=\"$2\"; shift 2; continue; fi\n  out=\"$1\"\n  shift\ndone\ncp \"$in\" \"$out\"\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	input := writeInput(t, dir, "clip.mkv")
	output := filepath.Join(dir, "converted", "clip.mp4")

	eng := NewFFmpeg(Options{Binary: stub, AtomicWrites: true}, logging.NewNop())
	if err := eng.Convert(context.Background(), Request{Input: input, Output: output, CopyStreams: true}); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil || string(data) != "source" {
		t.Fatalf("unexpected output %q err=%v", data, err)
	}
}

func TestVersion(t *testing.T) {
	eng := NewFFmpeg(Options{}, logging.NewNop())
	eng.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("ffmpeg version 7.1 Copyright (c) 2000-2024\nbuilt with gcc\n"), nil
	})
	got, err := eng.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if got != "ffmpeg version 7.1 Copyright (c) 2000-2024" {
		t.Fatalf("unexpected version %q", got)
	}
}
