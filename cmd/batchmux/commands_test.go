package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"batchmux/internal/batch"
	"batchmux/internal/engine"
	"batchmux/internal/services"
)

func TestConvertSingleFile(t *testing.T) {
	env := setupCLITestEnv(t)
	inputs := env.writeInputs(t, "movie.mkv")
	output := filepath.Join(env.baseDir, "elsewhere", "Movie.MP4")

	out, _, err := runCLI(t, []string{"convert", inputs[0], output}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	requireContains(t, out, "Converted")
	if strings.Contains(out, "Progress") {
		t.Fatalf("single-file convert reports no progress: %q", out)
	}
	requireFile(t, output, "media:movie.mkv")
}

func TestConvertFailureExitCode(t *testing.T) {
	env := setupCLITestEnv(t)
	inputs := env.writeInputs(t, "broken.mkv")
	_, _, err := runCLI(t, []string{"convert", inputs[0], filepath.Join(env.outputDir, "x.mp4")}, env.configPath)
	var engErr *engine.Error
	if !errors.As(err, &engErr) {
		t.Fatalf("expected engine error, got %v", err)
	}
	if exitCode(err) != 1 {
		t.Fatalf("expected exit 1, got %d", exitCode(err))
	}
}

func TestConvertRejectsUnsupportedOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	inputs := env.writeInputs(t, "movie.mkv")
	_, _, err := runCLI(t, []string{"convert", inputs[0], filepath.Join(env.outputDir, "movie.avi")}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[batch]\nextension = \".avi\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", t.TempDir())
	if _, _, err := runCLI(t, []string{"config", "validate"}, path); err == nil {
		t.Fatal("expected validation failure")
	}
	_, _, err := runCLI(t, []string{"batch", "-o", t.TempDir()}, path)
	if !errors.Is(err, services.ErrConfiguration) || exitCode(err) != 2 {
		t.Fatalf("expected configuration error with exit 2, got %v", err)
	}
}

func TestHistoryListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	inputs := env.writeInputs(t, "a.mkv", "broken.mkv")
	if _, _, err := runCLI(t, append([]string{"batch", "-o", env.outputDir, "--progress", "none"}, inputs...), env.configPath); err == nil {
		t.Fatal("expected batch failure")
	}

	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "1/2")
	requireContains(t, out, "failed")

	lines := strings.Split(out, "\n")
	var id string
	for _, line := range lines {
		if strings.Contains(line, "1/2") {
			id = strings.TrimSpace(strings.Trim(strings.Fields(line)[1], "│|"))
			break
		}
	}
	if id == "" {
		t.Fatalf("could not find batch id in %q", out)
	}

	out, _, err = runCLI(t, []string{"history", "show", id}, env.configPath)
	if err != nil {
		t.Fatalf("history show %s: %v", id, err)
	}
	requireContains(t, out, "video0.mp4")
	requireContains(t, out, "succeeded")
	requireContains(t, out, "Invalid data found")
}

func TestHistoryShowMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"history", "show", "does-not-exist"}, env.configPath)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"check", "-o", env.inputDir}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "ffmpeg version 0.0-stub")
	requireContains(t, out, "Output directory")

	_, _, err = runCLI(t, []string{"check", "-o", filepath.Join(env.baseDir, "missing")}, env.configPath)
	if exitCode(err) != 1 {
		t.Fatalf("expected exit 1 for failing check, got %v", err)
	}
}

func TestRenderSummary(t *testing.T) {
	result := batch.Result{
		BatchID:   "abc",
		Completed: 3,
		Total:     4,
		Failures: []batch.Failure{{
			Index:     1,
			InputPath: "/in/b.mkv",
			Err:       &engine.Error{Input: "/in/b.mkv", Kind: engine.KindUnsupportedCodec, Message: "codec not currently supported in container"},
		}},
	}
	out := renderSummary(result, false)
	requireContains(t, out, "3/4")
	requireContains(t, out, "unsupported_codec")
	requireContains(t, out, "/in/b.mkv")
	if strings.Contains(out, ansiReset) {
		t.Fatal("expected no color codes when colorize is false")
	}
	if colored := renderSummary(result, true); !strings.Contains(colored, ansiRed) {
		t.Fatal("expected failure lines to be red when colorized")
	}
}

func TestExitCodeMapping(t *testing.T) {
	if exitCode(&exitError{code: 1, err: errors.New("x")}) != 1 {
		t.Fatal("exitError code not honored")
	}
	if exitCode(batch.ErrOutputCollision) != 2 {
		t.Fatal("collision should exit 2")
	}
	if exitCode(errors.New("boom")) != 1 {
		t.Fatal("generic errors exit 1")
	}
}
