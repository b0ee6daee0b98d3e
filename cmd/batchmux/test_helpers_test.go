package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// stubFFmpeg copies the -i input to the last argument and fails for inputs
// whose name contains "broken".
const stubFFmpeg = `#!/bin/sh
if [ "$1" = "-hide_banner" ] && [ "$2" = "-version" ]; then
  echo "ffmpeg version 0.0-stub"
  exit 0
fi
in=""
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-i" ]; then in="$2"; shift 2; continue; fi
  out="$1"
  shift
done
case "$in" in
  *broken*) echo "$in: Invalid data found when processing input" >&2; exit 1 ;;
esac
cp "$in" "$out"
`

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	inputDir   string
	ffmpeg     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("BATCHMUX_FFMPEG", "")

	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte(stubFFmpeg), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "batchmux.toml"),
		outputDir:  filepath.Join(base, "out"),
		inputDir:   filepath.Join(base, "in"),
		ffmpeg:     ffmpeg,
	}
	if err := os.MkdirAll(env.inputDir, 0o755); err != nil {
		t.Fatalf("mkdir inputs: %v", err)
	}

	content := fmt.Sprintf(`[engine]
ffmpeg_binary = %q

[batch]
prefix = "video"

[logging]
level = "error"
dir = %q

[history]
path = %q
`, ffmpeg, filepath.Join(base, "logs"), filepath.Join(base, "history.db"))
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliTestEnv) writeInputs(t *testing.T, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(e.inputDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("media:"+name), 0o644); err != nil {
			t.Fatalf("write input: %v", err)
		}
		paths = append(paths, path)
	}
	return paths
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireFile(t *testing.T, path, contents string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected %s: %v", path, err)
	}
	if contents != "" && string(data) != contents {
		t.Fatalf("unexpected contents of %s: %q", path, data)
	}
}

func listMedia(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names
}
