package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeEngine()
	if err := c.normalizeBatch(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return c.normalizeHistory()
}

func (c *Config) normalizeEngine() {
	c.Engine.FFmpegBinary = strings.TrimSpace(c.Engine.FFmpegBinary)
	if value, ok := os.LookupEnv("BATCHMUX_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Engine.FFmpegBinary = strings.TrimSpace(value)
	}
	if c.Engine.FFmpegBinary == "" {
		c.Engine.FFmpegBinary = defaultFFmpegBinary
	}
}

func (c *Config) normalizeBatch() error {
	if strings.TrimSpace(c.Batch.OutputDir) != "" {
		dir, err := expandPath(strings.TrimSpace(c.Batch.OutputDir))
		if err != nil {
			return fmt.Errorf("batch.output_dir: %w", err)
		}
		c.Batch.OutputDir = dir
	}
	c.Batch.Extension = NormalizeExtension(c.Batch.Extension)
	if c.Batch.Extension == "" {
		c.Batch.Extension = defaultExtension
	}
	c.Batch.Naming = strings.ToLower(strings.TrimSpace(c.Batch.Naming))
	if c.Batch.Naming == "" {
		c.Batch.Naming = defaultNaming
	}
	if c.Batch.InputSeparator == "" {
		c.Batch.InputSeparator = defaultInputSeparator
	}
	c.Batch.Progress = strings.ToLower(strings.TrimSpace(c.Batch.Progress))
	if c.Batch.Progress == "" {
		c.Batch.Progress = defaultProgress
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		dir, err := expandPath(strings.TrimSpace(c.Logging.Dir))
		if err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
		c.Logging.Dir = dir
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	path, err := expandPath(strings.TrimSpace(c.History.Path))
	if err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	c.History.Path = path
	return nil
}

// NormalizeExtension lower-cases an extension and adds the leading dot users
// commonly omit ("MKV" becomes ".mkv"). An empty value stays empty.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
