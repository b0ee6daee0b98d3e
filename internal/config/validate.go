package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEngine() error {
	if strings.TrimSpace(c.Engine.FFmpegBinary) == "" {
		return errors.New("engine.ffmpeg_binary must be set")
	}
	if c.Engine.TimeoutSeconds < 0 {
		return errors.New("engine.timeout_seconds must not be negative")
	}
	if !c.Engine.CopyStreams {
		return errors.New("engine.copy_streams must be true (re-encoding is not supported)")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if !slices.Contains(SupportedExtensions, c.Batch.Extension) {
		return fmt.Errorf("batch.extension must be one of %s, got %q", strings.Join(SupportedExtensions, ", "), c.Batch.Extension)
	}
	switch c.Batch.Naming {
	case NamingOriginal, NamingSequence:
	default:
		return fmt.Errorf("batch.naming must be %q or %q, got %q", NamingOriginal, NamingSequence, c.Batch.Naming)
	}
	switch c.Batch.Progress {
	case ProgressText, ProgressLog, ProgressNone:
	default:
		return fmt.Errorf("batch.progress must be one of text, log, none; got %q", c.Batch.Progress)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error; got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
