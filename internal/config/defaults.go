package config

import "runtime"

const (
	defaultConfigPath     = "~/.config/batchmux/config.toml"
	projectConfigName     = "batchmux.toml"
	defaultFFmpegBinary   = "ffmpeg"
	defaultExtension      = ".mp4"
	defaultNaming         = NamingSequence
	defaultPrefix         = "video"
	defaultInputSeparator = ";"
	defaultProgress       = ProgressText
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLogDir         = "~/.local/share/batchmux/logs"
	defaultRetentionDays  = 30
	defaultHistoryPath    = "~/.local/share/batchmux/history.db"
)

// Naming policy names accepted in batch.naming.
const (
	NamingOriginal = "original"
	NamingSequence = "sequence"
)

// Progress output formats accepted in batch.progress.
const (
	ProgressText = "text"
	ProgressLog  = "log"
	ProgressNone = "none"
)

// SupportedExtensions lists the target containers the engine may produce.
var SupportedExtensions = []string{".mp4", ".mkv"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Engine: Engine{
			FFmpegBinary: defaultFFmpegBinary,
			CopyStreams:  true,
			AtomicWrites: true,
		},
		Batch: Batch{
			Extension:                 defaultExtension,
			Naming:                    defaultNaming,
			Prefix:                    defaultPrefix,
			InputSeparator:            defaultInputSeparator,
			CaseInsensitiveCollisions: caseInsensitiveFilesystemDefault(runtime.GOOS),
			Progress:                  defaultProgress,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			Dir:           defaultLogDir,
			RetentionDays: defaultRetentionDays,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
	}
}

// caseInsensitiveFilesystemDefault reports whether the platform's default
// filesystem folds case, in which case "Clip.mp4" and "clip.mp4" collide.
func caseInsensitiveFilesystemDefault(goos string) bool {
	switch goos {
	case "darwin", "windows":
		return true
	default:
		return false
	}
}
