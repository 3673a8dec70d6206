package common

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const logTimeFormat = "15:04:05"

// NewLogger creates a console logger with the specified level
func NewLogger(level string) arbor.ILogger {
	return arbor.NewLogger().
		WithConsoleWriter(consoleWriter()).
		WithLevelFromString(level)
}

// NewLoggerFromConfig creates a logger with the configured outputs and level.
// A file output whose directory cannot be created is skipped.
func NewLoggerFromConfig(cfg LoggingConfig) arbor.ILogger {
	logger := arbor.NewLogger()

	hasOutput := false
	for _, output := range cfg.Outputs {
		switch strings.ToLower(strings.TrimSpace(output)) {
		case "console", "stdout":
			logger = logger.WithConsoleWriter(consoleWriter())
			hasOutput = true
		case "file":
			if cfg.FilePath == "" {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
				continue
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   cfg.FilePath,
				TimeFormat: logTimeFormat,
				MaxSize:    100 * 1024 * 1024, // 100 MB
				MaxBackups: 3,
				TextOutput: true,
			})
			hasOutput = true
		}
	}

	if !hasOutput {
		logger = logger.WithConsoleWriter(consoleWriter())
	}

	return logger.WithLevelFromString(cfg.Level)
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger() arbor.ILogger {
	return NewLogger("info")
}

// NewSilentLogger creates a logger that discards all output
func NewSilentLogger() arbor.ILogger {
	return arbor.NewNoOpLogger()
}

func consoleWriter() models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: logTimeFormat,
		TextOutput: true,
	}
}
