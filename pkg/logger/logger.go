// Package logger configures the process-wide logrus instance. File output
// rotates through lumberjack; console output always stays on.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the shared instance. Packages normally grab a component-tagged
// entry via WithComponent instead of using it directly.
var Logger = logrus.New()

// Config controls level and optional rotating file output.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// OutputFile enables file logging when set.
	OutputFile string

	// Rotation settings, only used with OutputFile. Sizes are in MB, ages in
	// days; zero values fall back to lumberjack defaults.
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func init() {
	Logger.SetOutput(os.Stdout)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
}

// Init applies the configuration to the shared instance.
func Init(cfg Config) error {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(parsed)

	if cfg.OutputFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.OutputFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		Logger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
	return nil
}

// WithComponent returns an entry tagged with the component name.
func WithComponent(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}
