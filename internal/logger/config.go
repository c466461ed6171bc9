package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level   string     `yaml:"level" mapstructure:"level"`     // debug, info, warn, error
	Console bool       `yaml:"console" mapstructure:"console"` // human-readable output on stderr
	File    FileOutput `yaml:"file" mapstructure:"file"`
}

// FileOutput represents file logging configuration.
// File output uses JSON format and is rotated by lumberjack.
type FileOutput struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	Path       string `yaml:"path" mapstructure:"path"`
	MaxSize    int    `yaml:"maxsize" mapstructure:"maxsize"`       // megabytes before rotation
	MaxBackups int    `yaml:"maxbackups" mapstructure:"maxbackups"` // rotated files to keep
	MaxAge     int    `yaml:"maxage" mapstructure:"maxage"`         // days to keep rotated files
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// Default values for logging configuration.
const (
	DefaultLogLevel   = "info"
	DefaultLogPath    = "logs/partclass.log"
	DefaultMaxSize    = 10
	DefaultMaxBackups = 3
	DefaultMaxAge     = 28
)
