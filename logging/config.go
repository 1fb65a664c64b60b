package logging

import (
	"strings"

	"github.com/creasty/defaults"
	"go.uber.org/zap/zapcore"
)

// Config configures the host's base logger. The smartlog engine wraps this
// logger once the logging plugin is initialized.
type Config struct {
	// Level is the minimum level (debug, info, warn, error, dpanic, panic, fatal).
	Level string `mapstructure:"level" json:"level" yaml:"level" default:"info" validate:"oneof=debug info warn error dpanic panic fatal DEBUG INFO WARN ERROR"`

	// Format is json or console.
	Format string `mapstructure:"format" json:"format" yaml:"format" default:"console" validate:"oneof=json console"`

	// EncodeLevel names a zapcore level encoder.
	EncodeLevel string `mapstructure:"encode-level" json:"encodeLevel" yaml:"encode-level" default:"CapitalLevelEncoder"`

	Prefix     string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
	TimeFormat string `mapstructure:"time-format" json:"timeFormat" yaml:"time-format" default:"2006/01/02 - 15:04:05"`

	// Director and FileName locate the host log file when LogInFile is set.
	Director string `mapstructure:"director" json:"director" yaml:"director" default:"logs"`
	FileName string `mapstructure:"file-name" json:"fileName" yaml:"file-name" default:"extcore.log"`

	LogInFile     bool `mapstructure:"log-in-file" json:"logInFile" yaml:"log-in-file"`
	LogInTerminal bool `mapstructure:"log-in-terminal" json:"logInTerminal" yaml:"log-in-terminal"`

	// Rotation, see lumberjack.Logger.
	MaxAge     int  `mapstructure:"max-age" json:"maxAge" yaml:"max-age" default:"7" validate:"gte=0"`
	MaxSize    int  `mapstructure:"max-size" json:"maxSize" yaml:"max-size" default:"100" validate:"gte=0"`
	MaxBackups int  `mapstructure:"max-backups" json:"maxBackups" yaml:"max-backups" default:"10" validate:"gte=0"`
	Compress   bool `mapstructure:"compress" json:"compress" yaml:"compress"`

	ShowLineNumber bool `mapstructure:"show-line-number" json:"showLineNumber" yaml:"show-line-number"`
}

// DefaultConfig logs info and above to the terminal only.
func DefaultConfig() Config {
	cfg := Config{
		LogInTerminal:  true,
		Compress:       true,
		ShowLineNumber: true,
	}
	cfg.applyDefaults()
	return cfg
}

// TransportLevel parses Level, falling back to info.
func (c Config) TransportLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(strings.ToLower(c.Level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// ZapEncodeLevel returns the zapcore.LevelEncoder named by EncodeLevel.
func (c Config) ZapEncodeLevel() zapcore.LevelEncoder {
	switch c.EncodeLevel {
	case "LowercaseLevelEncoder":
		return zapcore.LowercaseLevelEncoder
	case "LowercaseColorLevelEncoder":
		return zapcore.LowercaseColorLevelEncoder
	case "CapitalColorLevelEncoder":
		return zapcore.CapitalColorLevelEncoder
	default:
		return zapcore.CapitalLevelEncoder
	}
}

// applyDefaults fills empty string and numeric fields from the default tags.
// Booleans are left as given.
func (c *Config) applyDefaults() {
	_ = defaults.Set(c)
}
