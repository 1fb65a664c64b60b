package config

import (
	"os"
	"strings"
)

// EnvModeKey selects the environment overlay (config.<mode>.yaml).
const EnvModeKey = "EXTCORE_ENV"

type EnvMode string

const (
	DevMode  EnvMode = "development"
	ProMode  EnvMode = "production"
	TestMode EnvMode = "test"
)

func ParseEnv(env string) EnvMode {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// Mode reads EnvModeKey on every call.
func Mode() EnvMode {
	return ParseEnv(os.Getenv(EnvModeKey))
}

// aliases are the extra file suffixes accepted for each mode.
func (m EnvMode) aliases() []string {
	switch m {
	case ProMode:
		return []string{"pro", "prod"}
	case DevMode:
		return []string{"dev"}
	default:
		return nil
	}
}
