package smartlog

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Severity is the ordered diagnostic level used by rules.
type Severity int8

const (
	Debug Severity = iota
	Info
	Warning
	Critical
	Fatal
)

var severityNames = [...]string{"debug", "info", "warning", "critical", "fatal"}

// String returns the rule-grammar spelling ("debug" ... "fatal").
func (s Severity) String() string {
	if s < Debug || s > Fatal {
		return "unknown"
	}
	return severityNames[s]
}

// Label returns the upper-case form written into log lines.
func (s Severity) Label() string {
	return strings.ToUpper(s.String())
}

// ParseSeverity recognizes the rule-grammar severity words, ignoring case
// and surrounding space.
func ParseSeverity(text string) (Severity, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	for i, name := range severityNames {
		if name == text {
			return Severity(i), true
		}
	}
	return Debug, false
}

// SeverityOf maps a zap level onto the rule scale. Error maps to Critical;
// DPanic, Panic and Fatal map to Fatal.
func SeverityOf(l zapcore.Level) Severity {
	switch {
	case l <= zapcore.DebugLevel:
		return Debug
	case l == zapcore.InfoLevel:
		return Info
	case l == zapcore.WarnLevel:
		return Warning
	case l == zapcore.ErrorLevel:
		return Critical
	default:
		return Fatal
	}
}

// Level is the zap level used when emitting at s. Fatal maps to DPanic so
// that emitting never terminates the process.
func (s Severity) Level() zapcore.Level {
	switch s {
	case Debug:
		return zapcore.DebugLevel
	case Info:
		return zapcore.InfoLevel
	case Warning:
		return zapcore.WarnLevel
	case Critical:
		return zapcore.ErrorLevel
	default:
		return zapcore.DPanicLevel
	}
}
