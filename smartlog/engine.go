package smartlog

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/creasty/defaults"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures an Engine.
type Options struct {
	// Mapping classifies call sites without an explicit category.
	// Defaults to DefaultMapping().
	Mapping CategoryMapping
	// Fallback receives console output when no previous global logger
	// was active. Defaults to os.Stderr.
	Fallback io.Writer

	// Rotation of the log file.
	MaxSizeMB  int  `default:"100"`
	MaxBackups int  `default:"5"`
	MaxAgeDays int  `default:"30"`
	Compress   bool `default:"false"`
}

// Settings is a snapshot of the engine's output configuration.
type Settings struct {
	LogRules       string `json:"logRules"`
	LogFile        string `json:"logFile"`
	ConsoleLogging bool   `json:"consoleLogging"`
	JSONFormat     bool   `json:"jsonFormat"`
}

// Engine is the rule-based diagnostic sink. Once installed it replaces the
// zap global logger and the standard library logger, filters every entry
// against its rules and routes survivors to a file and to the console.
//
// One mutex guards the rule store, the sink state and the file handle, and
// is held for every filtering decision and every emission.
type Engine struct {
	mapping  CategoryMapping
	opts     Options
	jsonEnc  zapcore.Encoder
	fallback zapcore.WriteSyncer
	logger   *zap.Logger

	mu         sync.Mutex
	rules      *RuleStore
	file       *lumberjack.Logger
	filePath   string
	console    bool
	jsonFormat bool

	installed     bool
	forward       zapcore.Core
	restoreGlobal func()
	restoreStdLog func()
	stdLogOutput  io.Writer
}

// NewEngine creates an engine with no rules, console output on, plain-text
// layout and no file output. It is not installed.
func NewEngine(opts Options) *Engine {
	_ = defaults.Set(&opts)
	if len(opts.Mapping.Entries) == 0 && opts.Mapping.Default == "" {
		opts.Mapping = DefaultMapping()
	}
	if opts.Fallback == nil {
		opts.Fallback = os.Stderr
	}

	e := &Engine{
		mapping:  opts.Mapping,
		opts:     opts,
		jsonEnc:  newJSONEncoder(),
		fallback: zapcore.Lock(zapcore.AddSync(opts.Fallback)),
		rules:    NewRuleStore(),
		console:  true,
	}
	e.logger = zap.New(&core{engine: e}, zap.AddCaller(), zap.ErrorOutput(e.fallback))
	return e
}

// Logger returns a logger writing through the engine whether or not it is
// installed. Name it to set an explicit category.
func (e *Engine) Logger() *zap.Logger {
	return e.logger
}

// Core returns the filtering core.
func (e *Engine) Core() zapcore.Core {
	return e.logger.Core()
}

// Install makes the engine the process-wide sink: the current zap global
// logger is captured and replaced, and the standard library logger is
// redirected. Installing twice is a no-op.
func (e *Engine) Install() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.installed {
		return
	}

	// A previous logger that accepts nothing (zap's default no-op global)
	// counts as no console sink at all.
	if prev := zap.L().Core(); prev.Enabled(zapcore.FatalLevel) {
		e.forward = prev
	}
	e.stdLogOutput = log.Writer()
	e.restoreGlobal = zap.ReplaceGlobals(e.logger)
	e.restoreStdLog = zap.RedirectStdLog(e.logger)
	e.installed = true
}

// Uninstall restores the global and standard library loggers captured by
// Install. Uninstalling when not installed is a no-op.
func (e *Engine) Uninstall() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.installed {
		return
	}

	e.restoreStdLog()
	log.SetOutput(e.stdLogOutput)
	e.restoreGlobal()

	e.restoreStdLog = nil
	e.restoreGlobal = nil
	e.stdLogOutput = nil
	e.forward = nil
	e.installed = false
}

// Installed reports whether the engine is the active global sink.
func (e *Engine) Installed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.installed
}

// Close uninstalls the engine and closes the log file.
func (e *Engine) Close() error {
	e.Uninstall()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeFileLocked()
}

// --- Rules ---

// SetRules merges a rule string into the current rules.
func (e *Engine) SetRules(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules.Apply(text)
}

// ReplaceRules discards every rule and applies text.
func (e *Engine) ReplaceRules(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules.Reset()
	e.rules.Apply(text)
}

// Rules renders the current rules.
func (e *Engine) Rules() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules.String()
}

// SetLogLevel sets the minimum severity of category, keeping its enabled
// flag. An unknown level leaves the severity unchanged and returns false.
func (e *Engine) SetLogLevel(category, level string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules.Get(category)
	if !ok {
		rule = DefaultRule
	}
	sev, known := ParseSeverity(level)
	if known {
		rule.MinSeverity = sev
	}
	e.rules.Set(category, rule)
	return known
}

// EnableCategory sets the enabled flag of category, keeping its severity.
func (e *Engine) EnableCategory(category string, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules.Get(category)
	if !ok {
		rule = DefaultRule
	}
	rule.Enabled = enabled
	e.rules.Set(category, rule)
}

// Rule returns the rule stored for category, without wildcard fallback.
func (e *Engine) Rule(category string) (Rule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules.Get(category)
}

// EffectiveRule returns the rule that filters category.
func (e *Engine) EffectiveRule(category string) Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules.Resolve(category)
}

// Allows is the filtering decision for a message of category at sev.
func (e *Engine) Allows(category string, sev Severity) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules.Allows(category, sev)
}

// Mapping returns the category mapping.
func (e *Engine) Mapping() CategoryMapping {
	return e.mapping
}

// Detect classifies a source path.
func (e *Engine) Detect(path string) string {
	return e.mapping.Detect(path)
}

// --- Outputs ---

// EnableFileLogging appends output to path, creating its directory. Any
// previously open file is closed first, also when path cannot be opened.
func (e *Engine) EnableFileLogging(path string) error {
	if path == "" {
		return errors.New("log file path is empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.closeFileLocked(); err != nil {
		return fmt.Errorf("close previous log file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	_ = f.Close()

	e.file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    e.opts.MaxSizeMB,
		MaxBackups: e.opts.MaxBackups,
		MaxAge:     e.opts.MaxAgeDays,
		Compress:   e.opts.Compress,
		LocalTime:  true,
	}
	e.filePath = path
	return nil
}

// DisableFileLogging closes the log file, if any.
func (e *Engine) DisableFileLogging() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeFileLocked()
}

// FilePath returns the open log file path, or "" when file output is off.
func (e *Engine) FilePath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filePath
}

// EnableConsoleLogging toggles forwarding to the console sink.
func (e *Engine) EnableConsoleLogging(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.console = enabled
}

// ConsoleEnabled reports whether console output is on.
func (e *Engine) ConsoleEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.console
}

// SetJSONFormat switches between JSON and plain-text layout.
func (e *Engine) SetJSONFormat(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jsonFormat = enabled
}

// JSONFormat reports whether the JSON layout is active.
func (e *Engine) JSONFormat() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.jsonFormat
}

// Snapshot returns the current settings.
func (e *Engine) Snapshot() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Settings{
		LogRules:       e.rules.String(),
		LogFile:        e.filePath,
		ConsoleLogging: e.console,
		JSONFormat:     e.jsonFormat,
	}
}

// Sync flushes the console sinks.
func (e *Engine) Sync() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.forward != nil {
		err = multierr.Append(err, e.forward.Sync())
	}
	return multierr.Append(err, e.fallback.Sync())
}

// --- Emission ---

func (e *Engine) categoryOf(ent zapcore.Entry) string {
	if ent.LoggerName != "" {
		return ent.LoggerName
	}
	var file string
	if ent.Caller.Defined {
		file = ent.Caller.File
	}
	return e.mapping.Detect(file)
}

// admit is the early filter run from Check. zap resolves the caller only
// after Check returns, so entries from unnamed loggers cannot be classified
// yet; they are admitted here and emit decides before rendering.
func (e *Engine) admit(ent zapcore.Entry) bool {
	if ent.LoggerName == "" && !ent.Caller.Defined {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules.Allows(e.categoryOf(ent), SeverityOf(ent.Level))
}

func (e *Engine) emit(ent zapcore.Entry, fields []zapcore.Field) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	category := e.categoryOf(ent)
	if !e.rules.Allows(category, SeverityOf(ent.Level)) {
		return nil
	}

	toFallback := e.console && e.forward == nil
	var err error
	if e.file != nil || toFallback {
		buf, encErr := e.render(message{entry: ent, category: category, fields: fields})
		if encErr != nil {
			return encErr
		}
		defer buf.Free()

		if e.file != nil {
			_, werr := e.file.Write(buf.Bytes())
			err = multierr.Append(err, werr)
		}
		if toFallback {
			_, werr := e.fallback.Write(buf.Bytes())
			err = multierr.Append(err, werr)
		}
	}

	if e.console && e.forward != nil && e.forward.Enabled(ent.Level) {
		err = multierr.Append(err, e.forward.Write(ent, fields))
	}
	return err
}

func (e *Engine) render(m message) (*buffer.Buffer, error) {
	if e.jsonFormat {
		return encodeJSON(e.jsonEnc, m)
	}
	return encodeText(m)
}

func (e *Engine) closeFileLocked() error {
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	e.filePath = ""
	return err
}

// core is the zapcore.Core installed as the global sink. Named entries are
// filtered in Check; every entry is filtered again in emit before it reaches
// an encoder.
type core struct {
	engine *Engine
	fields []zapcore.Field
}

func (c *core) Enabled(zapcore.Level) bool { return true }

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &core{engine: c.engine, fields: merged}
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.engine.admit(ent) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if len(c.fields) > 0 {
		all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
		all = append(all, c.fields...)
		fields = append(all, fields...)
	}
	return c.engine.emit(ent, fields)
}

func (c *core) Sync() error { return c.engine.Sync() }
