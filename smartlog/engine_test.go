package smartlog

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/leeforge/extcore/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// observeGlobal installs an observed zap global logger for the duration of
// the test and returns its captured entries.
func observeGlobal(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	t.Cleanup(zap.ReplaceGlobals(logger))
	return logger, logs
}

// syncBuffer is a goroutine-safe bytes.Buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// countingObject counts how often it is encoded.
type countingObject struct {
	calls int
}

func (c *countingObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	c.calls++
	enc.AddString("state", "encoded")
	return nil
}

func newBufferedEngine(opts Options) (*Engine, *syncBuffer) {
	buf := &syncBuffer{}
	opts.Fallback = buf
	return NewEngine(opts), buf
}

func TestEngine_InstallForwardsToPreviousLogger(t *testing.T) {
	_, logs := observeGlobal(t)
	e, fallback := newBufferedEngine(Options{})

	e.Install()
	defer e.Uninstall()

	zap.L().Named("app.ui").Info("hello", zap.String("k", "v"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "hello", entry.Message)
	assert.Equal(t, "app.ui", entry.LoggerName)
	assert.Equal(t, "v", entry.ContextMap()["k"])
	assert.Empty(t, fallback.String(), "fallback is only used without a previous sink")
}

func TestEngine_FiltersBeforeForwarding(t *testing.T) {
	_, logs := observeGlobal(t)
	e, _ := newBufferedEngine(Options{})
	e.SetRules("app.ui=false; *=warning")

	e.Install()
	defer e.Uninstall()

	zap.L().Named("app.ui").Error("disabled category")
	zap.L().Named("app.network").Info("below wildcard threshold")
	zap.L().Named("app.network").Warn("kept")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
}

func TestEngine_UninstallRestoresPreviousSink(t *testing.T) {
	var out bytes.Buffer
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
		LineEnding:  "\n",
	})
	prev := zap.New(zapcore.NewCore(enc, zapcore.AddSync(&out), zapcore.DebugLevel))
	t.Cleanup(zap.ReplaceGlobals(prev))
	prevStdOut := log.Writer()

	zap.L().Info("probe", zap.Int("n", 1))
	before := out.String()
	out.Reset()

	e, _ := newBufferedEngine(Options{})
	e.Install()
	assert.True(t, e.Installed())
	assert.NotSame(t, prev, zap.L())

	e.Uninstall()
	e.Uninstall()

	assert.False(t, e.Installed())
	assert.Same(t, prev, zap.L())
	assert.Equal(t, prevStdOut, log.Writer())

	zap.L().Info("probe", zap.Int("n", 1))
	assert.Equal(t, before, out.String())
}

func TestEngine_InstallTwiceIsNoop(t *testing.T) {
	prev, _ := observeGlobal(t)
	e, _ := newBufferedEngine(Options{})

	e.Install()
	e.Install()
	e.Uninstall()

	assert.Same(t, prev, zap.L(), "a second install must not capture the engine itself")
}

func TestEngine_RedirectsStdLog(t *testing.T) {
	_, logs := observeGlobal(t)
	e, _ := newBufferedEngine(Options{})
	e.Install()
	defer e.Uninstall()

	log.Print("from the standard library")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "from the standard library", logs.All()[0].Message)
}

func TestEngine_FallbackWithoutPreviousSink(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zap.NewNop()))
	e, fallback := newBufferedEngine(Options{})
	e.Install()
	defer e.Uninstall()

	zap.L().Named("app.core").Info("to stderr")

	assert.Contains(t, fallback.String(), "[INFO] [app.core]")
	assert.Contains(t, fallback.String(), "to stderr")
}

func TestEngine_NoFormattingForDroppedMessages(t *testing.T) {
	e, fallback := newBufferedEngine(Options{})
	e.SetRules("app.quiet=false")

	dropped := &countingObject{}
	e.Logger().Named("app.quiet").Info("dropped", zap.Object("obj", dropped))
	assert.Zero(t, dropped.calls)
	assert.Empty(t, fallback.String())

	kept := &countingObject{}
	e.Logger().Named("app.loud").Info("kept", zap.Object("obj", kept))
	assert.Equal(t, 1, kept.calls)
	assert.Contains(t, fallback.String(), `{"obj":{"state":"encoded"}}`)
}

func TestEngine_TextLayout(t *testing.T) {
	e, fallback := newBufferedEngine(Options{})

	e.Logger().Named("app.network").Warn("disk low", zap.Int("free", 3))

	pattern := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}\] \[WARNING\] \[app\.network\] ` +
		`engine_test\.go:\d+:\S*TestEngine_TextLayout - disk low \{"free":3\}\n$`)
	assert.Regexp(t, pattern, fallback.String())
}

func TestEngine_JSONLayout(t *testing.T) {
	e, fallback := newBufferedEngine(Options{})
	e.SetJSONFormat(true)

	e.Logger().Named("app.database").Error("query failed", zap.String("table", "users"))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(fallback.String()), &got))
	assert.Equal(t, "CRITICAL", got["level"])
	assert.Equal(t, "app.database", got["category"])
	assert.Equal(t, "query failed", got["message"])
	assert.Equal(t, "engine_test.go", got["file"])
	assert.Greater(t, got["line"], float64(0))
	assert.Contains(t, got["function"], "TestEngine_JSONLayout")
	assert.Equal(t, "users", got["table"])
	assert.NotEmpty(t, got["timestamp"])
}

func TestEngine_AutoDetectsCategoryFromCaller(t *testing.T) {
	e, fallback := newBufferedEngine(Options{
		Mapping: CategoryMapping{
			Entries: []MappingEntry{{Pattern: "/smartlog/", Category: "app.logging"}},
			Default: "app.other",
		},
	})

	e.SetRules("app.logging=false")
	e.Logger().Info("hidden")
	assert.Empty(t, fallback.String())

	e.SetRules("app.logging=true")
	e.Logger().Info("visible")
	assert.Contains(t, fallback.String(), "[app.logging]")
	assert.Contains(t, fallback.String(), "visible")
}

func TestEngine_AutoDetectedCategoryBeatsWildcard(t *testing.T) {
	e, fallback := newBufferedEngine(Options{
		Mapping: CategoryMapping{
			Entries: []MappingEntry{{Pattern: "/smartlog/", Category: "app.smart"}},
			Default: "app.other",
		},
	})

	e.SetRules("*=false; app.smart=true")
	e.Logger().Info("visible through category rule")
	assert.Contains(t, fallback.String(), "[app.smart]")
	assert.Contains(t, fallback.String(), "visible through category rule")

	e.ReplaceRules("*=true; app.smart=false")
	e.Logger().Info("hidden by category rule")
	assert.NotContains(t, fallback.String(), "hidden by category rule")

	e.ReplaceRules("*=false; app.smart=warning")
	e.Logger().Info("below threshold")
	e.Logger().Warn("at threshold")
	assert.NotContains(t, fallback.String(), "below threshold")
	assert.Contains(t, fallback.String(), "at threshold")
}

func TestEngine_CheckFiltersNamedEntries(t *testing.T) {
	e, _ := newBufferedEngine(Options{})
	e.SetRules("*=false; app.core=true")

	dropped := e.Core().Check(zapcore.Entry{LoggerName: "app.ui", Level: zapcore.ErrorLevel}, nil)
	assert.Nil(t, dropped, "named entries are filtered before any write")

	kept := e.Core().Check(zapcore.Entry{LoggerName: "app.core", Level: zapcore.InfoLevel}, nil)
	assert.NotNil(t, kept)

	unnamed := e.Core().Check(zapcore.Entry{Level: zapcore.InfoLevel}, nil)
	assert.NotNil(t, unnamed, "unnamed entries wait for the caller to be known")
}

func TestEngine_FileOutput(t *testing.T) {
	e, fallback := newBufferedEngine(Options{})
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	require.NoError(t, e.EnableFileLogging(path))
	assert.Equal(t, path, e.FilePath())
	e.EnableConsoleLogging(false)

	e.Logger().Named("app.core").Info("written to file")
	require.NoError(t, e.DisableFileLogging())
	e.Logger().Named("app.core").Info("after close")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.NotContains(t, string(data), "after close")
	assert.Empty(t, fallback.String(), "console output is off")
	assert.Empty(t, e.FilePath())
}

func TestEngine_EnableFileLoggingFailureClosesPreviousFile(t *testing.T) {
	dir := t.TempDir()
	e, _ := newBufferedEngine(Options{})
	require.NoError(t, e.EnableFileLogging(filepath.Join(dir, "ok.log")))

	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := e.EnableFileLogging(filepath.Join(blocker, "app.log"))
	require.Error(t, err)
	assert.Empty(t, e.FilePath())

	assert.Error(t, e.EnableFileLogging(""))
}

func TestEngine_ConsoleToggle(t *testing.T) {
	_, logs := observeGlobal(t)
	e, _ := newBufferedEngine(Options{})
	e.Install()
	defer e.Uninstall()

	e.EnableConsoleLogging(false)
	zap.L().Named("app.ui").Info("silent")
	e.EnableConsoleLogging(true)
	zap.L().Named("app.ui").Info("loud")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "loud", logs.All()[0].Message)
	assert.True(t, e.ConsoleEnabled())
}

func TestEngine_SetLogLevelAndEnableCategory(t *testing.T) {
	e := NewEngine(Options{Fallback: &syncBuffer{}})

	e.EnableCategory("app.ui", false)
	assert.True(t, e.SetLogLevel("app.ui", "critical"))
	assert.False(t, e.SetLogLevel("app.ui", "loud"))

	r, ok := e.Rule("app.ui")
	require.True(t, ok)
	assert.Equal(t, Rule{Enabled: false, MinSeverity: Critical}, r)

	e.EnableCategory("app.ui", true)
	assert.Equal(t, "app.ui=critical", e.Rules())
	assert.False(t, e.Allows("app.ui", Warning))
	assert.True(t, e.Allows("app.ui", Fatal))

	e.ReplaceRules("*=false")
	assert.Equal(t, "*=false", e.Rules())
	assert.Equal(t, Rule{Enabled: false, MinSeverity: Debug}, e.EffectiveRule("app.ui"))
}

func TestEngine_Snapshot(t *testing.T) {
	e, _ := newBufferedEngine(Options{})
	path := filepath.Join(t.TempDir(), "s.log")
	require.NoError(t, e.EnableFileLogging(path))
	defer e.Close()
	e.SetJSONFormat(true)
	e.SetRules("app.ui=info")

	assert.Equal(t, Settings{
		LogRules:       "app.ui=info",
		LogFile:        path,
		ConsoleLogging: true,
		JSONFormat:     true,
	}, e.Snapshot())
}

func TestEngine_WithFieldsAreRendered(t *testing.T) {
	e, fallback := newBufferedEngine(Options{})

	e.Logger().Named("app.models").With(zap.String("req", "42")).Info("handled")

	assert.Contains(t, fallback.String(), `"req":"42"`)
}

func TestEngine_ConcurrentUse(t *testing.T) {
	e, _ := newBufferedEngine(Options{})
	path := filepath.Join(t.TempDir(), "race.log")
	defer e.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				e.Logger().Named("app.core").Info("tick", zap.Int("j", j))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				e.SetRules("app.core=info")
				e.SetJSONFormat(j%2 == 0)
				_ = e.EnableFileLogging(path)
			}
		}()
	}
	wg.Wait()

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestEngine_WriteErrorsAreReported(t *testing.T) {
	e := NewEngine(Options{Fallback: failingWriter{}})

	err := e.Core().Write(zapcore.Entry{LoggerName: "app.ui", Message: "x"}, nil)
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }
