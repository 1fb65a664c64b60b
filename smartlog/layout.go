package smartlog

import (
	"path/filepath"

	"github.com/leeforge/extcore/json"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// TextTimeLayout is the timestamp layout of plain-text lines.
const TextTimeLayout = "2006-01-02 15:04:05.000"

var bufferPool = buffer.NewPool()

// message is one diagnostic call that passed filtering.
type message struct {
	entry    zapcore.Entry
	category string
	fields   []zapcore.Field
}

func (m message) severity() Severity { return SeverityOf(m.entry.Level) }

// newJSONEncoder renders one compact object per line with the keys
// timestamp, level, category, function, message, then file, line and any
// structured fields.
func newJSONEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "category",
		FunctionKey:    "function",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    severityLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	})
}

func severityLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(SeverityOf(l).Label())
}

func encodeJSON(enc zapcore.Encoder, m message) (*buffer.Buffer, error) {
	ent := m.entry
	ent.LoggerName = m.category

	fields := m.fields
	if ent.Caller.Defined {
		fields = make([]zapcore.Field, 0, len(m.fields)+2)
		fields = append(fields,
			zapcore.Field{Key: "file", Type: zapcore.StringType, String: filepath.Base(ent.Caller.File)},
			zapcore.Field{Key: "line", Type: zapcore.Int64Type, Integer: int64(ent.Caller.Line)},
		)
		fields = append(fields, m.fields...)
	}
	return enc.EncodeEntry(ent, fields)
}

// encodeText renders
//
//	[2006-01-02 15:04:05.000] [LEVEL] [category] file:line:function - message
//
// followed by structured fields as a JSON object when there are any.
func encodeText(m message) (*buffer.Buffer, error) {
	buf := bufferPool.Get()

	buf.AppendByte('[')
	buf.AppendTime(m.entry.Time, TextTimeLayout)
	buf.AppendString("] [")
	buf.AppendString(m.severity().Label())
	buf.AppendString("] [")
	buf.AppendString(m.category)
	buf.AppendString("] ")

	file, line, function := "unknown", 0, ""
	if c := m.entry.Caller; c.Defined {
		file, line, function = filepath.Base(c.File), c.Line, c.Function
	}
	buf.AppendString(file)
	buf.AppendByte(':')
	buf.AppendInt(int64(line))
	buf.AppendByte(':')
	buf.AppendString(function)
	buf.AppendString(" - ")
	buf.AppendString(m.entry.Message)

	if len(m.fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range m.fields {
			f.AddTo(enc)
		}
		data, err := json.Marshal(enc.Fields)
		if err != nil {
			buf.Free()
			return nil, err
		}
		buf.AppendByte(' ')
		_, _ = buf.Write(data)
	}

	buf.AppendString(zapcore.DefaultLineEnding)
	return buf, nil
}
