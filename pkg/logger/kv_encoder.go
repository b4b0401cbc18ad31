package logger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var bufferpool = buffer.NewPool()

// kvConsoleEncoder renders "[time] [LEVEL] message key=value ..." lines.
// Context fields added through logger.With are kept in the embedded map
// encoder and printed, sorted by key, before the per-entry fields.
type kvConsoleEncoder struct {
	*zapcore.MapObjectEncoder
	cfg zapcore.EncoderConfig
}

func newKVConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &kvConsoleEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		cfg:              cfg,
	}
}

// Clone creates a copy of the encoder with its context fields
func (e *kvConsoleEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		clone.Fields[k] = v
	}
	return &kvConsoleEncoder{MapObjectEncoder: clone, cfg: e.cfg}
}

// EncodeEntry encodes a log entry with key=value format for fields
func (e *kvConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := bufferpool.Get()
	sep := e.cfg.ConsoleSeparator

	if e.cfg.TimeKey != "" && e.cfg.EncodeTime != nil {
		arr := &stringCollector{}
		e.cfg.EncodeTime(entry.Time, arr)
		arr.writeTo(buf, sep)
	}
	if e.cfg.LevelKey != "" && e.cfg.EncodeLevel != nil {
		arr := &stringCollector{}
		e.cfg.EncodeLevel(entry.Level, arr)
		arr.writeTo(buf, sep)
	}
	if e.cfg.CallerKey != "" && entry.Caller.Defined && e.cfg.EncodeCaller != nil {
		arr := &stringCollector{}
		e.cfg.EncodeCaller(entry.Caller, arr)
		arr.writeTo(buf, sep)
	}

	buf.AppendString(entry.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		appendKV(buf, sep, k, e.Fields[k])
	}

	for _, field := range fields {
		m := zapcore.NewMapObjectEncoder()
		field.AddTo(m)
		appendKV(buf, sep, field.Key, m.Fields[field.Key])
	}

	if entry.Stack != "" && e.cfg.StacktraceKey != "" {
		buf.AppendString("\n")
		buf.AppendString(entry.Stack)
	}

	if e.cfg.LineEnding != "" {
		buf.AppendString(e.cfg.LineEnding)
	} else {
		buf.AppendString(zapcore.DefaultLineEnding)
	}
	return buf, nil
}

func appendKV(buf *buffer.Buffer, sep, key string, value any) {
	buf.AppendString(sep)
	buf.AppendString(key)
	buf.AppendByte('=')

	s := fmt.Sprint(value)
	if value == nil {
		s = "<nil>"
	}
	if strings.ContainsAny(s, " \t\n\"=") {
		s = strconv.Quote(s)
	}
	buf.AppendString(s)
}

// stringCollector captures the strings produced by zap's time, level and
// caller encoders. Those encoders only ever call AppendString.
type stringCollector struct {
	zapcore.PrimitiveArrayEncoder
	elems []string
}

func (s *stringCollector) AppendString(v string) { s.elems = append(s.elems, v) }

func (s *stringCollector) writeTo(buf *buffer.Buffer, sep string) {
	for _, v := range s.elems {
		buf.AppendString(v)
		buf.AppendString(sep)
	}
}
