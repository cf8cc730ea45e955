// Package logging 提供命令行使用的控制台 logr 实现
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Level 日志级别
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel 解析日志级别，大小写不敏感，"warning" 等同于 "warn"
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Format 输出格式
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat 解析输出格式
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("unknown log format %q", s)
}

// ConsoleSink 控制台日志实现，实现 logr.LogSink 接口
// logr 的 V(1) 及以上映射为 DEBUG，V(0) 映射为 INFO
type ConsoleSink struct {
	mu     *sync.Mutex
	out    io.Writer
	level  Level
	format Format
	name   string
	values []interface{}
}

// NewConsoleSink 创建控制台日志实现，out 为 nil 时输出到 stderr
func NewConsoleSink(out io.Writer, level Level, format Format) *ConsoleSink {
	if out == nil {
		out = os.Stderr
	}
	return &ConsoleSink{mu: &sync.Mutex{}, out: out, level: level, format: format}
}

// NewLogger 创建基于控制台的 logr.Logger
func NewLogger(out io.Writer, level Level, format Format) logr.Logger {
	return logr.New(NewConsoleSink(out, level, format))
}

func (s *ConsoleSink) Init(info logr.RuntimeInfo) {}

func (s *ConsoleSink) Enabled(v int) bool {
	return verbosityLevel(v) >= s.level
}

func (s *ConsoleSink) Info(v int, msg string, keysAndValues ...interface{}) {
	s.write(verbosityLevel(v), msg, nil, keysAndValues)
}

func (s *ConsoleSink) Error(err error, msg string, keysAndValues ...interface{}) {
	s.write(LevelError, msg, err, keysAndValues)
}

func (s *ConsoleSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	c := *s
	c.values = append(append([]interface{}(nil), s.values...), keysAndValues...)
	return &c
}

func (s *ConsoleSink) WithName(name string) logr.LogSink {
	c := *s
	if c.name == "" {
		c.name = name
	} else {
		c.name = c.name + "." + name
	}
	return &c
}

func verbosityLevel(v int) Level {
	if v > 0 {
		return LevelDebug
	}
	return LevelInfo
}

func (s *ConsoleSink) write(level Level, msg string, err error, keysAndValues []interface{}) {
	if level < s.level {
		return
	}
	kvs := append(append([]interface{}(nil), s.values...), keysAndValues...)

	var line string
	if s.format == FormatJSON {
		line = s.jsonLine(level, msg, err, kvs)
	} else {
		line = s.textLine(level, msg, err, kvs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

func (s *ConsoleSink) textLine(level Level, msg string, err error, kvs []interface{}) string {
	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	if s.name != "" {
		b.WriteString(s.name)
		b.WriteString(": ")
	}
	b.WriteString(msg)
	if err != nil {
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kvs[i], kvs[i+1])
	}
	return b.String()
}

func (s *ConsoleSink) jsonLine(level Level, msg string, err error, kvs []interface{}) string {
	entry := map[string]interface{}{
		"ts":    time.Now().Format(time.RFC3339),
		"level": strings.ToLower(level.String()),
		"msg":   msg,
	}
	if s.name != "" {
		entry["logger"] = s.name
	}
	if err != nil {
		entry["error"] = err.Error()
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		entry[fmt.Sprint(kvs[i])] = kvs[i+1]
	}
	data, mErr := json.Marshal(entry)
	if mErr != nil {
		return fmt.Sprintf(`{"level":"error","msg":"marshal log entry: %s"}`, mErr)
	}
	return string(data)
}
