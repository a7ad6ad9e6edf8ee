// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger provides the process-wide structured logger: a severity
// level above slog's own (TRACE, below DEBUG) mapped onto the severity
// names used throughout configuration and flags, a text or JSON handler,
// and optional rotated-file output.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tagfs/tagfs/cfg"
)

// Custom severities. slog predefines Debug/Info/Warn/Error at -4/0/4/8;
// Trace sits below Debug, Off above Error, so every built-in comparison
// against slog.LevelDebug etc. keeps working unmodified.
const (
	LevelTrace slog.Level = -8
	LevelDebug            = slog.LevelDebug
	LevelInfo             = slog.LevelInfo
	LevelWarn             = slog.LevelWarn
	LevelError            = slog.LevelError
	LevelOff   slog.Level = 12
)

var levelNames = map[slog.Level]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARNING",
	LevelError: "ERROR",
}

type loggerFactory struct {
	file      *os.File
	sysWriter io.Writer
	format    string
	level     string

	logRotateConfig cfg.LogRotateLoggingConfig
}

var (
	defaultLoggerFactory = &loggerFactory{
		sysWriter: os.Stdout,
		format:    "text",
		level:     cfg.INFO,
	}
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stdout, programLevel(cfg.INFO)))
)

func programLevel(level string) *slog.LevelVar {
	v := new(slog.LevelVar)
	setLoggingLevel(level, v)
	return v
}

func setLoggingLevel(level string, programLevel *slog.LevelVar) {
	switch level {
	case cfg.TRACE:
		programLevel.Set(LevelTrace)
	case cfg.DEBUG:
		programLevel.Set(LevelDebug)
	case cfg.INFO:
		programLevel.Set(LevelInfo)
	case cfg.WARNING:
		programLevel.Set(LevelWarn)
	case cfg.ERROR:
		programLevel.Set(LevelError)
	default:
		programLevel.Set(LevelOff)
	}
}

func severityReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.MessageKey:
		return slog.Attr{}
	case slog.LevelKey:
		level := a.Value.Any().(slog.Level)
		name, ok := levelNames[level]
		if !ok {
			name = level.String()
		}
		return slog.String("severity", name)
	}
	return a
}

func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, level *slog.LevelVar) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: severityReplaceAttr,
	}
	if f.format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SetLogFormat switches the active logger's output format between "text"
// and "json". An empty or unrecognized format falls back to "json".
func SetLogFormat(format string) {
	if format != "text" {
		format = "json"
	}
	defaultLoggerFactory.format = format

	var w io.Writer = defaultLoggerFactory.sysWriter
	if defaultLoggerFactory.file != nil {
		w = defaultLoggerFactory.file
	}
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, programLevel(defaultLoggerFactory.level)))
}

// InitLogFile configures the default logger to write to the rotated file
// named by cfg.FilePath, asynchronously via lumberjack, instead of stdout.
// An empty FilePath is a no-op: logs continue to stdout.
func InitLogFile(c cfg.LoggingConfig) error {
	defaultLoggerFactory.level = string(c.Severity)
	defaultLoggerFactory.format = c.Format
	if defaultLoggerFactory.format == "" {
		defaultLoggerFactory.format = "json"
	}
	defaultLoggerFactory.logRotateConfig = c.LogRotate

	if c.FilePath == "" {
		defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stdout, programLevel(defaultLoggerFactory.level)))
		return nil
	}

	f, err := os.OpenFile(string(c.FilePath), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logger: open log file: %w", err)
	}
	_ = f.Close()

	lj := &lumberjack.Logger{
		Filename:   string(c.FilePath),
		MaxSize:    int(c.LogRotate.MaxFileSizeMb),
		MaxBackups: c.LogRotate.BackupFileCount,
		Compress:   c.LogRotate.Compress,
	}
	async := NewAsyncLogger(lj, 1000)
	defaultLoggerFactory.file = nil
	defaultLoggerFactory.sysWriter = async

	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(async, programLevel(defaultLoggerFactory.level)))
	return nil
}

func logf(level slog.Level, format string, v ...any) {
	ctx := context.Background()
	if !defaultLogger.Enabled(ctx, level) {
		return
	}
	msg := fmt.Sprintf(format, v...)
	defaultLogger.LogAttrs(ctx, level, "", slog.String("message", msg))
}

// Tracef logs at TRACE severity, the most verbose level, below DEBUG.
func Tracef(format string, v ...any) { logf(LevelTrace, format, v...) }

// Debugf logs at DEBUG severity.
func Debugf(format string, v ...any) { logf(LevelDebug, format, v...) }

// Infof logs at INFO severity.
func Infof(format string, v ...any) { logf(LevelInfo, format, v...) }

// Warnf logs at WARNING severity.
func Warnf(format string, v ...any) { logf(LevelWarn, format, v...) }

// Errorf logs at ERROR severity.
func Errorf(format string, v ...any) { logf(LevelError, format, v...) }

// levelWriter adapts a fixed severity level onto the process's slog logger,
// so a *log.Logger (the interface jacobsa/fuse's MountConfig expects for
// its own internal diagnostics) can still flow through the same handler,
// format, and destination as every other log line.
type levelWriter struct {
	level slog.Level
}

func (w levelWriter) Write(p []byte) (int, error) {
	ctx := context.Background()
	if defaultLogger.Enabled(ctx, w.level) {
		defaultLogger.LogAttrs(ctx, w.level, "", slog.String("message", strings.TrimRight(string(p), "\n")))
	}
	return len(p), nil
}

// NewStdLogger returns a standard-library *log.Logger that forwards every
// line it's given to the process logger at level, prefixed with prefix.
// Used to satisfy jacobsa/fuse's fuse.MountConfig.ErrorLogger/DebugLogger,
// which predate slog and expect the stdlib logger type.
func NewStdLogger(level slog.Level, prefix string) *log.Logger {
	return log.New(levelWriter{level: level}, prefix, 0)
}
