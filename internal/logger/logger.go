// Copyright (C) 2025 blocknet
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package logger provides the structured, leveled logger every s3p
// command uses for operator-facing diagnostics.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of a log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Field represents a structured logging field.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int creates an integer field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Bool creates a boolean field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Error creates an error field.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Any creates a field with any value.
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Logger defines the interface for structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	WithContext(ctx context.Context) Logger
	WithFields(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// StructuredLogger implements Logger, emitting one JSON object per line
// (or a compact text line after SetTextFormat(true)).
type StructuredLogger struct {
	mu         sync.RWMutex
	level      Level
	output     io.Writer
	context    context.Context
	baseFields []Field
	textFormat bool
}

// NewLogger creates a new structured logger writing JSON to output.
func NewLogger(output io.Writer, level Level) *StructuredLogger {
	return &StructuredLogger{level: level, output: output}
}

// NewDefaultLogger creates a logger at info level writing to stdout.
func NewDefaultLogger() *StructuredLogger {
	return NewLogger(os.Stdout, InfoLevel)
}

// ParseLevel maps a CLI/config level name to a Level, defaulting to Info
// for unrecognized input.
func ParseLevel(name string) Level {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return DebugLevel
	case "WARN":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// SetTextFormat switches line rendering between JSON (default) and a
// compact human-readable text line, mirroring the --log-format flag.
func (l *StructuredLogger) SetTextFormat(text bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.textFormat = text
}

func (l *StructuredLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }
func (l *StructuredLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields...) }
func (l *StructuredLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields...) }
func (l *StructuredLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }

// Fatal logs a fatal message and exits the process.
func (l *StructuredLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields...)
	os.Exit(1)
}

// WithContext returns a new logger carrying ctx for request-scoped fields.
func (l *StructuredLogger) WithContext(ctx context.Context) Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &StructuredLogger{
		level: l.level, output: l.output, context: ctx,
		baseFields: l.baseFields, textFormat: l.textFormat,
	}
}

// WithFields returns a new logger with additional base fields attached to
// every subsequent line, e.g. a run-correlation ID.
func (l *StructuredLogger) WithFields(fields ...Field) Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	merged := make([]Field, len(l.baseFields)+len(fields))
	copy(merged, l.baseFields)
	copy(merged[len(l.baseFields):], fields)
	return &StructuredLogger{
		level: l.level, output: l.output, context: l.context,
		baseFields: merged, textFormat: l.textFormat,
	}
}

func (l *StructuredLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *StructuredLogger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *StructuredLogger) log(level Level, msg string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if level < l.level {
		return
	}

	entry := make(map[string]interface{})
	entry["timestamp"] = time.Now().Format(time.RFC3339)
	entry["level"] = level.String()
	entry["message"] = msg

	if l.context != nil {
		if runID := l.context.Value(runIDKey{}); runID != nil {
			entry["run_id"] = runID
		}
	}

	for _, f := range l.baseFields {
		entry[f.Key] = f.Value
	}
	for _, f := range fields {
		entry[f.Key] = f.Value
	}

	if l.textFormat {
		fmt.Fprintf(l.output, "%s [%s] %s %s\n", entry["timestamp"], level, msg, renderTextFields(entry))
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.output, `{"level":"ERROR","message":"failed to marshal log entry","error":"%v"}`+"\n", err)
		return
	}
	fmt.Fprintf(l.output, "%s\n", data)
}

func renderTextFields(entry map[string]interface{}) string {
	var b strings.Builder
	for _, k := range []string{"run_id", "error"} {
		if v, ok := entry[k]; ok {
			fmt.Fprintf(&b, "%s=%v ", k, v)
		}
	}
	return strings.TrimSpace(b.String())
}

type runIDKey struct{}

// WithRunID attaches a run-correlation ID to ctx for WithContext loggers.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// Global default logger, mirrored package-level helpers below.
var defaultLogger = NewDefaultLogger()

// SetDefaultLogger replaces the package-level default logger.
func SetDefaultLogger(l *StructuredLogger) { defaultLogger = l }

// GetDefaultLogger returns the package-level default logger.
func GetDefaultLogger() *StructuredLogger { return defaultLogger }

func Debug(msg string, fields ...Field)    { defaultLogger.Debug(msg, fields...) }
func Info(msg string, fields ...Field)     { defaultLogger.Info(msg, fields...) }
func Warn(msg string, fields ...Field)     { defaultLogger.Warn(msg, fields...) }
func ErrorMsg(msg string, fields ...Field) { defaultLogger.Error(msg, fields...) }
func Fatal(msg string, fields ...Field)    { defaultLogger.Fatal(msg, fields...) }
