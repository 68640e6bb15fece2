// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

//go:build go1.21
// +build go1.21

package log

import (
	"fmt"
	"io"
	"log/slog"
)

// JSONlog is the structured JSON logger that satisfies the Logger interface
type JSONlog struct {
	l   Level
	log *slog.Logger
}

// NewJSON returns a new JSONlog type that satisfies the Logger interface
func NewJSON(o io.Writer, l Level) *JSONlog {
	lo := slog.HandlerOptions{}
	switch l {
	case LevelDebug:
		lo.Level = slog.LevelDebug
	case LevelInfo:
		lo.Level = slog.LevelInfo
	case LevelWarn:
		lo.Level = slog.LevelWarn
	case LevelError:
		lo.Level = slog.LevelError
	default:
		lo.Level = slog.LevelDebug
	}
	lh := slog.NewJSONHandler(o, &lo)
	return &JSONlog{
		l:   l,
		log: slog.New(lh),
	}
}

// Debugf logs a debug message via the structured JSON logger
func (l *JSONlog) Debugf(f string, v ...interface{}) {
	if l.l >= LevelDebug {
		l.log.Debug(fmt.Sprintf(f, v...))
	}
}

// Infof logs an info message via the structured JSON logger
func (l *JSONlog) Infof(f string, v ...interface{}) {
	if l.l >= LevelInfo {
		l.log.Info(fmt.Sprintf(f, v...))
	}
}

// Warnf logs a warn message via the structured JSON logger
func (l *JSONlog) Warnf(f string, v ...interface{}) {
	if l.l >= LevelWarn {
		l.log.Warn(fmt.Sprintf(f, v...))
	}
}

// Errorf logs an error message via the structured JSON logger
func (l *JSONlog) Errorf(f string, v ...interface{}) {
	if l.l >= LevelError {
		l.log.Error(fmt.Sprintf(f, v...))
	}
}
