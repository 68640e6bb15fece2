// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

//go:build go1.21
// +build go1.21

package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

type jsonLog struct {
	Level   string    `json:"level"`
	Message string    `json:"msg"`
	Time    time.Time `json:"time"`
}

func TestNewJSON(t *testing.T) {
	var b bytes.Buffer
	l := NewJSON(&b, LevelDebug)
	if l.l != LevelDebug {
		t.Error("Expected level to be LevelDebug, got ", l.l)
	}
	if l.log == nil {
		t.Error("logger not initialized")
	}
}

func TestJSONDebugf(t *testing.T) {
	var b bytes.Buffer
	l := NewJSON(&b, LevelDebug)
	f := "test %s"
	msg := "foo"

	l.Debugf(f, msg)
	jl, err := unmarshalLog(b.Bytes())
	if err != nil {
		t.Errorf("Debugf() failed, unmarshal json log message failed: %s", err)
	}
	if jl.Message != fmt.Sprintf(f, msg) {
		t.Errorf("Debugf() failed, expected message: %s, got %s", msg, jl.Message)
	}

	b.Reset()
	l.l = LevelInfo
	l.Debugf("test %s", "foo")
	if b.String() != "" {
		t.Error("Debug message was not expected to be logged")
	}
}

func TestJSONDebugf_WithDefault(t *testing.T) {
	var b bytes.Buffer
	l := NewJSON(&b, 999)
	f := "test %s"
	msg := "foo"

	l.Debugf(f, msg)
	jl, err := unmarshalLog(b.Bytes())
	if err != nil {
		t.Errorf("Debugf() failed, unmarshal json log message failed: %s", err)
	}
	if jl.Message != fmt.Sprintf(f, msg) {
		t.Errorf("Debugf() failed, expected message: %s, got %s", msg, jl.Message)
	}
}

func TestJSONInfof(t *testing.T) {
	var b bytes.Buffer
	l := NewJSON(&b, LevelInfo)
	f := "test %s"
	msg := "foo"

	l.Infof(f, msg)
	jl, err := unmarshalLog(b.Bytes())
	if err != nil {
		t.Errorf("Infof() failed, unmarshal json log message failed: %s", err)
	}
	if jl.Message != fmt.Sprintf(f, msg) {
		t.Errorf("Infof() failed, expected message: %s, got %s", msg, jl.Message)
	}

	b.Reset()
	l.l = LevelWarn
	l.Infof("test %s", "foo")
	if b.String() != "" {
		t.Error("Info message was not expected to be logged")
	}
}

func TestJSONWarnf(t *testing.T) {
	var b bytes.Buffer
	l := NewJSON(&b, LevelWarn)
	f := "test %s"
	msg := "foo"

	l.Warnf(f, msg)
	jl, err := unmarshalLog(b.Bytes())
	if err != nil {
		t.Errorf("Warnf() failed, unmarshal json log message failed: %s", err)
	}
	if jl.Message != fmt.Sprintf(f, msg) {
		t.Errorf("Warnf() failed, expected message: %s, got %s", msg, jl.Message)
	}

	b.Reset()
	l.l = LevelError
	l.Warnf("test %s", "foo")
	if b.String() != "" {
		t.Error("Warn message was not expected to be logged")
	}
}

func TestJSONErrorf(t *testing.T) {
	var b bytes.Buffer
	l := NewJSON(&b, LevelError)
	f := "test %s"
	msg := "foo"

	l.Errorf(f, msg)
	jl, err := unmarshalLog(b.Bytes())
	if err != nil {
		t.Errorf("Errorf() failed, unmarshal json log message failed: %s", err)
	}
	if jl.Message != fmt.Sprintf(f, msg) {
		t.Errorf("Errorf() failed, expected message: %s, got %s", msg, jl.Message)
	}

	b.Reset()
	l.l = -99
	l.Errorf("test %s", "foo")
	if b.String() != "" {
		t.Error("Error message was not expected to be logged")
	}
}

func unmarshalLog(j []byte) (jsonLog, error) {
	var jl jsonLog
	if err := json.Unmarshal(j, &jl); err != nil {
		return jl, err
	}
	return jl, nil
}
