// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

// Package log implements a logger interface shared by scrate's core
// encode/decode pipeline and its PKI client.
package log

// Logger is the log interface scrate's core and PKI client log through.
type Logger interface {
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}
