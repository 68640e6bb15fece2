// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

// Package scrate implements the encode/decode and signing engine for the
// scrate container format: a binary envelope around a source-package
// archive plus authenticated package metadata and a SHA-256 fingerprint.
package scrate

// Version is the release version of this module.
const Version = "0.1.0"
