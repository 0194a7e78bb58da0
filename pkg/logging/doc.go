/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package logging wraps the standard library slog package with kubevac
// defaults: structured JSON output to stderr, module/version context on
// every record, LOG_LEVEL environment configuration, and source location
// tracking for debug logs.
//
// Typical use:
//
//	logging.SetDefaultStructuredLoggerWithLevel("kubevac", version, "info")
//	slog.Info("snapshot created", "node", addr, "snapshot", id)
package logging
