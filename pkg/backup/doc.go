/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package backup implements the cluster backup engine: a parallel per-node
// snapshot phase with bounded exponential-backoff retries, an idempotent
// disk-image phase, a control-plane state dump, and final packaging of all
// artifacts into one archive.
//
// The manifest is the source of truth for what a backup captured: a node
// has a manifest row if and only if its snapshot reached the completed
// state. Per-node failures are aggregated into the run report; only node
// discovery and archive creation abort the run.
package backup
