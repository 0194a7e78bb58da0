/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package restore reconstitutes a node's disk from a prior backup. The
// primary path recreates the instance, builds a volume from the stored
// snapshot, and attaches it; when volume creation or attachment fails the
// orchestrator cleans up what it created and offers the raw disk-image
// fallback through an injected policy.
package restore
