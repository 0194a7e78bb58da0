/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package remote abstracts command execution on cluster nodes. SSHRunner is
// the production transport; Fake is a script-table runner for tests.
package remote
