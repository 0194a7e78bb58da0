/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package cli implements the kubevac command-line interface.
//
// # Commands
//
// backup - Back up a cluster:
//
//	kubevac backup --control-plane ADDR --name NAME [--dir DIR] [--skip-disk-images]
//
// Discovers the cluster's nodes through the control plane, snapshots each
// node's primary volume in parallel with bounded retries, copies each
// node's raw disk image over SSH, dumps etcd state, and packages
// everything into DIR/NAME.tar.gz. Re-running with the same name resumes.
//
// restore - Restore a node from a prior backup:
//
//	kubevac restore --backup-dir DIR --terraform-dir DIR [--fallback always|never]
//
// Recreates the instance, builds a volume from the stored snapshot and
// attaches it; on failure offers the raw disk-image fallback.
//
// version - Print version information.
//
// # Environment Variables
//
//	LOG_LEVEL         Set logging verbosity (debug, info, warn, error)
//	AWS_REGION        Cloud provider region
//	KUBEVAC_SSH_USER  SSH user on cluster nodes
//	KUBEVAC_SSH_KEY   Path to the SSH private key
//
// A .env file in the working directory is loaded on startup if present.
//
// # Exit Codes
//
//	0  The invoked operation succeeded (backup: archive produced, even if
//	   individual nodes failed; restore: a disk was restored)
//	1  Fatal error (discovery, packaging, declined or failed fallback)
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/kubevac/kubevac/pkg/cli.version=1.0.0'"
package cli
