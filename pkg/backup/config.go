/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/clock"
)

// Defaults for retry tuning and artifact layout.
const (
	DefaultMaxAttempts    = 5
	DefaultInitialWait    = 10 * time.Second
	DefaultCompletionWait = 15 * time.Minute
	DefaultDevice         = "/dev/xvda"
)

// Config carries everything one backup run needs. It is passed explicitly
// into every component; nothing reads ambient process state.
type Config struct {
	// ControlPlane is the control-plane node's internal address.
	ControlPlane string

	// Name is the backup's name; artifacts live in Dir/Name and the final
	// archive is Dir/Name.tar.gz.
	Name string

	// Dir is the caller-provided output directory.
	Dir string

	// SkipDiskImages disables the raw disk-image phase.
	SkipDiskImages bool

	// MaxAttempts bounds snapshot attempts per node.
	MaxAttempts int

	// InitialWait seeds the exponential backoff between snapshot attempts.
	InitialWait time.Duration

	// CompletionWait bounds the wait for one snapshot to reach a terminal
	// provider state.
	CompletionWait time.Duration

	// Device is the node's primary block device path.
	Device string

	// Clock drives backoff sleeps; tests inject a fake.
	Clock clock.Clock
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialWait == 0 {
		c.InitialWait = DefaultInitialWait
	}
	if c.CompletionWait == 0 {
		c.CompletionWait = DefaultCompletionWait
	}
	if c.Device == "" {
		c.Device = DefaultDevice
	}
	if c.Dir == "" {
		c.Dir = "."
	}
	if c.Clock == nil {
		c.Clock = clock.WallClock
	}
	return c
}

// BackupDir is the directory holding this run's artifacts.
func (c Config) BackupDir() string { return filepath.Join(c.Dir, c.Name) }

// ManifestPath is the append-only record of completed snapshots.
func (c Config) ManifestPath() string { return filepath.Join(c.BackupDir(), "manifest.csv") }

// ImagePath is the node's compressed raw disk image.
func (c Config) ImagePath(addr string) string {
	return filepath.Join(c.BackupDir(), addr+".img.gz")
}

// StatusPath is the node's disk-backup status record.
func (c Config) StatusPath(addr string) string {
	return filepath.Join(c.BackupDir(), addr+".status.yaml")
}

// ExitCodePath is the node's recorded copy exit status.
func (c Config) ExitCodePath(addr string) string {
	return filepath.Join(c.BackupDir(), addr+".exit")
}

// NodeLogPath is the node's disk-backup log.
func (c Config) NodeLogPath(addr string) string {
	return filepath.Join(c.BackupDir(), addr+".log")
}

// StateDumpPath is the local copy of the etcd snapshot.
func (c Config) StateDumpPath() string {
	return filepath.Join(c.BackupDir(), "etcd-snapshot.db")
}

// RunLogPath is the aggregate log for the whole run.
func (c Config) RunLogPath() string { return filepath.Join(c.BackupDir(), "backup.log") }

// ArchivePath is the final packaged archive.
func (c Config) ArchivePath() string { return filepath.Join(c.Dir, c.Name+".tar.gz") }

// EnsureDir creates the backup directory.
func (c Config) EnsureDir() error {
	if err := os.MkdirAll(c.BackupDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create backup dir %s: %w", c.BackupDir(), err)
	}
	return nil
}
