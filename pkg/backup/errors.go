/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package backup

import "fmt"

// SnapshotError reports one node's snapshot attempts exhausted. It is
// recorded per node and never aborts sibling nodes or the run; the absence
// of that node's manifest entry is the durable signal.
type SnapshotError struct {
	Address    string
	InstanceID string
	Attempts   int
	Err        error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot of %s (%s) failed after %d attempts: %v",
		e.Address, e.InstanceID, e.Attempts, e.Err)
}

func (e *SnapshotError) Unwrap() error { return e.Err }

// DiskBackupError reports one node's disk copy failure. Never retried
// automatically; the partial image and log are kept for diagnosis.
type DiskBackupError struct {
	Address    string
	InstanceID string
	ExitStatus int
	Err        error
}

func (e *DiskBackupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("disk backup of %s failed: %v", e.Address, e.Err)
	}
	return fmt.Sprintf("disk backup of %s exited with status %d", e.Address, e.ExitStatus)
}

func (e *DiskBackupError) Unwrap() error { return e.Err }

// StateDumpWarning reports a missing or empty control-plane state dump.
// Non-fatal; the rest of the backup still completes.
type StateDumpWarning struct {
	Reason string
	Err    error
}

func (e *StateDumpWarning) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("state dump %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("state dump %s", e.Reason)
}

func (e *StateDumpWarning) Unwrap() error { return e.Err }

// PackagingError reports final archive creation failure. Fatal to the run.
type PackagingError struct {
	Path string
	Err  error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("failed to package backup archive %s: %v", e.Path, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }
