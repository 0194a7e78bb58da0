/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package restore

import "fmt"

// VolumeProvisionError reports that volume creation from the snapshot
// returned no id. Routes to the fallback decision, not an immediate abort.
type VolumeProvisionError struct {
	SnapshotID string
	Err        error
}

func (e *VolumeProvisionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to provision volume from %s: %v", e.SnapshotID, e.Err)
	}
	return fmt.Sprintf("volume creation from %s returned no volume id", e.SnapshotID)
}

func (e *VolumeProvisionError) Unwrap() error { return e.Err }

// AttachmentError reports that the attach call failed or the attachment
// never reached the attached state. The created volume is cleaned up before
// the fallback decision.
type AttachmentError struct {
	VolumeID   string
	InstanceID string
	State      string
	Err        error
}

func (e *AttachmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to attach %s to %s: %v", e.VolumeID, e.InstanceID, e.Err)
	}
	return fmt.Sprintf("attachment of %s to %s never completed (state %q)", e.VolumeID, e.InstanceID, e.State)
}

func (e *AttachmentError) Unwrap() error { return e.Err }

// FallbackDeclinedError reports that the operator (or policy) declined the
// disk-image fallback. Fatal.
type FallbackDeclinedError struct {
	Reason string
}

func (e *FallbackDeclinedError) Error() string {
	return fmt.Sprintf("disk-image fallback declined after: %s", e.Reason)
}

// FallbackFailedError reports that the disk-image write itself failed.
// Fatal; there is no further fallback.
type FallbackFailedError struct {
	Err error
}

func (e *FallbackFailedError) Error() string {
	return fmt.Sprintf("disk-image fallback failed: %v", e.Err)
}

func (e *FallbackFailedError) Unwrap() error { return e.Err }
