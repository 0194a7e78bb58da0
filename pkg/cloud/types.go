/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package cloud

import (
	"context"
	"fmt"
	"time"
)

// Attachment states reported by AttachmentState.
const (
	AttachmentAttached  = "attached"
	AttachmentAttaching = "attaching"
	AttachmentDetached  = "detached"
	AttachmentNone      = ""
)

// ComputeDirectory resolves cluster nodes to infrastructure identifiers.
// Keep it small and focused on what the engine actually needs so it stays
// mockable.
type ComputeDirectory interface {
	// InstanceByPrivateAddress returns the id of the one running instance
	// whose primary private address equals addr. Zero matches yield
	// *NotFoundError, more than one *AmbiguousMatchError.
	InstanceByPrivateAddress(ctx context.Context, addr string) (string, error)

	// PrimaryVolume returns the volume id backing the instance's root device.
	PrimaryVolume(ctx context.Context, instanceID string) (string, error)

	// InstanceAvailabilityZone returns the zone the instance runs in.
	InstanceAvailabilityZone(ctx context.Context, instanceID string) (string, error)

	// VolumeAtDevice returns the id of the volume currently attached to the
	// instance at the given device path, or "" if the device is free.
	VolumeAtDevice(ctx context.Context, instanceID, device string) (string, error)
}

// SnapshotService creates block-storage snapshots and waits on their state.
type SnapshotService interface {
	// CreateSnapshot requests a snapshot of the volume. An empty id with a
	// nil error means the provider accepted the call but returned nothing
	// usable; callers treat both as a failed attempt.
	CreateSnapshot(ctx context.Context, volumeID, description string) (string, error)

	// WaitSnapshotCompleted blocks until the snapshot reaches the completed
	// state or the deadline elapses.
	WaitSnapshotCompleted(ctx context.Context, snapshotID string, deadline time.Duration) error
}

// VolumeService provisions and attaches volumes during restore.
type VolumeService interface {
	CreateVolumeFromSnapshot(ctx context.Context, snapshotID, az string) (string, error)
	AttachVolume(ctx context.Context, volumeID, instanceID, device string) error
	DetachVolume(ctx context.Context, volumeID string) error
	WaitVolumeAvailable(ctx context.Context, volumeID string) error
	DeleteVolume(ctx context.Context, volumeID string) error
	AttachmentState(ctx context.Context, volumeID string) (string, error)
}

// Provider bundles the three service surfaces one client usually implements.
type Provider interface {
	ComputeDirectory
	SnapshotService
	VolumeService
}

// NotFoundError reports a directory lookup that matched nothing.
type NotFoundError struct{ Resource, Key string }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// AmbiguousMatchError reports a directory lookup that matched more than one
// resource. Ambiguity is an error, never a best-effort pick.
type AmbiguousMatchError struct {
	Resource string
	Key      string
	Count    int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%s lookup for %s matched %d resources", e.Resource, e.Key, e.Count)
}
