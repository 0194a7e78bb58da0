/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package cloud

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeInstance is the in-memory model backing the fake directory.
type FakeInstance struct {
	ID               string
	PrivateAddress   string
	AvailabilityZone string
	RootDevice       string
	// Devices maps device path to attached volume id.
	Devices map[string]string
}

// Fake is an in-memory Provider for unit tests. Failure modes are
// scriptable per resource and every mutating call is recorded in Calls.
type Fake struct {
	mu sync.Mutex

	Instances map[string]*FakeInstance

	// EmptySnapshotFor makes CreateSnapshot return an empty id (nil error)
	// the given number of times for a volume id.
	EmptySnapshotFor map[string]int

	// FailSnapshotWait makes WaitSnapshotCompleted fail for a snapshot id.
	FailSnapshotWait map[string]bool

	// EmptyVolumeCreate makes CreateVolumeFromSnapshot return an empty id.
	EmptyVolumeCreate bool

	// FailAttach makes AttachVolume return an error.
	FailAttach bool

	// StuckAttachment pins AttachmentState to "attaching" after a
	// successful attach call.
	StuckAttachment bool

	// Calls records every provider call as "Name(arg,...)" in order.
	Calls []string

	snapshotSeq int
	volumeSeq   int
	attachments map[string]string
}

// NewFake returns an empty fake provider.
func NewFake() *Fake {
	return &Fake{
		Instances:        map[string]*FakeInstance{},
		EmptySnapshotFor: map[string]int{},
		FailSnapshotWait: map[string]bool{},
		attachments:      map[string]string{},
	}
}

// AddInstance registers an instance with a root volume attached at its root
// device and returns it for further mutation.
func (f *Fake) AddInstance(id, addr, az, rootDevice, rootVolume string) *FakeInstance {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst := &FakeInstance{
		ID:               id,
		PrivateAddress:   addr,
		AvailabilityZone: az,
		RootDevice:       rootDevice,
		Devices:          map[string]string{rootDevice: rootVolume},
	}
	f.Instances[id] = inst
	f.attachments[rootVolume] = AttachmentAttached
	return inst
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// CallsNamed returns the recorded calls whose name matches.
func (f *Fake) CallsNamed(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if len(c) > len(name) && c[:len(name)] == name && c[len(name)] == '(' {
			out = append(out, c)
		}
	}
	return out
}

// InstanceByPrivateAddress implements ComputeDirectory.
func (f *Fake) InstanceByPrivateAddress(_ context.Context, addr string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("InstanceByPrivateAddress(%s)", addr)
	var ids []string
	for id, inst := range f.Instances {
		if inst.PrivateAddress == addr {
			ids = append(ids, id)
		}
	}
	switch len(ids) {
	case 0:
		return "", &NotFoundError{Resource: "instance", Key: addr}
	case 1:
		return ids[0], nil
	default:
		return "", &AmbiguousMatchError{Resource: "instance", Key: addr, Count: len(ids)}
	}
}

// PrimaryVolume implements ComputeDirectory.
func (f *Fake) PrimaryVolume(_ context.Context, instanceID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PrimaryVolume(%s)", instanceID)
	inst, ok := f.Instances[instanceID]
	if !ok {
		return "", &NotFoundError{Resource: "instance", Key: instanceID}
	}
	vol, ok := inst.Devices[inst.RootDevice]
	if !ok {
		return "", &NotFoundError{Resource: "root volume", Key: instanceID}
	}
	return vol, nil
}

// InstanceAvailabilityZone implements ComputeDirectory.
func (f *Fake) InstanceAvailabilityZone(_ context.Context, instanceID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("InstanceAvailabilityZone(%s)", instanceID)
	inst, ok := f.Instances[instanceID]
	if !ok {
		return "", &NotFoundError{Resource: "instance", Key: instanceID}
	}
	return inst.AvailabilityZone, nil
}

// VolumeAtDevice implements ComputeDirectory.
func (f *Fake) VolumeAtDevice(_ context.Context, instanceID, device string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("VolumeAtDevice(%s,%s)", instanceID, device)
	inst, ok := f.Instances[instanceID]
	if !ok {
		return "", &NotFoundError{Resource: "instance", Key: instanceID}
	}
	return inst.Devices[device], nil
}

// CreateSnapshot implements SnapshotService.
func (f *Fake) CreateSnapshot(_ context.Context, volumeID, description string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateSnapshot(%s)", volumeID)
	if n := f.EmptySnapshotFor[volumeID]; n != 0 {
		if n > 0 {
			f.EmptySnapshotFor[volumeID] = n - 1
		}
		return "", nil
	}
	f.snapshotSeq++
	return fmt.Sprintf("snap-%04d", f.snapshotSeq), nil
}

// WaitSnapshotCompleted implements SnapshotService.
func (f *Fake) WaitSnapshotCompleted(_ context.Context, snapshotID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("WaitSnapshotCompleted(%s)", snapshotID)
	if f.FailSnapshotWait[snapshotID] {
		return fmt.Errorf("snapshot %s did not complete: timeout", snapshotID)
	}
	return nil
}

// CreateVolumeFromSnapshot implements VolumeService.
func (f *Fake) CreateVolumeFromSnapshot(_ context.Context, snapshotID, az string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateVolumeFromSnapshot(%s,%s)", snapshotID, az)
	if f.EmptyVolumeCreate {
		return "", nil
	}
	f.volumeSeq++
	id := fmt.Sprintf("vol-%04d", f.volumeSeq)
	f.attachments[id] = AttachmentNone
	return id, nil
}

// AttachVolume implements VolumeService.
func (f *Fake) AttachVolume(_ context.Context, volumeID, instanceID, device string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AttachVolume(%s,%s,%s)", volumeID, instanceID, device)
	if f.FailAttach {
		return fmt.Errorf("failed to attach %s: fake attach error", volumeID)
	}
	state := AttachmentAttached
	if f.StuckAttachment {
		state = AttachmentAttaching
	}
	f.attachments[volumeID] = state
	if inst, ok := f.Instances[instanceID]; ok && state == AttachmentAttached {
		inst.Devices[device] = volumeID
	}
	return nil
}

// DetachVolume implements VolumeService.
func (f *Fake) DetachVolume(_ context.Context, volumeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DetachVolume(%s)", volumeID)
	f.attachments[volumeID] = AttachmentDetached
	for _, inst := range f.Instances {
		for dev, vol := range inst.Devices {
			if vol == volumeID {
				delete(inst.Devices, dev)
			}
		}
	}
	return nil
}

// WaitVolumeAvailable implements VolumeService.
func (f *Fake) WaitVolumeAvailable(_ context.Context, volumeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("WaitVolumeAvailable(%s)", volumeID)
	return nil
}

// DeleteVolume implements VolumeService.
func (f *Fake) DeleteVolume(_ context.Context, volumeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteVolume(%s)", volumeID)
	delete(f.attachments, volumeID)
	return nil
}

// AttachmentState implements VolumeService.
func (f *Fake) AttachmentState(_ context.Context, volumeID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AttachmentState(%s)", volumeID)
	return f.attachments[volumeID], nil
}
