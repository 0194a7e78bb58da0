/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package restore

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/kubevac/kubevac/pkg/cloud"
	"github.com/kubevac/kubevac/pkg/remote"
)

// Terraform output names the instance module must export.
const (
	outputInstanceID = "instance_id"
	outputInstanceIP = "instance_ip"
)

var errNotAttached = errors.New("volume not yet attached")

// InfraApplier recreates the target instance from its infrastructure-as-code
// description and returns the apply outputs.
type InfraApplier interface {
	Apply(ctx context.Context, dir string, vars map[string]string) (map[string]string, error)
}

// Config carries one restore invocation's inputs.
type Config struct {
	// BackupDir is the prior backup's artifact directory.
	BackupDir string

	// TerraformDir holds the instance's infrastructure description.
	TerraformDir string

	// AttachPollInterval and AttachPollAttempts bound the wait for the
	// attachment to reach the attached state.
	AttachPollInterval time.Duration
	AttachPollAttempts int

	// Clock drives the attachment poll; tests inject a fake.
	Clock clock.Clock
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.AttachPollInterval == 0 {
		c.AttachPollInterval = 2 * time.Second
	}
	if c.AttachPollAttempts == 0 {
		c.AttachPollAttempts = 60
	}
	if c.Clock == nil {
		c.Clock = clock.WallClock
	}
	return c
}

// Orchestrator reconstitutes a node's disk from a prior backup: recreate
// the instance, build a volume from the stored snapshot, attach it, and on
// any failure of creation or attachment offer the raw disk-image fallback.
// Any volume it creates is either attached to the target instance or
// deleted before the orchestrator returns; nothing is left orphaned.
type Orchestrator struct {
	Provider cloud.Provider
	Runner   remote.Runner
	Infra    InfraApplier
	Policy   FallbackPolicy
	Config   Config
}

// Run executes the restore. Failures before the fallback decision point are
// fatal immediately; after it, failure of the fallback itself is fatal.
func (o *Orchestrator) Run(ctx context.Context) error {
	cfg := o.Config.WithDefaults()

	meta, err := LoadMetadata(cfg.BackupDir)
	if err != nil {
		return err
	}
	slog.Info("restore metadata loaded",
		"image", meta.ImageID,
		"snapshot", meta.SnapshotID,
		"volumeSize", meta.VolumeSize,
		"rootDevice", meta.RootDevice)

	outputs, err := o.Infra.Apply(ctx, cfg.TerraformDir, map[string]string{
		"ami_id":      meta.ImageID,
		"volume_size": strconv.Itoa(meta.VolumeSize),
	})
	if err != nil {
		return fmt.Errorf("failed to provision target instance: %w", err)
	}
	instanceID := outputs[outputInstanceID]
	if instanceID == "" {
		return fmt.Errorf("infrastructure apply produced no %s output", outputInstanceID)
	}
	instanceIP := outputs[outputInstanceIP]
	slog.Info("target instance provisioned", "instance", instanceID, "address", instanceIP)

	az, err := o.Provider.InstanceAvailabilityZone(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("failed to resolve availability zone of %s: %w", instanceID, err)
	}

	volumeID, err := o.Provider.CreateVolumeFromSnapshot(ctx, meta.SnapshotID, az)
	if err != nil || volumeID == "" {
		// No volume exists, so there is nothing to clean up before the
		// fallback decision.
		provErr := &VolumeProvisionError{SnapshotID: meta.SnapshotID, Err: err}
		slog.Error("volume provisioning failed", "snapshot", meta.SnapshotID, "error", provErr.Error())
		return o.fallback(ctx, cfg, meta, instanceIP, provErr)
	}
	slog.Info("volume created from snapshot", "volume", volumeID, "az", az)

	if err := o.attach(ctx, cfg, volumeID, instanceID, meta.RootDevice); err != nil {
		slog.Error("attachment failed",
			"volume", volumeID,
			"instance", instanceID,
			"error", err.Error())
		o.cleanupVolume(ctx, volumeID)
		return o.fallback(ctx, cfg, meta, instanceIP, err)
	}

	slog.Info("restore complete", "instance", instanceID, "volume", volumeID, "device", meta.RootDevice)
	return nil
}

// attach frees the target device if occupied, attaches the volume, and
// polls until the attachment reaches the attached state within the bounded
// wait.
func (o *Orchestrator) attach(ctx context.Context, cfg Config, volumeID, instanceID, device string) error {
	occupant, err := o.Provider.VolumeAtDevice(ctx, instanceID, device)
	if err != nil {
		return &AttachmentError{VolumeID: volumeID, InstanceID: instanceID, Err: err}
	}
	if occupant != "" {
		slog.Info("detaching volume occupying target device", "volume", occupant, "device", device)
		if err := o.Provider.DetachVolume(ctx, occupant); err != nil {
			return &AttachmentError{VolumeID: volumeID, InstanceID: instanceID, Err: err}
		}
		if err := o.Provider.WaitVolumeAvailable(ctx, occupant); err != nil {
			return &AttachmentError{VolumeID: volumeID, InstanceID: instanceID, Err: err}
		}
	}

	if err := o.Provider.AttachVolume(ctx, volumeID, instanceID, device); err != nil {
		return &AttachmentError{VolumeID: volumeID, InstanceID: instanceID, Err: err}
	}

	var lastState string
	err = retry.Call(retry.CallArgs{
		Func: func() error {
			state, err := o.Provider.AttachmentState(ctx, volumeID)
			if err != nil {
				return err
			}
			lastState = state
			if state != cloud.AttachmentAttached {
				return errNotAttached
			}
			return nil
		},
		Attempts: cfg.AttachPollAttempts,
		Delay:    cfg.AttachPollInterval,
		Clock:    cfg.Clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		return &AttachmentError{
			VolumeID:   volumeID,
			InstanceID: instanceID,
			State:      lastState,
			Err:        retry.LastError(err),
		}
	}
	return nil
}

// cleanupVolume removes a volume this run created but could not attach.
// Best effort: errors are logged and swallowed so cleanup never masks the
// failure being reported.
func (o *Orchestrator) cleanupVolume(ctx context.Context, volumeID string) {
	if err := o.Provider.DetachVolume(ctx, volumeID); err != nil {
		slog.Warn("cleanup detach failed", "volume", volumeID, "error", err.Error())
	}
	if err := o.Provider.WaitVolumeAvailable(ctx, volumeID); err != nil {
		slog.Warn("cleanup wait failed", "volume", volumeID, "error", err.Error())
	}
	if err := o.Provider.DeleteVolume(ctx, volumeID); err != nil {
		slog.Warn("cleanup delete failed", "volume", volumeID, "error", err.Error())
		return
	}
	slog.Info("cleaned up unattached volume", "volume", volumeID)
}

// fallback writes the backup's raw disk image onto the target device after
// the policy approves. Any failure past this point is fatal.
func (o *Orchestrator) fallback(ctx context.Context, cfg Config, meta Metadata, instanceIP string, cause error) error {
	ok, err := o.Policy.Decide(cause.Error())
	if err != nil {
		return fmt.Errorf("fallback decision failed: %w", err)
	}
	if !ok {
		return &FallbackDeclinedError{Reason: cause.Error()}
	}

	if meta.DiskImage == "" {
		return &FallbackFailedError{Err: errors.New("backup recorded no disk image")}
	}
	if instanceIP == "" {
		return &FallbackFailedError{Err: fmt.Errorf("infrastructure apply produced no %s output", outputInstanceIP)}
	}

	imagePath := filepath.Join(cfg.BackupDir, meta.DiskImage)
	f, err := os.Open(imagePath)
	if err != nil {
		return &FallbackFailedError{Err: err}
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return &FallbackFailedError{Err: fmt.Errorf("failed to decompress %s: %w", imagePath, err)}
	}
	defer gz.Close()

	cmd := fmt.Sprintf("sudo dd of=%s bs=1M", meta.RootDevice)
	slog.Info("writing raw disk image to target", "image", imagePath, "target", instanceIP, "device", meta.RootDevice)
	exit, err := o.Runner.StreamInput(ctx, instanceIP, cmd, gz)
	if err != nil {
		return &FallbackFailedError{Err: err}
	}
	if exit != 0 {
		return &FallbackFailedError{Err: fmt.Errorf("remote dd exited %d", exit)}
	}

	slog.Info("disk image restore complete", "target", instanceIP, "device", meta.RootDevice)
	return nil
}
