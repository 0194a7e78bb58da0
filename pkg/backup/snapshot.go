/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/retry"

	"github.com/kubevac/kubevac/pkg/cloud"
	"github.com/kubevac/kubevac/pkg/inventory"
)

// errEmptySnapshotID marks a creation call the provider accepted but
// answered with no usable id. Treated as an attempt failure, not fatal.
var errEmptySnapshotID = errors.New("provider returned empty snapshot id")

// SnapshotCoordinator drives one node's snapshot to a terminal state:
// resolve the primary volume, create a snapshot, wait for completion, and
// retry with doubling backoff up to the configured attempt budget. The
// first fully successful attempt appends exactly one manifest entry.
type SnapshotCoordinator struct {
	Directory cloud.ComputeDirectory
	Snapshots cloud.SnapshotService
	Manifest  *Manifest
	Config    Config
}

// Take runs the attempt sequence for node. On exhaustion it returns a
// *SnapshotError carrying the attempt count; sibling nodes are unaffected.
func (c *SnapshotCoordinator) Take(ctx context.Context, node inventory.Node) (Entry, error) {
	start := time.Now()
	defer func() { snapshotDuration.Observe(time.Since(start).Seconds()) }()

	attempts := 0
	var snapshotID string
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			attempts++
			id, err := c.attempt(ctx, node)
			if err != nil {
				return err
			}
			snapshotID = id
			return nil
		},
		NotifyFunc: func(lastErr error, attempt int) {
			snapshotAttemptsTotal.WithLabelValues("retry").Inc()
			slog.Warn("snapshot attempt failed",
				"node", node.Address,
				"instance", node.InstanceID,
				"attempt", attempt,
				"error", lastErr.Error())
		},
		Attempts:    c.Config.MaxAttempts,
		Delay:       c.Config.InitialWait,
		BackoffFunc: retry.DoubleDelay,
		Clock:       c.Config.Clock,
		Stop:        ctx.Done(),
	})
	if err != nil {
		snapshotAttemptsTotal.WithLabelValues("exhausted").Inc()
		if retry.IsAttemptsExceeded(err) || retry.IsRetryStopped(err) {
			err = retry.LastError(err)
		}
		return Entry{}, &SnapshotError{
			Address:    node.Address,
			InstanceID: node.InstanceID,
			Attempts:   attempts,
			Err:        err,
		}
	}

	entry := Entry{
		InstanceID: node.InstanceID,
		Address:    node.Address,
		Role:       node.Role,
		SnapshotID: snapshotID,
	}
	if err := c.Manifest.Append(entry); err != nil {
		return Entry{}, fmt.Errorf("snapshot %s completed but could not be recorded: %w", snapshotID, err)
	}
	snapshotAttemptsTotal.WithLabelValues("success").Inc()
	slog.Info("snapshot completed",
		"node", node.Address,
		"instance", node.InstanceID,
		"snapshot", snapshotID,
		"attempts", attempts)
	return entry, nil
}

// attempt is one full create-and-wait cycle. Any failure makes the whole
// cycle retryable, including volume resolution.
func (c *SnapshotCoordinator) attempt(ctx context.Context, node inventory.Node) (string, error) {
	volumeID, err := c.Directory.PrimaryVolume(ctx, node.InstanceID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve primary volume of %s: %w", node.InstanceID, err)
	}
	desc := fmt.Sprintf("kubevac %s %s (%s)", c.Config.Name, node.Address, node.Role)
	id, err := c.Snapshots.CreateSnapshot(ctx, volumeID, desc)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errEmptySnapshotID
	}
	if err := c.Snapshots.WaitSnapshotCompleted(ctx, id, c.Config.CompletionWait); err != nil {
		return "", err
	}
	return id, nil
}
