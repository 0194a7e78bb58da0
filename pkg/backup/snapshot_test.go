/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package backup

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubevac/kubevac/pkg/cloud"
	"github.com/kubevac/kubevac/pkg/inventory"
)

func testNode() inventory.Node {
	return inventory.Node{Address: "10.0.0.11", InstanceID: "i-w1", Role: inventory.RoleWorker}
}

func newCoordinator(t *testing.T, provider *cloud.Fake, cfg Config) *SnapshotCoordinator {
	t.Helper()
	cfg.Name = "nightly"
	cfg.Dir = t.TempDir()
	cfg = cfg.WithDefaults()
	require.NoError(t, cfg.EnsureDir())
	return &SnapshotCoordinator{
		Directory: provider,
		Snapshots: provider,
		Manifest:  OpenManifest(cfg.ManifestPath()),
		Config:    cfg,
	}
}

func TestSnapshotFirstAttemptSucceeds(t *testing.T) {
	t.Parallel()

	provider := cloud.NewFake()
	provider.AddInstance("i-w1", "10.0.0.11", "eu-west-1a", "/dev/xvda", "vol-w1")
	c := newCoordinator(t, provider, Config{})

	entry, err := c.Take(context.Background(), testNode())
	require.NoError(t, err)
	assert.Equal(t, "i-w1", entry.InstanceID)
	assert.NotEmpty(t, entry.SnapshotID)

	entries, err := c.Manifest.Load()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry, entries[0])
}

func TestSnapshotRetriesWithDoublingBackoff(t *testing.T) {
	t.Parallel()

	provider := cloud.NewFake()
	provider.AddInstance("i-w1", "10.0.0.11", "eu-west-1a", "/dev/xvda", "vol-w1")
	// Creation returns an empty id on every attempt.
	provider.EmptySnapshotFor["vol-w1"] = -1

	clk := testclock.NewClock(time.Now())
	c := newCoordinator(t, provider, Config{
		MaxAttempts: 5,
		InitialWait: 10 * time.Second,
		Clock:       clk,
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Take(context.Background(), testNode())
		done <- err
	}()

	// Four backoff sleeps between five attempts: 10, 20, 40, 80 seconds.
	for _, wait := range []time.Duration{10, 20, 40, 80} {
		require.NoError(t, clk.WaitAdvance(wait*time.Second, time.Second, 1))
	}

	err := <-done
	var snapErr *SnapshotError
	require.ErrorAs(t, err, &snapErr)
	assert.Equal(t, 5, snapErr.Attempts)
	assert.Equal(t, "10.0.0.11", snapErr.Address)

	// Exhaustion never writes a manifest row.
	entries, loadErr := c.Manifest.Load()
	require.NoError(t, loadErr)
	assert.Empty(t, entries)
}

func TestSnapshotRecoversAfterFailedAttempts(t *testing.T) {
	t.Parallel()

	provider := cloud.NewFake()
	provider.AddInstance("i-w1", "10.0.0.11", "eu-west-1a", "/dev/xvda", "vol-w1")
	// First two creations come back empty, third succeeds.
	provider.EmptySnapshotFor["vol-w1"] = 2

	c := newCoordinator(t, provider, Config{
		MaxAttempts: 5,
		InitialWait: time.Millisecond,
	})

	entry, err := c.Take(context.Background(), testNode())
	require.NoError(t, err)
	assert.NotEmpty(t, entry.SnapshotID)
	assert.Len(t, provider.CallsNamed("CreateSnapshot"), 3)

	entries, err := c.Manifest.Load()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSnapshotWaitTimeoutIsAttemptFailure(t *testing.T) {
	t.Parallel()

	provider := cloud.NewFake()
	provider.AddInstance("i-w1", "10.0.0.11", "eu-west-1a", "/dev/xvda", "vol-w1")
	provider.FailSnapshotWait["snap-0001"] = true
	provider.FailSnapshotWait["snap-0002"] = true

	c := newCoordinator(t, provider, Config{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
	})

	entry, err := c.Take(context.Background(), testNode())
	require.NoError(t, err)
	assert.Equal(t, "snap-0003", entry.SnapshotID)
}

func TestSnapshotCancellationLeavesNoManifestRow(t *testing.T) {
	t.Parallel()

	provider := cloud.NewFake()
	provider.AddInstance("i-w1", "10.0.0.11", "eu-west-1a", "/dev/xvda", "vol-w1")
	provider.EmptySnapshotFor["vol-w1"] = -1

	clk := testclock.NewClock(time.Now())
	c := newCoordinator(t, provider, Config{
		MaxAttempts: 5,
		InitialWait: 10 * time.Second,
		Clock:       clk,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Take(ctx, testNode())
		done <- err
	}()

	// Cancel while the coordinator sits in its first backoff sleep.
	require.NoError(t, clk.WaitAdvance(0, time.Second, 1))
	cancel()

	err := <-done
	var snapErr *SnapshotError
	require.ErrorAs(t, err, &snapErr)

	entries, loadErr := c.Manifest.Load()
	require.NoError(t, loadErr)
	assert.Empty(t, entries)
}
