/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package backup

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubevac/kubevac/pkg/remote"
)

func newDiskWorker(t *testing.T) (*DiskWorker, *remote.Fake) {
	t.Helper()
	runner := remote.NewFakeRunner()
	cfg := Config{Name: "nightly", Dir: t.TempDir()}.WithDefaults()
	require.NoError(t, cfg.EnsureDir())
	return &DiskWorker{Runner: runner, Config: cfg}, runner
}

func TestDiskBackupSuccess(t *testing.T) {
	t.Parallel()

	w, runner := newDiskWorker(t)
	node := testNode()
	runner.Script(node.Address, "sudo dd", remote.FakeResponse{Stdout: []byte("fake-image-bytes")})

	require.NoError(t, w.Backup(context.Background(), node))

	img, err := os.ReadFile(w.Config.ImagePath(node.Address))
	require.NoError(t, err)
	assert.Equal(t, "fake-image-bytes", string(img))

	rec, err := LoadStatus(w.Config.StatusPath(node.Address), node.Address)
	require.NoError(t, err)
	assert.Equal(t, StateDone, rec.State)
	assert.Equal(t, 0, rec.ExitCode)

	exit, err := os.ReadFile(w.Config.ExitCodePath(node.Address))
	require.NoError(t, err)
	assert.Equal(t, "0\n", string(exit))
}

func TestDiskBackupIdempotent(t *testing.T) {
	t.Parallel()

	w, runner := newDiskWorker(t)
	node := testNode()
	runner.Script(node.Address, "sudo dd", remote.FakeResponse{Stdout: []byte("fake-image-bytes")})

	require.NoError(t, w.Backup(context.Background(), node))
	firstCalls := len(runner.Calls())
	require.Equal(t, 1, firstCalls)

	// Second run must not touch the transport at all.
	require.NoError(t, w.Backup(context.Background(), node))
	assert.Equal(t, firstCalls, len(runner.Calls()))
}

func TestDiskBackupNonZeroExit(t *testing.T) {
	t.Parallel()

	w, runner := newDiskWorker(t)
	node := testNode()
	runner.Script(node.Address, "sudo dd", remote.FakeResponse{Stdout: []byte("partial"), Exit: 1})

	err := w.Backup(context.Background(), node)
	var diskErr *DiskBackupError
	require.ErrorAs(t, err, &diskErr)
	assert.Equal(t, 1, diskErr.ExitStatus)

	// The partial image is kept for diagnosis.
	img, readErr := os.ReadFile(w.Config.ImagePath(node.Address))
	require.NoError(t, readErr)
	assert.Equal(t, "partial", string(img))

	rec, loadErr := LoadStatus(w.Config.StatusPath(node.Address), node.Address)
	require.NoError(t, loadErr)
	assert.Equal(t, StateFailed, rec.State)

	// A failed copy is retried on the next run, not skipped.
	runner.Script(node.Address, "sudo dd", remote.FakeResponse{Stdout: []byte("complete")})
	require.NoError(t, w.Backup(context.Background(), node))
	rec, loadErr = LoadStatus(w.Config.StatusPath(node.Address), node.Address)
	require.NoError(t, loadErr)
	assert.Equal(t, StateDone, rec.State)
}
