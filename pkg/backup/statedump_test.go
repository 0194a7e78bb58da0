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

const cpAddr = "10.0.0.10"

func newStateDump(t *testing.T) (*StateDump, *remote.Fake) {
	t.Helper()
	runner := remote.NewFakeRunner()
	cfg := Config{Name: "nightly", Dir: t.TempDir()}.WithDefaults()
	require.NoError(t, cfg.EnsureDir())
	return &StateDump{Runner: runner, Config: cfg}, runner
}

func scriptHealthyEtcd(runner *remote.Fake, dump []byte) {
	runner.Script(cpAddr, "command -v etcdctl", remote.FakeResponse{Stdout: []byte("/usr/bin/etcdctl")})
	runner.Script(cpAddr, "sudo ETCDCTL_API=3 etcdctl", remote.FakeResponse{Stdout: []byte("Snapshot saved")})
	runner.Script(cpAddr, "sudo cat /tmp/kubevac-etcd.db", remote.FakeResponse{Stdout: dump})
}

func TestStateDumpSuccess(t *testing.T) {
	t.Parallel()

	d, runner := newStateDump(t)
	scriptHealthyEtcd(runner, []byte("etcd-state"))

	path, err := d.Run(context.Background(), cpAddr)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "etcd-state", string(data))
}

func TestStateDumpSkipsWithoutEtcdctl(t *testing.T) {
	t.Parallel()

	d, runner := newStateDump(t)
	runner.Script(cpAddr, "command -v etcdctl", remote.FakeResponse{Exit: 1})

	_, err := d.Run(context.Background(), cpAddr)
	var warn *StateDumpWarning
	require.ErrorAs(t, err, &warn)
	assert.Equal(t, "etcdctl not installed", warn.Reason)

	// Only the probe ran.
	assert.Len(t, runner.Calls(), 1)
}

func TestStateDumpEmptyResultIsWarning(t *testing.T) {
	t.Parallel()

	d, runner := newStateDump(t)
	scriptHealthyEtcd(runner, nil)

	_, err := d.Run(context.Background(), cpAddr)
	var warn *StateDumpWarning
	require.ErrorAs(t, err, &warn)
	assert.Equal(t, "empty result", warn.Reason)
}
