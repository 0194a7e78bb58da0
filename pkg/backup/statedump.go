/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kubevac/kubevac/pkg/remote"
)

const (
	probeEtcdctlCommand = "command -v etcdctl"

	// etcd serves the control plane's state store; the snapshot is taken
	// through its own client against the local member.
	saveEtcdSnapshotCommand = "sudo ETCDCTL_API=3 etcdctl" +
		" --endpoints https://127.0.0.1:2379" +
		" --cacert /etc/kubernetes/pki/etcd/ca.crt" +
		" --cert /etc/kubernetes/pki/etcd/server.crt" +
		" --key /etc/kubernetes/pki/etcd/server.key" +
		" snapshot save /tmp/kubevac-etcd.db"

	readEtcdSnapshotCommand = "sudo cat /tmp/kubevac-etcd.db"
)

// StateDump captures a point-in-time snapshot of the control plane's etcd
// state store and copies it locally.
type StateDump struct {
	Runner remote.Runner
	Config Config
}

// Run writes the dump to the configured path and returns it. A control
// plane without etcdctl, or a dump that comes back empty, yields a
// *StateDumpWarning; callers report it and carry on.
func (d *StateDump) Run(ctx context.Context, controlPlaneAddr string) (string, error) {
	if _, exit, err := d.Runner.Run(ctx, controlPlaneAddr, probeEtcdctlCommand); err != nil {
		return "", &StateDumpWarning{Reason: "probe failed", Err: err}
	} else if exit != 0 {
		slog.Warn("etcdctl not present on control plane, skipping state dump", "node", controlPlaneAddr)
		return "", &StateDumpWarning{Reason: "etcdctl not installed"}
	}

	if out, exit, err := d.Runner.Run(ctx, controlPlaneAddr, saveEtcdSnapshotCommand); err != nil {
		return "", &StateDumpWarning{Reason: "snapshot save failed", Err: err}
	} else if exit != 0 {
		return "", &StateDumpWarning{Reason: fmt.Sprintf("snapshot save exited %d: %s", exit, out)}
	}

	path := d.Config.StateDumpPath()
	f, err := os.Create(path)
	if err != nil {
		return "", &StateDumpWarning{Reason: "local file", Err: err}
	}
	defer f.Close()

	exit, err := d.Runner.Stream(ctx, controlPlaneAddr, readEtcdSnapshotCommand, f)
	if err != nil {
		return "", &StateDumpWarning{Reason: "read back failed", Err: err}
	}
	if exit != 0 {
		return "", &StateDumpWarning{Reason: fmt.Sprintf("read back exited %d", exit)}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", &StateDumpWarning{Reason: "unreadable result", Err: err}
	}
	if info.Size() == 0 {
		return "", &StateDumpWarning{Reason: "empty result"}
	}

	slog.Info("state dump captured", "node", controlPlaneAddr, "path", path, "bytes", info.Size())
	return path, nil
}
