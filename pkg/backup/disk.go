/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/kubevac/kubevac/pkg/inventory"
	"github.com/kubevac/kubevac/pkg/remote"
)

// DiskWorker copies one node's primary block device into a local compressed
// image file. Idempotent: a StateDone status record short-circuits a re-run
// with zero transport calls. A failed copy is never retried automatically;
// disk copies fail for reasons (space, connectivity) an operator has to
// resolve first, and the partial image and log are kept for diagnosis.
type DiskWorker struct {
	Runner remote.Runner
	Config Config
}

// Backup copies node's disk unless its status record already says done.
func (w *DiskWorker) Backup(ctx context.Context, node inventory.Node) error {
	addr := node.Address
	statusPath := w.Config.StatusPath(addr)

	rec, err := LoadStatus(statusPath, addr)
	if err != nil {
		return &DiskBackupError{Address: addr, InstanceID: node.InstanceID, Err: err}
	}
	if rec.State == StateDone {
		slog.Info("disk image already backed up, skipping", "node", addr)
		return nil
	}

	rec.State = StateInProgress
	rec.Image = w.Config.ImagePath(addr)
	if err := SaveStatus(statusPath, rec); err != nil {
		return &DiskBackupError{Address: addr, InstanceID: node.InstanceID, Err: err}
	}

	exit, copied, err := w.copy(ctx, node)
	rec.ExitCode = exit
	if err != nil || exit != 0 {
		rec.State = StateFailed
	} else {
		rec.State = StateDone
	}
	if saveErr := SaveStatus(statusPath, rec); saveErr != nil && err == nil {
		err = saveErr
	}
	if exitErr := os.WriteFile(w.Config.ExitCodePath(addr), []byte(strconv.Itoa(exit)+"\n"), 0o644); exitErr != nil && err == nil {
		err = exitErr
	}

	if err != nil {
		w.log(addr, fmt.Sprintf("copy failed: %v", err))
		return &DiskBackupError{Address: addr, InstanceID: node.InstanceID, ExitStatus: exit, Err: err}
	}
	if exit != 0 {
		w.log(addr, fmt.Sprintf("copy exited with status %d after %d bytes", exit, copied))
		return &DiskBackupError{Address: addr, InstanceID: node.InstanceID, ExitStatus: exit}
	}

	diskBackupBytes.Add(float64(copied))
	w.log(addr, fmt.Sprintf("copy completed, %d compressed bytes", copied))
	slog.Info("disk image backed up", "node", addr, "bytes", copied, "image", rec.Image)
	return nil
}

// copy streams the compressed device contents into the image file. The
// image file is kept on failure.
func (w *DiskWorker) copy(ctx context.Context, node inventory.Node) (exit int, copied int64, err error) {
	addr := node.Address
	img, err := os.Create(w.Config.ImagePath(addr))
	if err != nil {
		return -1, 0, fmt.Errorf("failed to create image file: %w", err)
	}
	defer img.Close()

	cmd := fmt.Sprintf("sudo dd if=%s bs=1M status=none | gzip -c", w.Config.Device)
	w.log(addr, fmt.Sprintf("starting %q", cmd))

	counter := &countingWriter{w: img}
	exit, err = w.Runner.Stream(ctx, addr, cmd, counter)
	if err != nil {
		return -1, counter.n, err
	}
	if syncErr := img.Sync(); syncErr != nil {
		return exit, counter.n, fmt.Errorf("failed to sync image file: %w", syncErr)
	}
	return exit, counter.n, nil
}

// log appends one timestamped line to the node's log file. Logging must
// never fail the backup itself.
func (w *DiskWorker) log(addr, msg string) {
	f, err := os.OpenFile(w.Config.NodeLogPath(addr), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %s\n", time.Now().UTC().Format(time.RFC3339), msg)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
