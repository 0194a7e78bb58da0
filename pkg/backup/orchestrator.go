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
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kubevac/kubevac/pkg/cloud"
	"github.com/kubevac/kubevac/pkg/inventory"
	"github.com/kubevac/kubevac/pkg/remote"
)

// InventoryResolver is the slice of pkg/inventory the orchestrator needs.
type InventoryResolver interface {
	Resolve(ctx context.Context, controlPlaneAddr string) ([]inventory.Node, error)
}

// Report aggregates one backup run's outcome. Per-node failures live here
// rather than aborting the run; only discovery and packaging failures are
// fatal.
type Report struct {
	Nodes            []inventory.Node
	Entries          []Entry
	ResumedSnapshots []string
	SnapshotFailures []*SnapshotError
	DiskFailures     []*DiskBackupError
	DiskSkipped      bool
	StateDumpPath    string
	StateDumpWarning string
	ArchivePath      string
}

// Clean reports whether every node completed both phases.
func (r *Report) Clean() bool {
	return len(r.SnapshotFailures) == 0 && len(r.DiskFailures) == 0
}

// Orchestrator drives a whole backup run: inventory, the parallel snapshot
// phase, the parallel disk-image phase, the state dump, and packaging.
// Phases are strictly sequential; work inside a phase is one concurrent
// task per node joined at a barrier.
type Orchestrator struct {
	Config    Config
	Inventory InventoryResolver
	Snapshots *SnapshotCoordinator
	Disks     *DiskWorker
	StateDump *StateDump
}

// NewOrchestrator wires the engine against a provider and a transport.
func NewOrchestrator(cfg Config, provider cloud.Provider, runner remote.Runner) *Orchestrator {
	cfg = cfg.WithDefaults()
	manifest := OpenManifest(cfg.ManifestPath())
	return &Orchestrator{
		Config:    cfg,
		Inventory: &inventory.Resolver{Runner: runner, Directory: provider},
		Snapshots: &SnapshotCoordinator{
			Directory: provider,
			Snapshots: provider,
			Manifest:  manifest,
			Config:    cfg,
		},
		Disks:     &DiskWorker{Runner: runner, Config: cfg},
		StateDump: &StateDump{Runner: runner, Config: cfg},
	}
}

// Run executes the backup. The returned report is valid even when err is
// non-nil, so callers can show what did complete.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if err := o.Config.EnsureDir(); err != nil {
		return nil, err
	}
	report := &Report{}

	nodes, err := o.resolveInventory(ctx)
	if err != nil {
		return report, err
	}
	report.Nodes = nodes

	if err := o.snapshotPhase(ctx, nodes, report); err != nil {
		return report, err
	}
	if err := o.diskPhase(ctx, nodes, report); err != nil {
		return report, err
	}
	o.stateDumpPhase(ctx, report)

	defer phaseTimer("packaging")()
	if err := Package(o.Config.BackupDir(), o.Config.ArchivePath()); err != nil {
		return report, err
	}
	report.ArchivePath = o.Config.ArchivePath()

	slog.Info("backup run finished",
		"nodes", len(report.Nodes),
		"manifestEntries", len(report.Entries),
		"snapshotFailures", len(report.SnapshotFailures),
		"diskFailures", len(report.DiskFailures),
		"archive", report.ArchivePath)
	return report, nil
}

func (o *Orchestrator) resolveInventory(ctx context.Context) ([]inventory.Node, error) {
	defer phaseTimer("inventory")()
	nodes, err := o.Inventory.Resolve(ctx, o.Config.ControlPlane)
	if err != nil {
		return nil, err
	}
	slog.Info("resolved cluster nodes", "count", len(nodes))
	return nodes, nil
}

// snapshotPhase fans out one coordinator task per node and joins them all.
// A node already present in the manifest from a prior partial run is
// resumed, not re-snapshotted.
func (o *Orchestrator) snapshotPhase(ctx context.Context, nodes []inventory.Node, report *Report) error {
	defer phaseTimer("snapshots")()

	existing, err := o.Snapshots.Manifest.Load()
	if err != nil {
		return err
	}
	recorded := make(map[string]Entry, len(existing))
	for _, e := range existing {
		recorded[e.Address] = e
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	for _, node := range nodes {
		if prior, ok := recorded[node.Address]; ok {
			slog.Info("snapshot already recorded, skipping", "node", node.Address, "snapshot", prior.SnapshotID)
			report.Entries = append(report.Entries, prior)
			report.ResumedSnapshots = append(report.ResumedSnapshots, node.Address)
			continue
		}
		g.Go(func() error {
			entry, err := o.Snapshots.Take(ctx, node)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.SnapshotFailures = append(report.SnapshotFailures, asSnapshotError(node, err))
				return nil
			}
			report.Entries = append(report.Entries, entry)
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return fmt.Errorf("backup canceled during snapshot phase: %w", ctx.Err())
	}
	return nil
}

func (o *Orchestrator) diskPhase(ctx context.Context, nodes []inventory.Node, report *Report) error {
	if o.Config.SkipDiskImages {
		report.DiskSkipped = true
		slog.Info("disk image phase skipped by configuration")
		return nil
	}
	defer phaseTimer("disk-images")()

	var mu sync.Mutex
	g := new(errgroup.Group)
	for _, node := range nodes {
		g.Go(func() error {
			if err := o.Disks.Backup(ctx, node); err != nil {
				mu.Lock()
				defer mu.Unlock()
				report.DiskFailures = append(report.DiskFailures, asDiskError(node, err))
			}
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return fmt.Errorf("backup canceled during disk image phase: %w", ctx.Err())
	}
	return nil
}

func (o *Orchestrator) stateDumpPhase(ctx context.Context, report *Report) {
	defer phaseTimer("state-dump")()
	path, err := o.StateDump.Run(ctx, o.Config.ControlPlane)
	if err != nil {
		report.StateDumpWarning = err.Error()
		slog.Warn("state dump incomplete", "reason", err.Error())
		return
	}
	report.StateDumpPath = path
}

// asSnapshotError keeps the aggregate report uniformly typed even when a
// coordinator fails outside its attempt loop (e.g. manifest write).
func asSnapshotError(node inventory.Node, err error) *SnapshotError {
	var snapErr *SnapshotError
	if errors.As(err, &snapErr) {
		return snapErr
	}
	return &SnapshotError{Address: node.Address, InstanceID: node.InstanceID, Err: err}
}

func asDiskError(node inventory.Node, err error) *DiskBackupError {
	var diskErr *DiskBackupError
	if errors.As(err, &diskErr) {
		return diskErr
	}
	return &DiskBackupError{Address: node.Address, InstanceID: node.InstanceID, Err: err}
}

func phaseTimer(phase string) func() {
	start := time.Now()
	return func() {
		phaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	}
}
