/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package backup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	snapshotAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubevac_snapshot_attempts_total",
			Help: "Snapshot attempts by outcome",
		},
		[]string{"outcome"}, // success, retry, exhausted
	)

	snapshotDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kubevac_snapshot_duration_seconds",
			Help:    "Time from first attempt to terminal snapshot state per node",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)

	diskBackupBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kubevac_disk_backup_bytes_total",
			Help: "Compressed bytes copied by the disk-image workers",
		},
	)

	phaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kubevac_phase_duration_seconds",
			Help:    "Duration of each backup phase",
			Buckets: []float64{1, 10, 60, 300, 900, 3600},
		},
		[]string{"phase"}, // inventory, snapshots, disk-images, state-dump, packaging
	)
)
