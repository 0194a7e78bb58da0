/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kubevac/kubevac/pkg/backup"
	"github.com/kubevac/kubevac/pkg/cloud"
	"github.com/kubevac/kubevac/pkg/logging"
	"github.com/kubevac/kubevac/pkg/remote"
)

func backupCmd() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Back up a cluster: per-node snapshots, disk images, etcd state, one archive",
		Description: `Discover the cluster's nodes through the control plane, snapshot each
node's primary volume in parallel, copy each node's raw disk image over
SSH, dump the etcd state, and package everything into a single tar.gz.

Per-node failures are reported but do not abort the run; a re-run with
the same --name resumes, skipping nodes whose snapshot or disk image is
already recorded.

# Examples

Back up a cluster reachable through its control plane:
  kubevac backup --control-plane 10.0.0.10 --name nightly --dir /var/backups

Snapshots only, no raw disk images:
  kubevac backup --control-plane 10.0.0.10 --name nightly --skip-disk-images`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "control-plane",
				Aliases:  []string{"c"},
				Required: true,
				Usage:    "internal address of the control-plane node",
			},
			&cli.StringFlag{
				Name:     "name",
				Aliases:  []string{"n"},
				Required: true,
				Usage:    "backup name; artifacts go to DIR/NAME and DIR/NAME.tar.gz",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "output directory for backup artifacts",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:    "region",
				Usage:   "cloud provider region",
				Sources: cli.EnvVars("AWS_REGION"),
			},
			&cli.StringFlag{
				Name:    "ssh-user",
				Usage:   "SSH user on the cluster nodes",
				Sources: cli.EnvVars("KUBEVAC_SSH_USER"),
				Value:   "ubuntu",
			},
			&cli.StringFlag{
				Name:    "ssh-key",
				Usage:   "path to the SSH private key",
				Sources: cli.EnvVars("KUBEVAC_SSH_KEY"),
			},
			&cli.BoolFlag{
				Name:  "skip-disk-images",
				Usage: "skip the raw disk-image phase, keep only snapshots and state",
			},
			&cli.StringFlag{
				Name:  "device",
				Usage: "primary block device to image on each node",
				Value: backup.DefaultDevice,
			},
			&cli.IntFlag{
				Name:  "snapshot-attempts",
				Usage: "maximum snapshot attempts per node",
				Value: backup.DefaultMaxAttempts,
			},
			&cli.DurationFlag{
				Name:  "snapshot-wait",
				Usage: "initial wait between snapshot attempts, doubled each retry",
				Value: backup.DefaultInitialWait,
			},
			&cli.DurationFlag{
				Name:  "completion-wait",
				Usage: "how long to wait for one snapshot to complete",
				Value: backup.DefaultCompletionWait,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := backup.Config{
				ControlPlane:   cmd.String("control-plane"),
				Name:           cmd.String("name"),
				Dir:            cmd.String("dir"),
				SkipDiskImages: cmd.Bool("skip-disk-images"),
				Device:         cmd.String("device"),
				MaxAttempts:    int(cmd.Int("snapshot-attempts")),
				InitialWait:    cmd.Duration("snapshot-wait"),
				CompletionWait: cmd.Duration("completion-wait"),
			}
			if err := cfg.EnsureDir(); err != nil {
				return err
			}

			// Mirror every log line into the backup directory so the run's
			// record travels with its artifacts.
			logFile, err := os.OpenFile(cfg.RunLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("failed to open run log: %w", err)
			}
			defer logFile.Close()
			logging.SetDefaultTeeLogger(logFile, name, version, cmd.String("log-level"))

			provider, err := cloud.NewAWSClient(ctx, cmd.String("region"))
			if err != nil {
				return fmt.Errorf("failed to initialize cloud provider: %w", err)
			}
			runner := remote.NewSSHRunner(cmd.String("ssh-user"), cmd.String("ssh-key"))

			start := time.Now()
			report, err := backup.NewOrchestrator(cfg, provider, runner).Run(ctx)
			if err != nil {
				return err
			}

			printBackupSummary(cmd, report, time.Since(start))
			return nil
		},
	}
}

// printBackupSummary reports per-node outcomes. Node failures do not fail
// the invocation; the archive was still produced.
func printBackupSummary(cmd *cli.Command, report *backup.Report, elapsed time.Duration) {
	fmt.Fprintf(cmd.Writer, "Backup complete in %s: %s\n", elapsed.Round(time.Second), report.ArchivePath)
	fmt.Fprintf(cmd.Writer, "  nodes: %d, snapshots recorded: %d (%d resumed)\n",
		len(report.Nodes), len(report.Entries), len(report.ResumedSnapshots))

	for _, f := range report.SnapshotFailures {
		fmt.Fprintf(cmd.Writer, "  snapshot FAILED for %s after %d attempts: %v\n", f.Address, f.Attempts, f.Err)
	}
	if report.DiskSkipped {
		fmt.Fprintln(cmd.Writer, "  disk images: skipped")
	}
	for _, f := range report.DiskFailures {
		fmt.Fprintf(cmd.Writer, "  disk image FAILED for %s: %v\n", f.Address, f.Err)
	}
	if report.StateDumpWarning != "" {
		fmt.Fprintf(cmd.Writer, "  state dump: %s\n", report.StateDumpWarning)
	} else if report.StateDumpPath != "" {
		fmt.Fprintf(cmd.Writer, "  state dump: %s\n", report.StateDumpPath)
	}

	if !report.Clean() {
		slog.Warn("backup finished with node failures",
			"snapshotFailures", len(report.SnapshotFailures),
			"diskFailures", len(report.DiskFailures))
	}
}
