/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kubevac/kubevac/pkg/cloud"
	"github.com/kubevac/kubevac/pkg/remote"
	"github.com/kubevac/kubevac/pkg/restore"
	"github.com/kubevac/kubevac/pkg/terraform"
)

func restoreCmd() *cli.Command {
	return &cli.Command{
		Name:  "restore",
		Usage: "Restore a node from a prior backup",
		Description: `Recreate the target instance from its infrastructure description, build
a volume from the backup's snapshot, and attach it as the root device.
If volume creation or attachment fails, the created volume is cleaned up
and the raw disk image from the backup can be written directly onto the
instance's device instead.

Without --fallback the operator is asked interactively before the image
path is taken.

# Examples

Restore, asking before any disk-image fallback:
  kubevac restore --backup-dir /var/backups/nightly --terraform-dir ./infra

Unattended restore that always falls back:
  kubevac restore --backup-dir /var/backups/nightly --terraform-dir ./infra --fallback always`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "backup-dir",
				Aliases:  []string{"b"},
				Required: true,
				Usage:    "unpacked backup directory holding metadata and the disk image",
			},
			&cli.StringFlag{
				Name:     "terraform-dir",
				Aliases:  []string{"t"},
				Required: true,
				Usage:    "directory with the instance's terraform description",
			},
			&cli.StringFlag{
				Name:    "region",
				Usage:   "cloud provider region",
				Sources: cli.EnvVars("AWS_REGION"),
			},
			&cli.StringFlag{
				Name:    "ssh-user",
				Usage:   "SSH user on the restored instance",
				Sources: cli.EnvVars("KUBEVAC_SSH_USER"),
				Value:   "ubuntu",
			},
			&cli.StringFlag{
				Name:    "ssh-key",
				Usage:   "path to the SSH private key",
				Sources: cli.EnvVars("KUBEVAC_SSH_KEY"),
			},
			&cli.StringFlag{
				Name:  "fallback",
				Usage: "disk-image fallback policy: always or never (default: ask)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			policy, err := fallbackPolicy(cmd.String("fallback"))
			if err != nil {
				return err
			}

			provider, err := cloud.NewAWSClient(ctx, cmd.String("region"))
			if err != nil {
				return fmt.Errorf("failed to initialize cloud provider: %w", err)
			}

			o := &restore.Orchestrator{
				Provider: provider,
				Runner:   remote.NewSSHRunner(cmd.String("ssh-user"), cmd.String("ssh-key")),
				Infra:    &terraform.Applier{},
				Policy:   policy,
				Config: restore.Config{
					BackupDir:    cmd.String("backup-dir"),
					TerraformDir: cmd.String("terraform-dir"),
				},
			}
			if err := o.Run(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.Writer, "Restore complete")
			return nil
		},
	}
}

func fallbackPolicy(mode string) (restore.FallbackPolicy, error) {
	switch mode {
	case "always":
		return restore.Always{}, nil
	case "never":
		return restore.Never{}, nil
	case "":
		return restore.Ask{In: os.Stdin, Out: os.Stderr}, nil
	default:
		return nil, fmt.Errorf("invalid --fallback value: %q (must be 'always' or 'never')", mode)
	}
}
