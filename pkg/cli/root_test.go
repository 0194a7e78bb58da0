/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubevac/kubevac/pkg/restore"
)

func TestFallbackPolicy(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		want    restore.FallbackPolicy
		wantErr bool
	}{
		{name: "always", mode: "always", want: restore.Always{}},
		{name: "never", mode: "never", want: restore.Never{}},
		{name: "invalid", mode: "sometimes", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fallbackPolicy(tt.mode)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("empty mode is interactive", func(t *testing.T) {
		got, err := fallbackPolicy("")
		require.NoError(t, err)
		assert.IsType(t, restore.Ask{}, got)
	})
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.Writer = &out

	require.NoError(t, cmd.Run(context.Background(), []string{"version"}))
	assert.Contains(t, out.String(), "kubevac version")
}

func TestBackupCmdRequiresControlPlane(t *testing.T) {
	cmd := backupCmd()
	cmd.Writer = new(bytes.Buffer)

	err := cmd.Run(context.Background(), []string{"backup", "--name", "x"})
	assert.Error(t, err)
}
