/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package restore

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubevac/kubevac/pkg/cloud"
	"github.com/kubevac/kubevac/pkg/remote"
)

const (
	targetInstance = "i-target"
	targetIP       = "10.0.0.21"
	rootDevice     = "/dev/xvda"
)

type fakeInfra struct {
	outputs map[string]string
	err     error
	vars    map[string]string
}

func (f *fakeInfra) Apply(_ context.Context, _ string, vars map[string]string) (map[string]string, error) {
	f.vars = vars
	return f.outputs, f.err
}

type fixture struct {
	dir      string
	provider *cloud.Fake
	runner   *remote.Fake
	infra    *fakeInfra
	rawImage []byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	writeMetadata(t, dir,
		"imageId: ami-0abc\n",
		"snapshotId: snap-prior\nvolumeSize: 100\nrootDevice: "+rootDevice+"\ndiskImage: node.img.gz\n")

	raw := []byte("raw-disk-image-bytes")
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node.img.gz"), buf.Bytes(), 0o644))

	provider := cloud.NewFake()
	provider.AddInstance(targetInstance, targetIP, "eu-west-1b", rootDevice, "vol-ami-root")

	runner := remote.NewFakeRunner()
	runner.Script(targetIP, "sudo dd of="+rootDevice, remote.FakeResponse{})

	return &fixture{
		dir:      dir,
		provider: provider,
		runner:   runner,
		infra: &fakeInfra{outputs: map[string]string{
			"instance_id": targetInstance,
			"instance_ip": targetIP,
		}},
		rawImage: raw,
	}
}

func (fx *fixture) orchestrator(policy FallbackPolicy) *Orchestrator {
	return &Orchestrator{
		Provider: fx.provider,
		Runner:   fx.runner,
		Infra:    fx.infra,
		Policy:   policy,
		Config: Config{
			BackupDir:          fx.dir,
			TerraformDir:       "terraform",
			AttachPollInterval: time.Millisecond,
			AttachPollAttempts: 3,
		},
	}
}

func TestRestoreHappyPath(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	require.NoError(t, fx.orchestrator(Never{}).Run(context.Background()))

	// The AMI's own root volume occupied the device and was detached first.
	assert.Equal(t, []string{"DetachVolume(vol-ami-root)"}, fx.provider.CallsNamed("DetachVolume"))
	assert.Equal(t, []string{"AttachVolume(vol-0001,i-target,/dev/xvda)"}, fx.provider.CallsNamed("AttachVolume"))

	// Attached volumes are never deleted; no fallback ran.
	assert.Empty(t, fx.provider.CallsNamed("DeleteVolume"))
	assert.Empty(t, fx.runner.Calls())
	assert.Equal(t, "ami-0abc", fx.infra.vars["ami_id"])
	assert.Equal(t, "100", fx.infra.vars["volume_size"])
}

func TestRestoreMissingMetadataIsFatalBeforeMutation(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	require.NoError(t, os.Remove(filepath.Join(fx.dir, snapshotMetadataFile)))

	err := fx.orchestrator(Always{}).Run(context.Background())
	var metaErr *MetadataError
	require.ErrorAs(t, err, &metaErr)
	assert.Nil(t, fx.infra.vars, "infrastructure must not be touched")
	assert.Empty(t, fx.provider.Calls)
}

func TestRestoreMissingInstanceIDOutputIsFatal(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	delete(fx.infra.outputs, "instance_id")

	err := fx.orchestrator(Always{}).Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, fx.provider.CallsNamed("CreateVolumeFromSnapshot"))
}

func TestRestoreEmptyVolumeCreateReachesFallback(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.provider.EmptyVolumeCreate = true

	err := fx.orchestrator(Always{}).Run(context.Background())
	require.NoError(t, err)

	// No volume existed, so neither attach nor delete may be called.
	assert.Empty(t, fx.provider.CallsNamed("AttachVolume"))
	assert.Empty(t, fx.provider.CallsNamed("DeleteVolume"))

	// The fallback streamed the decompressed image onto the device.
	calls := fx.runner.CallsTo(targetIP)
	require.Len(t, calls, 1)
	assert.Equal(t, "sudo dd of=/dev/xvda bs=1M", calls[0].Command)
	assert.Equal(t, fx.rawImage, calls[0].Input)
}

func TestRestoreAttachFailureCleansUpCreatedVolume(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.provider.FailAttach = true

	err := fx.orchestrator(Never{}).Run(context.Background())
	var declined *FallbackDeclinedError
	require.ErrorAs(t, err, &declined)

	// Exactly the volume created in this run is deleted, nothing else.
	assert.Equal(t, []string{"DeleteVolume(vol-0001)"}, fx.provider.CallsNamed("DeleteVolume"))

	// Declined fallback never touches the transport.
	assert.Empty(t, fx.runner.Calls())
}

func TestRestoreStuckAttachmentTimesOutAndFallsBack(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.provider.StuckAttachment = true

	err := fx.orchestrator(Always{}).Run(context.Background())
	require.NoError(t, err)

	// Bounded poll gave up, the created volume was cleaned up, then the
	// image fallback ran.
	assert.Equal(t, []string{"DeleteVolume(vol-0001)"}, fx.provider.CallsNamed("DeleteVolume"))
	calls := fx.runner.CallsTo(targetIP)
	require.Len(t, calls, 1)
	assert.Equal(t, fx.rawImage, calls[0].Input)
}

func TestRestoreFallbackFailureIsFatal(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.provider.EmptyVolumeCreate = true
	fx.runner.Script(targetIP, "sudo dd of="+rootDevice, remote.FakeResponse{Exit: 1})

	err := fx.orchestrator(Always{}).Run(context.Background())
	var failed *FallbackFailedError
	require.ErrorAs(t, err, &failed)
}

func TestRestoreAskPolicy(t *testing.T) {
	t.Parallel()

	t.Run("yes answer falls back", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		ok, err := Ask{In: bytes.NewBufferString("y\n"), Out: &out}.Decide("volume creation failed")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Contains(t, out.String(), "volume creation failed")
	})

	t.Run("default answer declines", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		ok, err := Ask{In: bytes.NewBufferString("\n"), Out: &out}.Decide("attach failed")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
