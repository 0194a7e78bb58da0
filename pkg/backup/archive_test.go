/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package backup

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "nightly")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "manifest.csv"), []byte("i-1,10.0.0.10,control-plane,snap-1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "10.0.0.10.img.gz"), []byte("image"), 0o644))

	out := filepath.Join(dir, "nightly.tar.gz")
	require.NoError(t, Package(src, out))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	names := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		names[hdr.Name] = string(data)
	}
	assert.Contains(t, names, "nightly/manifest.csv")
	assert.Contains(t, names, "nightly/10.0.0.10.img.gz")
	assert.Equal(t, "image", names["nightly/10.0.0.10.img.gz"])
}

func TestPackageMissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := Package(filepath.Join(dir, "absent"), filepath.Join(dir, "out.tar.gz"))
	var pkgErr *PackagingError
	assert.ErrorAs(t, err, &pkgErr)
}
