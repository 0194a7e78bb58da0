/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package backup

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Package creates one compressed archive of the whole backup directory.
// Entries are stored relative to the directory's parent so the archive
// unpacks into a single named folder.
func Package(srcDir, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return &PackagingError{Path: outPath, Err: err}
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	base := filepath.Base(srcDir)
	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("failed to create tar header for %s: %w", rel, err)
		}
		header.Name = filepath.ToSlash(filepath.Join(base, rel))
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header for %s: %w", rel, err)
		}
		if d.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("failed to write %s to archive: %w", rel, err)
		}
		return nil
	})
	if walkErr != nil {
		return &PackagingError{Path: outPath, Err: walkErr}
	}

	if err := tw.Close(); err != nil {
		return &PackagingError{Path: outPath, Err: err}
	}
	if err := gz.Close(); err != nil {
		return &PackagingError{Path: outPath, Err: err}
	}
	if err := out.Close(); err != nil {
		return &PackagingError{Path: outPath, Err: err}
	}
	return nil
}
