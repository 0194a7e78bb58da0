/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package restore

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Metadata record file names inside a backup directory.
const (
	imageMetadataFile    = "ami-metadata.yaml"
	snapshotMetadataFile = "snapshot-metadata.yaml"
)

// MetadataError reports a required restore metadata field missing or
// unreadable. Fatal before any infrastructure mutation.
type MetadataError struct {
	Field string
	Err   error
}

func (e *MetadataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("restore metadata %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("restore metadata field %s is missing", e.Field)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// Metadata is everything a restore needs from a prior backup's records: the
// machine image to recreate the instance from, the snapshot to rebuild the
// volume from, and the raw disk image for the fallback path.
type Metadata struct {
	ImageID    string
	SnapshotID string
	VolumeSize int
	RootDevice string
	// DiskImage is the compressed raw image file, relative to the backup
	// directory. Optional; without it only the snapshot path is available.
	DiskImage string
}

type imageRecord struct {
	ImageID string `yaml:"imageId"`
}

type snapshotRecord struct {
	SnapshotID string `yaml:"snapshotId"`
	VolumeSize int    `yaml:"volumeSize"`
	RootDevice string `yaml:"rootDevice"`
	DiskImage  string `yaml:"diskImage,omitempty"`
}

// LoadMetadata reads both records from backupDir and validates every
// required field.
func LoadMetadata(backupDir string) (Metadata, error) {
	var img imageRecord
	if err := readYAML(filepath.Join(backupDir, imageMetadataFile), &img); err != nil {
		return Metadata{}, &MetadataError{Field: "image record", Err: err}
	}
	var snap snapshotRecord
	if err := readYAML(filepath.Join(backupDir, snapshotMetadataFile), &snap); err != nil {
		return Metadata{}, &MetadataError{Field: "snapshot record", Err: err}
	}

	meta := Metadata{
		ImageID:    img.ImageID,
		SnapshotID: snap.SnapshotID,
		VolumeSize: snap.VolumeSize,
		RootDevice: snap.RootDevice,
		DiskImage:  snap.DiskImage,
	}
	switch {
	case meta.ImageID == "":
		return Metadata{}, &MetadataError{Field: "imageId"}
	case meta.SnapshotID == "":
		return Metadata{}, &MetadataError{Field: "snapshotId"}
	case meta.VolumeSize <= 0:
		return Metadata{}, &MetadataError{Field: "volumeSize"}
	case meta.RootDevice == "":
		return Metadata{}, &MetadataError{Field: "rootDevice"}
	}
	return meta, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
