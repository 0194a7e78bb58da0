/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package backup

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/kubevac/kubevac/pkg/inventory"
)

// Entry is one durable manifest row: a node whose snapshot completed. The
// manifest never contains a row for a non-terminal or failed snapshot.
type Entry struct {
	InstanceID string
	Address    string
	Role       inventory.Role
	SnapshotID string
}

// Manifest is the append-only record of completed snapshots, one CSV line
// per row: instanceId,nodeAddress,role,snapshotId. Appends are serialized
// so concurrent per-node coordinators never interleave partial lines.
type Manifest struct {
	mu   sync.Mutex
	path string
}

// OpenManifest returns a manifest backed by the file at path. The file is
// created on first append.
func OpenManifest(path string) *Manifest {
	return &Manifest{path: path}
}

// Append durably records one completed snapshot.
func (m *Manifest) Append(e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open manifest %s: %w", m.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{e.InstanceID, e.Address, string(e.Role), e.SnapshotID}); err != nil {
		return fmt.Errorf("failed to append manifest entry for %s: %w", e.Address, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush manifest entry for %s: %w", e.Address, err)
	}
	return f.Sync()
}

// Load reads all recorded entries. A missing manifest file is an empty
// manifest, not an error; prior partial runs are resumed from whatever rows
// exist.
func (m *Manifest) Load() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.Open(m.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", m.path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", m.path, err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("malformed manifest row in %s: %v", m.path, row)
		}
		entries = append(entries, Entry{
			InstanceID: row[0],
			Address:    row[1],
			Role:       inventory.Role(row[2]),
			SnapshotID: row[3],
		})
	}
	return entries, nil
}
