/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package backup

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// State is the lifecycle of one node's disk-image backup.
type State string

const (
	StateNotStarted State = "not-started"
	StateInProgress State = "in-progress"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// StatusRecord is the per-node disk-backup record. StateDone is the
// idempotency key: a re-run skips the node without touching the transport.
type StatusRecord struct {
	Address   string    `yaml:"address"`
	State     State     `yaml:"state"`
	ExitCode  int       `yaml:"exitCode"`
	Image     string    `yaml:"image,omitempty"`
	UpdatedAt time.Time `yaml:"updatedAt"`
}

// LoadStatus reads a node's record from path. A missing file means the node
// was never started.
func LoadStatus(path, addr string) (StatusRecord, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return StatusRecord{Address: addr, State: StateNotStarted}, nil
	}
	if err != nil {
		return StatusRecord{}, fmt.Errorf("failed to read status %s: %w", path, err)
	}
	var rec StatusRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return StatusRecord{}, fmt.Errorf("failed to decode status %s: %w", path, err)
	}
	return rec, nil
}

// SaveStatus durably writes a node's record to path.
func SaveStatus(path string, rec StatusRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode status for %s: %w", rec.Address, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write status %s: %w", path, err)
	}
	return nil
}
