/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package terraform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
)

// Applier drives the terraform binary against a working directory. The
// restore engine only needs apply-and-read-outputs; plan inspection stays
// with the operator.
type Applier struct {
	// Binary overrides the terraform executable path.
	Binary string
}

func (a *Applier) binary() string {
	if a.Binary != "" {
		return a.Binary
	}
	return "terraform"
}

// Apply runs init and apply in dir with the given variables and returns the
// root module's outputs as strings.
func (a *Applier) Apply(ctx context.Context, dir string, vars map[string]string) (map[string]string, error) {
	if _, err := a.run(ctx, dir, "init", "-input=false", "-no-color"); err != nil {
		return nil, err
	}

	args := []string{"apply", "-auto-approve", "-input=false", "-no-color"}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-var", fmt.Sprintf("%s=%s", k, vars[k]))
	}
	if _, err := a.run(ctx, dir, args...); err != nil {
		return nil, err
	}

	stdout, err := a.run(ctx, dir, "output", "-json")
	if err != nil {
		return nil, err
	}
	return parseOutputs(stdout)
}

func (a *Applier) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, a.binary(), args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("terraform %s: %w: %s", args[0], err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// parseOutputs flattens `terraform output -json` into string values.
// Non-string outputs are ignored; the restore engine only consumes ids and
// addresses.
func parseOutputs(data []byte) (map[string]string, error) {
	var raw map[string]struct {
		Value any `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("terraform output: %w", err)
	}
	outputs := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.Value.(string); ok {
			outputs[k] = s
		}
	}
	return outputs, nil
}
