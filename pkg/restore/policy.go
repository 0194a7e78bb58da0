/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package restore

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// FallbackPolicy decides whether the raw disk-image fallback runs after the
// snapshot restore path fails. Injecting it keeps the state machine
// testable without a terminal; non-interactive embeddings use Always or
// Never.
type FallbackPolicy interface {
	// Decide is told why the primary path failed and answers whether to
	// fall back.
	Decide(reason string) (bool, error)
}

// Always falls back without asking.
type Always struct{}

func (Always) Decide(string) (bool, error) { return true, nil }

// Never declines the fallback without asking.
type Never struct{}

func (Never) Decide(string) (bool, error) { return false, nil }

// Ask prompts the operator on Out and reads a y/N answer from In.
type Ask struct {
	In  io.Reader
	Out io.Writer
}

func (a Ask) Decide(reason string) (bool, error) {
	fmt.Fprintf(a.Out, "%s\nRestore from the raw disk image instead? [y/N]: ", reason)
	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	ans := strings.TrimSpace(strings.ToLower(line))
	return ans == "y" || ans == "yes", nil
}
