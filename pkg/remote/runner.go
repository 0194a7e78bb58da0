/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package remote

import (
	"context"
	"io"
)

// Runner executes commands on cluster nodes. The returned int is the remote
// command's exit status; the error covers transport failures (dial, auth,
// session) only. A non-zero exit status is not an error at this layer, the
// caller decides what it means.
type Runner interface {
	// Run executes the command and returns its captured stdout.
	Run(ctx context.Context, addr, command string) ([]byte, int, error)

	// Stream executes the command and copies its stdout to out as it is
	// produced. Used for raw device reads where buffering is not an option.
	Stream(ctx context.Context, addr, command string, out io.Writer) (int, error)

	// StreamInput executes the command feeding in to its stdin. Used to
	// write disk images back onto a device.
	StreamInput(ctx context.Context, addr, command string, in io.Reader) (int, error)
}
