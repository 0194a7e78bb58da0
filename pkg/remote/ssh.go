/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	defaultSSHPort     = "22"
	defaultDialTimeout = 15 * time.Second
)

// SSHRunner executes commands over SSH with public-key authentication.
// A fresh connection and session is established per command; the engine's
// call pattern is a handful of commands per node, not a shell.
type SSHRunner struct {
	User        string
	KeyPath     string
	Port        string
	DialTimeout time.Duration

	// HostKeyCallback defaults to ssh.InsecureIgnoreHostKey. The nodes this
	// tool talks to are the same ephemeral instances it created snapshots
	// of, so there is no stable host key database to check against.
	HostKeyCallback ssh.HostKeyCallback
}

// NewSSHRunner returns a runner authenticating as user with the private key
// at keyPath.
func NewSSHRunner(user, keyPath string) *SSHRunner {
	return &SSHRunner{User: user, KeyPath: keyPath}
}

func (r *SSHRunner) config() (*ssh.ClientConfig, error) {
	keyData, err := os.ReadFile(r.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ssh key %s: %w", r.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ssh key %s: %w", r.KeyPath, err)
	}
	hostKey := r.HostKeyCallback
	if hostKey == nil {
		hostKey = ssh.InsecureIgnoreHostKey() // #nosec G106
	}
	timeout := r.DialTimeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}
	return &ssh.ClientConfig{
		User:            r.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKey,
		Timeout:         timeout,
	}, nil
}

// session dials the node and opens one session. The returned cleanup closes
// the session and connection and releases the context watcher.
func (r *SSHRunner) session(ctx context.Context, addr string) (*ssh.Session, func(), error) {
	cfg, err := r.config()
	if err != nil {
		return nil, nil, err
	}
	port := r.Port
	if port == "" {
		port = defaultSSHPort
	}
	client, err := ssh.Dial("tcp", net.JoinHostPort(addr, port), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to open session on %s: %w", addr, err)
	}
	// ssh sessions have no context support; tear the connection down when
	// the context is canceled so in-flight commands abort.
	stop := context.AfterFunc(ctx, func() {
		sess.Close()
		client.Close()
	})
	cleanup := func() {
		stop()
		sess.Close()
		client.Close()
	}
	return sess, cleanup, nil
}

// Run implements Runner.
func (r *SSHRunner) Run(ctx context.Context, addr, command string) ([]byte, int, error) {
	sess, cleanup, err := r.session(ctx, addr)
	if err != nil {
		return nil, -1, err
	}
	defer cleanup()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr
	exit, err := exitStatus(ctx, addr, command, sess.Run(command), &stderr)
	return stdout.Bytes(), exit, err
}

// Stream implements Runner.
func (r *SSHRunner) Stream(ctx context.Context, addr, command string, out io.Writer) (int, error) {
	sess, cleanup, err := r.session(ctx, addr)
	if err != nil {
		return -1, err
	}
	defer cleanup()

	var stderr bytes.Buffer
	sess.Stdout = out
	sess.Stderr = &stderr
	return exitStatus(ctx, addr, command, sess.Run(command), &stderr)
}

// StreamInput implements Runner.
func (r *SSHRunner) StreamInput(ctx context.Context, addr, command string, in io.Reader) (int, error) {
	sess, cleanup, err := r.session(ctx, addr)
	if err != nil {
		return -1, err
	}
	defer cleanup()

	var stderr bytes.Buffer
	sess.Stdin = in
	sess.Stderr = &stderr
	return exitStatus(ctx, addr, command, sess.Run(command), &stderr)
}

// exitStatus maps a session.Run error to an exit code. A remote non-zero
// exit is reported through the status, not the error.
func exitStatus(ctx context.Context, addr, command string, runErr error, stderr *bytes.Buffer) (int, error) {
	if runErr == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return -1, fmt.Errorf("command on %s canceled: %w", addr, ctx.Err())
	}
	var exitErr *ssh.ExitError
	if errors.As(runErr, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return -1, fmt.Errorf("failed to run %q on %s: %w: %s", command, addr, runErr, stderr.String())
}
