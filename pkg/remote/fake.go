/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package remote

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// FakeResponse scripts one command's outcome on the fake runner.
type FakeResponse struct {
	Stdout []byte
	Exit   int
	Err    error
}

// FakeCall records one command the fake runner received.
type FakeCall struct {
	Addr    string
	Command string
	// Input holds everything a StreamInput call consumed.
	Input []byte
}

// Fake is a script-table Runner for unit tests. Responses match by command
// prefix per address; unmatched commands exit 127 like a missing binary.
type Fake struct {
	mu        sync.Mutex
	responses map[string][]scripted
	calls     []FakeCall
}

type scripted struct {
	prefix string
	resp   FakeResponse
}

// NewFakeRunner returns an empty fake runner.
func NewFakeRunner() *Fake {
	return &Fake{responses: map[string][]scripted{}}
}

// Script registers a response for commands on addr starting with prefix.
// Later registrations for the same prefix win.
func (f *Fake) Script(addr, prefix string, resp FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[addr] = append([]scripted{{prefix: prefix, resp: resp}}, f.responses[addr]...)
}

// Calls returns every command received so far.
func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the commands received for one address.
func (f *Fake) CallsTo(addr string) []FakeCall {
	var out []FakeCall
	for _, c := range f.Calls() {
		if c.Addr == addr {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) lookup(addr, command string, input []byte) FakeResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, FakeCall{Addr: addr, Command: command, Input: input})
	for _, s := range f.responses[addr] {
		if strings.HasPrefix(command, s.prefix) {
			return s.resp
		}
	}
	return FakeResponse{Exit: 127, Stdout: []byte(fmt.Sprintf("command not scripted: %s", command))}
}

// Run implements Runner.
func (f *Fake) Run(_ context.Context, addr, command string) ([]byte, int, error) {
	resp := f.lookup(addr, command, nil)
	return resp.Stdout, resp.Exit, resp.Err
}

// Stream implements Runner.
func (f *Fake) Stream(_ context.Context, addr, command string, out io.Writer) (int, error) {
	resp := f.lookup(addr, command, nil)
	if resp.Err != nil {
		return -1, resp.Err
	}
	if _, err := out.Write(resp.Stdout); err != nil {
		return -1, err
	}
	return resp.Exit, nil
}

// StreamInput implements Runner.
func (f *Fake) StreamInput(_ context.Context, addr, command string, in io.Reader) (int, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return -1, err
	}
	resp := f.lookup(addr, command, data)
	return resp.Exit, resp.Err
}
