/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kubevac/kubevac/pkg/cloud"
	"github.com/kubevac/kubevac/pkg/remote"
)

func member(name, addr string, controlPlane bool) corev1.Node {
	node := corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: map[string]string{}},
		Status: corev1.NodeStatus{
			Addresses: []corev1.NodeAddress{
				{Type: corev1.NodeHostName, Address: name},
				{Type: corev1.NodeInternalIP, Address: addr},
			},
		},
	}
	if controlPlane {
		node.Labels["node-role.kubernetes.io/control-plane"] = ""
	}
	return node
}

func memberListJSON(t *testing.T, nodes ...corev1.Node) []byte {
	t.Helper()
	data, err := json.Marshal(corev1.NodeList{Items: nodes})
	require.NoError(t, err)
	return data
}

func TestResolve(t *testing.T) {
	const cpAddr = "10.0.0.10"

	newFixture := func(t *testing.T) (*remote.Fake, *cloud.Fake, *Resolver) {
		runner := remote.NewFakeRunner()
		provider := cloud.NewFake()
		return runner, provider, &Resolver{Runner: runner, Directory: provider}
	}

	t.Run("orders control plane first and resolves instance ids", func(t *testing.T) {
		runner, provider, resolver := newFixture(t)
		runner.Script(cpAddr, "kubectl get nodes", remote.FakeResponse{
			Stdout: memberListJSON(t,
				member("worker-1", "10.0.0.11", false),
				member("cp-1", cpAddr, true),
				member("worker-2", "10.0.0.12", false),
			),
		})
		provider.AddInstance("i-cp", cpAddr, "eu-west-1a", "/dev/xvda", "vol-cp")
		provider.AddInstance("i-w1", "10.0.0.11", "eu-west-1a", "/dev/xvda", "vol-w1")
		provider.AddInstance("i-w2", "10.0.0.12", "eu-west-1a", "/dev/xvda", "vol-w2")

		nodes, err := resolver.Resolve(context.Background(), cpAddr)
		require.NoError(t, err)
		require.Len(t, nodes, 3)

		assert.Equal(t, Node{Address: cpAddr, InstanceID: "i-cp", Role: RoleControlPlane}, nodes[0])
		assert.Equal(t, RoleWorker, nodes[1].Role)
		assert.Equal(t, RoleWorker, nodes[2].Role)
		assert.ElementsMatch(t,
			[]string{"i-w1", "i-w2"},
			[]string{nodes[1].InstanceID, nodes[2].InstanceID})
	})

	t.Run("member list command failure is a discovery error", func(t *testing.T) {
		runner, _, resolver := newFixture(t)
		runner.Script(cpAddr, "kubectl get nodes", remote.FakeResponse{Err: errors.New("dial tcp: timeout")})

		_, err := resolver.Resolve(context.Background(), cpAddr)
		var discErr *DiscoveryError
		require.ErrorAs(t, err, &discErr)
		assert.Equal(t, "member list", discErr.Step)
	})

	t.Run("non-zero exit is a discovery error", func(t *testing.T) {
		runner, _, resolver := newFixture(t)
		runner.Script(cpAddr, "kubectl get nodes", remote.FakeResponse{Exit: 1})

		_, err := resolver.Resolve(context.Background(), cpAddr)
		var discErr *DiscoveryError
		require.ErrorAs(t, err, &discErr)
	})

	t.Run("empty member list is a discovery error", func(t *testing.T) {
		runner, _, resolver := newFixture(t)
		runner.Script(cpAddr, "kubectl get nodes", remote.FakeResponse{Stdout: memberListJSON(t)})

		_, err := resolver.Resolve(context.Background(), cpAddr)
		var discErr *DiscoveryError
		require.ErrorAs(t, err, &discErr)
	})

	t.Run("ambiguous instance match is an error not a pick", func(t *testing.T) {
		runner, provider, resolver := newFixture(t)
		runner.Script(cpAddr, "kubectl get nodes", remote.FakeResponse{
			Stdout: memberListJSON(t, member("cp-1", cpAddr, true)),
		})
		provider.AddInstance("i-a", cpAddr, "eu-west-1a", "/dev/xvda", "vol-a")
		provider.AddInstance("i-b", cpAddr, "eu-west-1a", "/dev/xvda", "vol-b")

		_, err := resolver.Resolve(context.Background(), cpAddr)
		var ambErr *cloud.AmbiguousMatchError
		require.ErrorAs(t, err, &ambErr)
		assert.Equal(t, 2, ambErr.Count)
	})

	t.Run("control plane missing from member list is an error", func(t *testing.T) {
		runner, provider, resolver := newFixture(t)
		runner.Script(cpAddr, "kubectl get nodes", remote.FakeResponse{
			Stdout: memberListJSON(t, member("worker-1", "10.0.0.11", false)),
		})
		provider.AddInstance("i-w1", "10.0.0.11", "eu-west-1a", "/dev/xvda", "vol-w1")

		_, err := resolver.Resolve(context.Background(), cpAddr)
		var discErr *DiscoveryError
		require.ErrorAs(t, err, &discErr)
		assert.Equal(t, "control plane", discErr.Step)
	})
}
