/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubevac/kubevac/pkg/cloud"
	"github.com/kubevac/kubevac/pkg/remote"
)

// Role classifies a cluster node.
type Role string

const (
	RoleControlPlane Role = "control-plane"
	RoleWorker       Role = "worker"
)

// Control-plane node labels, current and legacy.
const (
	labelControlPlane = "node-role.kubernetes.io/control-plane"
	labelMaster       = "node-role.kubernetes.io/master"
)

// listNodesCommand asks the control plane for the full member list.
const listNodesCommand = "kubectl get nodes -o json"

// Node is one cluster member mapped to its infrastructure identifier.
// Immutable for the duration of a backup run; the node list is the unit of
// fan-out.
type Node struct {
	Address    string
	InstanceID string
	Role       Role
}

// DiscoveryError reports that the cluster node set could not be enumerated
// or resolved. Fatal to the whole backup run.
type DiscoveryError struct {
	Step string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("node discovery failed (%s): %v", e.Step, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Resolver enumerates cluster members via the control plane and maps each to
// an instance id through the compute directory.
type Resolver struct {
	Runner    remote.Runner
	Directory cloud.ComputeDirectory
}

// Resolve returns the ordered node list, control-plane node first. The
// control-plane member is identified by matching its internal address
// against controlPlaneAddr; a member list that does not contain it is an
// error rather than a silently worker-only result.
func (r *Resolver) Resolve(ctx context.Context, controlPlaneAddr string) ([]Node, error) {
	stdout, exit, err := r.Runner.Run(ctx, controlPlaneAddr, listNodesCommand)
	if err != nil {
		return nil, &DiscoveryError{Step: "member list", Err: err}
	}
	if exit != 0 {
		return nil, &DiscoveryError{Step: "member list", Err: fmt.Errorf("%q exited %d", listNodesCommand, exit)}
	}

	var list corev1.NodeList
	if err := json.Unmarshal(stdout, &list); err != nil {
		return nil, &DiscoveryError{Step: "member list decode", Err: err}
	}
	if len(list.Items) == 0 {
		return nil, &DiscoveryError{Step: "member list", Err: fmt.Errorf("control plane %s reported no members", controlPlaneAddr)}
	}

	var controlPlane *Node
	var workers []Node
	for i := range list.Items {
		member := &list.Items[i]
		addr := internalAddress(member)
		if addr == "" {
			return nil, &DiscoveryError{Step: "address", Err: fmt.Errorf("member %s has no internal address", member.Name)}
		}
		id, err := r.Directory.InstanceByPrivateAddress(ctx, addr)
		if err != nil {
			return nil, &DiscoveryError{Step: "instance lookup", Err: err}
		}
		node := Node{Address: addr, InstanceID: id, Role: roleOf(member)}
		if addr == controlPlaneAddr {
			node.Role = RoleControlPlane
			controlPlane = &node
			continue
		}
		workers = append(workers, node)
	}
	if controlPlane == nil {
		return nil, &DiscoveryError{
			Step: "control plane",
			Err:  fmt.Errorf("no member reports address %s; cannot identify the control-plane node", controlPlaneAddr),
		}
	}

	nodes := append([]Node{*controlPlane}, workers...)
	slog.Debug("resolved cluster inventory", "nodes", len(nodes), "controlPlane", controlPlane.Address)
	return nodes, nil
}

// internalAddress returns the member's InternalIP, or "" if it has none.
func internalAddress(node *corev1.Node) string {
	for _, a := range node.Status.Addresses {
		if a.Type == corev1.NodeInternalIP {
			return a.Address
		}
	}
	return ""
}

func roleOf(node *corev1.Node) Role {
	if _, ok := node.Labels[labelControlPlane]; ok {
		return RoleControlPlane
	}
	if _, ok := node.Labels[labelMaster]; ok {
		return RoleControlPlane
	}
	return RoleWorker
}
