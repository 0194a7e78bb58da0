/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package inventory resolves the cluster's node set. It queries the control
// plane's member list over the remote transport and maps each member's
// internal address to a compute instance id through the cloud directory.
package inventory
