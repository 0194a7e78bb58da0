/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package terraform shells out to the terraform binary to recreate
// instances during restore and read back their outputs.
package terraform
