/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package main

import (
	"github.com/kubevac/kubevac/pkg/cli"
)

func main() {
	cli.Execute()
}
