/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package cloud defines the narrow provider surface the backup and restore
// engines call: an instance directory, a snapshot service, and a volume
// service. AWSClient implements all three on the EC2 API; Fake implements
// them in memory for tests.
package cloud
