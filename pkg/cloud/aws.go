/*
Copyright © 2026 Kubevac Authors
SPDX-License-Identifier: Apache-2.0
*/
package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// defaultVolumeWait bounds waits on volume state transitions.
const defaultVolumeWait = 5 * time.Minute

// AWSClient implements Provider on top of the EC2 API.
type AWSClient struct {
	ec2 *ec2.Client
}

// NewAWSClient builds a Provider from the ambient AWS configuration
// (environment, shared config, instance profile). Region may be empty to
// defer to that configuration.
func NewAWSClient(ctx context.Context, region string) (*AWSClient, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &AWSClient{ec2: ec2.NewFromConfig(cfg)}, nil
}

// InstanceByPrivateAddress implements ComputeDirectory.
func (c *AWSClient) InstanceByPrivateAddress(ctx context.Context, addr string) (string, error) {
	out, err := c.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("private-ip-address"), Values: []string{addr}},
			{Name: aws.String("instance-state-name"), Values: []string{"running"}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe instances for %s: %w", addr, err)
	}
	var ids []string
	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			ids = append(ids, aws.ToString(inst.InstanceId))
		}
	}
	switch len(ids) {
	case 0:
		return "", &NotFoundError{Resource: "instance", Key: addr}
	case 1:
		return ids[0], nil
	default:
		return "", &AmbiguousMatchError{Resource: "instance", Key: addr, Count: len(ids)}
	}
}

// PrimaryVolume implements ComputeDirectory.
func (c *AWSClient) PrimaryVolume(ctx context.Context, instanceID string) (string, error) {
	inst, err := c.describeInstance(ctx, instanceID)
	if err != nil {
		return "", err
	}
	root := aws.ToString(inst.RootDeviceName)
	for _, bdm := range inst.BlockDeviceMappings {
		if aws.ToString(bdm.DeviceName) == root && bdm.Ebs != nil {
			return aws.ToString(bdm.Ebs.VolumeId), nil
		}
	}
	return "", &NotFoundError{Resource: "root volume", Key: instanceID}
}

// InstanceAvailabilityZone implements ComputeDirectory.
func (c *AWSClient) InstanceAvailabilityZone(ctx context.Context, instanceID string) (string, error) {
	inst, err := c.describeInstance(ctx, instanceID)
	if err != nil {
		return "", err
	}
	if inst.Placement == nil {
		return "", &NotFoundError{Resource: "availability zone", Key: instanceID}
	}
	return aws.ToString(inst.Placement.AvailabilityZone), nil
}

// VolumeAtDevice implements ComputeDirectory.
func (c *AWSClient) VolumeAtDevice(ctx context.Context, instanceID, device string) (string, error) {
	inst, err := c.describeInstance(ctx, instanceID)
	if err != nil {
		return "", err
	}
	for _, bdm := range inst.BlockDeviceMappings {
		if aws.ToString(bdm.DeviceName) == device && bdm.Ebs != nil {
			return aws.ToString(bdm.Ebs.VolumeId), nil
		}
	}
	return "", nil
}

func (c *AWSClient) describeInstance(ctx context.Context, instanceID string) (*ec2types.Instance, error) {
	out, err := c.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe instance %s: %w", instanceID, err)
	}
	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			return &inst, nil
		}
	}
	return nil, &NotFoundError{Resource: "instance", Key: instanceID}
}

// CreateSnapshot implements SnapshotService.
func (c *AWSClient) CreateSnapshot(ctx context.Context, volumeID, description string) (string, error) {
	out, err := c.ec2.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:    aws.String(volumeID),
		Description: aws.String(description),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot of %s: %w", volumeID, err)
	}
	return aws.ToString(out.SnapshotId), nil
}

// WaitSnapshotCompleted implements SnapshotService using the SDK waiter.
func (c *AWSClient) WaitSnapshotCompleted(ctx context.Context, snapshotID string, deadline time.Duration) error {
	waiter := ec2.NewSnapshotCompletedWaiter(c.ec2)
	err := waiter.Wait(ctx, &ec2.DescribeSnapshotsInput{
		SnapshotIds: []string{snapshotID},
	}, deadline)
	if err != nil {
		return fmt.Errorf("snapshot %s did not complete: %w", snapshotID, err)
	}
	return nil
}

// CreateVolumeFromSnapshot implements VolumeService.
func (c *AWSClient) CreateVolumeFromSnapshot(ctx context.Context, snapshotID, az string) (string, error) {
	out, err := c.ec2.CreateVolume(ctx, &ec2.CreateVolumeInput{
		SnapshotId:       aws.String(snapshotID),
		AvailabilityZone: aws.String(az),
		VolumeType:       ec2types.VolumeTypeGp3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create volume from %s: %w", snapshotID, err)
	}
	return aws.ToString(out.VolumeId), nil
}

// AttachVolume implements VolumeService.
func (c *AWSClient) AttachVolume(ctx context.Context, volumeID, instanceID, device string) error {
	_, err := c.ec2.AttachVolume(ctx, &ec2.AttachVolumeInput{
		VolumeId:   aws.String(volumeID),
		InstanceId: aws.String(instanceID),
		Device:     aws.String(device),
	})
	if err != nil {
		return fmt.Errorf("failed to attach %s to %s at %s: %w", volumeID, instanceID, device, err)
	}
	return nil
}

// DetachVolume implements VolumeService.
func (c *AWSClient) DetachVolume(ctx context.Context, volumeID string) error {
	_, err := c.ec2.DetachVolume(ctx, &ec2.DetachVolumeInput{
		VolumeId: aws.String(volumeID),
	})
	if err != nil {
		return fmt.Errorf("failed to detach %s: %w", volumeID, err)
	}
	return nil
}

// WaitVolumeAvailable implements VolumeService using the SDK waiter.
func (c *AWSClient) WaitVolumeAvailable(ctx context.Context, volumeID string) error {
	waiter := ec2.NewVolumeAvailableWaiter(c.ec2)
	err := waiter.Wait(ctx, &ec2.DescribeVolumesInput{
		VolumeIds: []string{volumeID},
	}, defaultVolumeWait)
	if err != nil {
		return fmt.Errorf("volume %s did not become available: %w", volumeID, err)
	}
	return nil
}

// DeleteVolume implements VolumeService.
func (c *AWSClient) DeleteVolume(ctx context.Context, volumeID string) error {
	_, err := c.ec2.DeleteVolume(ctx, &ec2.DeleteVolumeInput{
		VolumeId: aws.String(volumeID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", volumeID, err)
	}
	return nil
}

// AttachmentState implements VolumeService.
func (c *AWSClient) AttachmentState(ctx context.Context, volumeID string) (string, error) {
	out, err := c.ec2.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{
		VolumeIds: []string{volumeID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe volume %s: %w", volumeID, err)
	}
	for _, vol := range out.Volumes {
		for _, att := range vol.Attachments {
			return string(att.State), nil
		}
	}
	return AttachmentNone, nil
}
