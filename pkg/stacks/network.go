// Package stacks contains the CloudFormation stacks composing one tenant
// environment, plus the shared and extension stacks.
package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/resources"
)

type NetworkStackProps struct {
	awscdk.StackProps
	Infra *config.InfraContext
}

// NetworkStack owns the VPC every other stack deploys into.
type NetworkStack struct {
	awscdk.Stack
	Vpc awsec2.Vpc
}

func NewNetworkStack(scope constructs.Construct, id string, props *NetworkStackProps) *NetworkStack {
	stack := awscdk.NewStack(scope, jsii.String(id), &props.StackProps)
	ctx := props.Infra.Context

	zap.S().Infof("creating network stack (environment: %s, tenant: %s)", ctx.EnvName, ctx.TenantName)

	vpc := resources.NewClassicVpc(stack, "ClassicVpc", &resources.ClassicVpcProps{
		Vpc: props.Infra.Config.Vpc,
	})

	return &NetworkStack{Stack: stack, Vpc: vpc}
}
