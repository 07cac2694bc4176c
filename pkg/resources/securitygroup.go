package resources

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

type SecurityGroupProps struct {
	Vpc awsec2.IVpc
	// Name becomes the Name tag; security groups themselves keep
	// CloudFormation-generated names so replacements never collide.
	Name             string
	Description      string
	AllowAllOutbound bool
}

// NewSecurityGroup creates a security group with a Name tag. Ingress rules
// are added by the caller.
func NewSecurityGroup(scope constructs.Construct, id string, props *SecurityGroupProps) awsec2.SecurityGroup {
	sg := awsec2.NewSecurityGroup(scope, jsii.String(id), &awsec2.SecurityGroupProps{
		Vpc:              props.Vpc,
		Description:      jsii.String(props.Description),
		AllowAllOutbound: jsii.Bool(props.AllowAllOutbound),
	})
	if props.Name != "" {
		awscdk.Tags_Of(sg).Add(jsii.String("Name"), jsii.String(props.Name), nil)
	}
	return sg
}
