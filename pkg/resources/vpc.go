package resources

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
)

type ClassicVpcProps struct {
	Vpc config.VpcConfig
}

// NewClassicVpc builds the three-tier VPC: public subnets for the ALB and
// NAT gateways, isolated subnets for the data stores, and private subnets
// with egress for the ECS tasks. ECR traffic stays inside the VPC through
// gateway and interface endpoints, and every flow is logged to CloudWatch.
func NewClassicVpc(scope constructs.Construct, id string, props *ClassicVpcProps) awsec2.Vpc {
	cons := constructs.NewConstruct(scope, jsii.String(id))

	zap.S().Debugf("creating vpc with cidr %s (%d azs, %d nat gateways)",
		props.Vpc.Cidr, props.Vpc.ReservedAzs, props.Vpc.NatGateways)

	vpc := awsec2.NewVpc(cons, jsii.String("Vpc"), &awsec2.VpcProps{
		IpAddresses:        awsec2.IpAddresses_Cidr(jsii.String(props.Vpc.Cidr)),
		MaxAzs:             jsii.Number(props.Vpc.ReservedAzs),
		NatGateways:        jsii.Number(props.Vpc.NatGateways),
		EnableDnsHostnames: jsii.Bool(true),
		EnableDnsSupport:   jsii.Bool(true),
		SubnetConfiguration: &[]*awsec2.SubnetConfiguration{
			{
				Name:                jsii.String("public"),
				SubnetType:          awsec2.SubnetType_PUBLIC,
				CidrMask:            jsii.Number(24),
				MapPublicIpOnLaunch: jsii.Bool(true),
			},
			{
				Name:       jsii.String("isolated"),
				SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED,
				CidrMask:   jsii.Number(24),
			},
			{
				Name:       jsii.String("private"),
				SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
				CidrMask:   jsii.Number(24),
			},
		},
	})

	vpc.AddGatewayEndpoint(jsii.String("S3Endpoint"), &awsec2.GatewayVpcEndpointOptions{
		Service: awsec2.GatewayVpcEndpointAwsService_S3(),
	})
	vpc.AddInterfaceEndpoint(jsii.String("EcrDockerEndpoint"), &awsec2.InterfaceVpcEndpointOptions{
		Service: awsec2.InterfaceVpcEndpointAwsService_ECR_DOCKER(),
	})
	vpc.AddInterfaceEndpoint(jsii.String("EcrApiEndpoint"), &awsec2.InterfaceVpcEndpointOptions{
		Service: awsec2.InterfaceVpcEndpointAwsService_ECR(),
	})

	addFlowLogs(cons, vpc)
	tagSubnetAzs(vpc)

	return vpc
}

func addFlowLogs(cons constructs.Construct, vpc awsec2.Vpc) {
	logGroup := awslogs.NewLogGroup(cons, jsii.String("FlowLogGroup"), &awslogs.LogGroupProps{
		Retention: awslogs.RetentionDays_ONE_MONTH,
	})

	role := awsiam.NewRole(cons, jsii.String("FlowLogRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("vpc-flow-logs.amazonaws.com"), nil),
	})
	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect: awsiam.Effect_ALLOW,
		Actions: jsii.Strings(
			"logs:CreateLogGroup",
			"logs:CreateLogStream",
			"logs:PutLogEvents",
			"logs:DescribeLogGroups",
			"logs:DescribeLogStreams",
		),
		Resources: jsii.Strings("*"),
	}))
	logGroup.GrantWrite(role)

	vpc.AddFlowLog(jsii.String("FlowLog"), &awsec2.FlowLogOptions{
		Destination: awsec2.FlowLogDestination_ToCloudWatchLogs(logGroup, role),
		TrafficType: awsec2.FlowLogTrafficType_ALL,
	})
}

// tagSubnetAzs tags every subnet with its availability zone so subnets are
// identifiable in cost and inventory reports.
func tagSubnetAzs(vpc awsec2.Vpc) {
	subnets := append(append(
		append([]awsec2.ISubnet{}, (*vpc.PublicSubnets())...),
		(*vpc.IsolatedSubnets())...),
		(*vpc.PrivateSubnets())...)
	for _, subnet := range subnets {
		awscdk.Tags_Of(subnet).Add(jsii.String("Az"), subnet.AvailabilityZone(), nil)
	}
}
