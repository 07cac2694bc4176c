package resources

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// Lambda handler assets. CI builds each cmd/ handler into a bootstrap binary
// under these directories before synthesis.
const (
	PasswordHandlerAsset   = "assets/lambda/docdb-password"
	DnsCleanupHandlerAsset = "assets/lambda/dns-cleanup"
)

type managedPasswordProps struct {
	Vpc           awsec2.IVpc
	SecurityGroup awsec2.ISecurityGroup
	// Properties are passed to the custom resource on top of KmsKeyId,
	// which is always set to the key created here.
	Properties map[string]interface{}
	DependsOn  []constructs.IConstruct
}

// newManagedPasswordSecretArn wires the custom resource that switches a
// database cluster to a Secrets Manager managed master password. Returns the
// ARN of the managed secret as reported by the handler.
func newManagedPasswordSecretArn(scope constructs.Construct, id string, props *managedPasswordProps) *string {
	cons := constructs.NewConstruct(scope, jsii.String(id))

	key := awskms.NewKey(cons, jsii.String("PasswordKey"), &awskms.KeyProps{
		EnableKeyRotation: jsii.Bool(true),
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
	})

	role := awsiam.NewRole(cons, jsii.String("HandlerRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("lambda.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/AWSLambdaBasicExecutionRole")),
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/AWSLambdaVPCAccessExecutionRole")),
		},
	})
	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect: awsiam.Effect_ALLOW,
		Actions: jsii.Strings(
			"rds:ModifyDBCluster",
			"rds:DescribeDBClusters",
		),
		Resources: jsii.Strings("*"),
	}))
	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    awsiam.Effect_ALLOW,
		Actions:   jsii.Strings("secretsmanager:*"),
		Resources: jsii.Strings("*"),
	}))
	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    awsiam.Effect_ALLOW,
		Actions:   jsii.Strings("kms:*"),
		Resources: jsii.Strings("*"),
	}))

	handler := awslambda.NewFunction(cons, jsii.String("Handler"), &awslambda.FunctionProps{
		Runtime:    awslambda.Runtime_PROVIDED_AL2023(),
		Handler:    jsii.String("bootstrap"),
		Code:       awslambda.Code_FromAsset(jsii.String(PasswordHandlerAsset), nil),
		Role:       role,
		Timeout:    awscdk.Duration_Minutes(jsii.Number(5)),
		MemorySize: jsii.Number(256),
		Vpc:        props.Vpc,
		VpcSubnets: &awsec2.SubnetSelection{
			SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
		},
		SecurityGroups: &[]awsec2.ISecurityGroup{props.SecurityGroup},
	})

	properties := map[string]interface{}{"KmsKeyId": key.KeyId()}
	for k, v := range props.Properties {
		properties[k] = v
	}

	resource := awscdk.NewCustomResource(cons, jsii.String("ManageMasterUserPassword"), &awscdk.CustomResourceProps{
		ServiceToken:   handler.FunctionArn(),
		Properties:     &properties,
		ServiceTimeout: awscdk.Duration_Minutes(jsii.Number(10)),
	})
	for _, dep := range props.DependsOn {
		resource.Node().AddDependency(dep)
	}

	return resource.GetAttString(jsii.String("SecretArn"))
}
