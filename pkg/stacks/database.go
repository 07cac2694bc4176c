package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/resources"
)

type DatabaseStackProps struct {
	awscdk.StackProps
	Vpc                 awsec2.IVpc
	DocdbSecurityGroup  awsec2.ISecurityGroup
	DocdbLambdaSecurity awsec2.ISecurityGroup
	RedisSecurityGroup  awsec2.ISecurityGroup
	AuroraSecurityGroup awsec2.ISecurityGroup
	RdsLambdaSecurity   awsec2.ISecurityGroup
	Infra               *config.InfraContext
}

// DatabaseStack provisions the three data stores and exposes the connection
// material the application stack injects into the services.
type DatabaseStack struct {
	awscdk.Stack
	DocdbEndpoint  *string
	DocdbPort      *string
	DocdbSecretArn *string
	RedisEndpoint  *string
	AuroraSecret   awssecretsmanager.ISecret
	AuroraJdbcUrl  *string
}

func NewDatabaseStack(scope constructs.Construct, id string, props *DatabaseStackProps) *DatabaseStack {
	stack := awscdk.NewStack(scope, jsii.String(id), &props.StackProps)
	ctx := props.Infra.Context

	zap.S().Infof("creating database stack (environment: %s, tenant: %s)", ctx.EnvName, ctx.TenantName)

	docdb := resources.NewDocDBCluster(stack, "DocDB", &resources.DocDBClusterProps{
		Vpc:                 props.Vpc,
		SecurityGroup:       props.DocdbSecurityGroup,
		LambdaSecurityGroup: props.DocdbLambdaSecurity,
		DocDB:               props.Infra.Config.DocDB,
	})

	redis := resources.NewRedisCluster(stack, "Redis", &resources.RedisClusterProps{
		Vpc:           props.Vpc,
		SecurityGroup: props.RedisSecurityGroup,
		Redis:         props.Infra.Config.Redis,
		Context:       ctx,
	})

	aurora := resources.NewAuroraCluster(stack, "Aurora", &resources.AuroraClusterProps{
		Vpc:                 props.Vpc,
		SecurityGroup:       props.AuroraSecurityGroup,
		LambdaSecurityGroup: props.RdsLambdaSecurity,
		Aurora:              props.Infra.Config.AuroraCluster,
	})

	return &DatabaseStack{
		Stack:          stack,
		DocdbEndpoint:  docdb.Endpoint,
		DocdbPort:      docdb.Port,
		DocdbSecretArn: docdb.SecretArn,
		RedisEndpoint:  redis.Endpoint,
		AuroraSecret:   aurora.Secret,
		AuroraJdbcUrl:  aurora.JdbcUrl,
	}
}
