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

type SecurityStackProps struct {
	awscdk.StackProps
	Vpc   awsec2.IVpc
	Infra *config.InfraContext
}

// SecurityStack holds every security group of the platform along with the
// ingress matrix between them. Keeping them in one stack avoids circular
// references between the database and application stacks.
type SecurityStack struct {
	awscdk.Stack
	AlbSg         awsec2.SecurityGroup
	RdsSg         awsec2.SecurityGroup
	RdsLambdaSg   awsec2.SecurityGroup
	DocdbSg       awsec2.SecurityGroup
	DocdbLambdaSg awsec2.SecurityGroup
	RedisSg       awsec2.SecurityGroup
	OsdApiSg      awsec2.SecurityGroup
	KeycloakSg    awsec2.SecurityGroup
	EcsSharedSg   awsec2.SecurityGroup
}

func NewSecurityStack(scope constructs.Construct, id string, props *SecurityStackProps) *SecurityStack {
	stack := awscdk.NewStack(scope, jsii.String(id), &props.StackProps)
	ctx := props.Infra.Context

	zap.S().Infof("creating security stack (environment: %s, tenant: %s)", ctx.EnvName, ctx.TenantName)

	sg := func(id, base, description string) awsec2.SecurityGroup {
		return resources.NewSecurityGroup(stack, id, &resources.SecurityGroupProps{
			Vpc:              props.Vpc,
			Name:             ctx.KebabPrefix(base),
			Description:      description,
			AllowAllOutbound: true,
		})
	}

	s := &SecurityStack{
		Stack:         stack,
		AlbSg:         sg("AlbSg", "alb-sg", "Application load balancer"),
		RdsSg:         sg("RdsSg", "rds-sg", "Aurora cluster"),
		RdsLambdaSg:   sg("AuroraLambdaSg", "aurora-lambda-sg", "Aurora password management lambda"),
		DocdbSg:       sg("DocdbSg", "docdb-sg", "DocumentDB cluster"),
		DocdbLambdaSg: sg("DocDBLambdaSg", "docdb-lambda-sg", "DocumentDB password management lambda"),
		RedisSg:       sg("RedisSg", "redis-sg", "Redis cluster"),
		OsdApiSg:      sg("OsdApiSg", "osd-api-sg", "OSD API service"),
		KeycloakSg:    sg("KeycloakSg", "keycloak-sg", "Keycloak service"),
		EcsSharedSg:   sg("EcsSharedSg", "ecs-shared-sg", "Shared by all ECS services"),
	}
	s.addIngressRules()

	return s
}

func (s *SecurityStack) addIngressRules() {
	s.AlbSg.AddIngressRule(awsec2.Peer_AnyIpv4(), awsec2.Port_Tcp(jsii.Number(80)),
		jsii.String("HTTP from anywhere"), nil)
	s.AlbSg.AddIngressRule(awsec2.Peer_AnyIpv4(), awsec2.Port_Tcp(jsii.Number(443)),
		jsii.String("HTTPS from anywhere"), nil)

	s.RdsSg.AddIngressRule(s.KeycloakSg, awsec2.Port_Tcp(jsii.Number(3306)),
		jsii.String("MySQL from Keycloak"), nil)
	s.RdsSg.AddIngressRule(s.RdsLambdaSg, awsec2.Port_Tcp(jsii.Number(3306)),
		jsii.String("MySQL from password management lambda"), nil)

	s.OsdApiSg.AddIngressRule(s.AlbSg, awsec2.Port_Tcp(jsii.Number(8080)),
		jsii.String("API traffic from ALB"), nil)
	s.OsdApiSg.AddIngressRule(s.AlbSg, awsec2.Port_Tcp(jsii.Number(2112)),
		jsii.String("Metrics from ALB"), nil)

	s.KeycloakSg.AddIngressRule(s.AlbSg, awsec2.Port_Tcp(jsii.Number(8080)),
		jsii.String("Keycloak traffic from ALB"), nil)
	s.KeycloakSg.AddIngressRule(s.AlbSg, awsec2.Port_Tcp(jsii.Number(9000)),
		jsii.String("Keycloak health from ALB"), nil)

	s.DocdbSg.AddIngressRule(s.OsdApiSg, awsec2.Port_Tcp(jsii.Number(27017)),
		jsii.String("DocumentDB from OSD API"), nil)
	s.DocdbSg.AddIngressRule(s.DocdbLambdaSg, awsec2.Port_Tcp(jsii.Number(27017)),
		jsii.String("DocumentDB from password management lambda"), nil)

	s.RedisSg.AddIngressRule(s.OsdApiSg, awsec2.Port_Tcp(jsii.Number(6379)),
		jsii.String("Redis from OSD API"), nil)

	// Service Connect traffic flows freely between tasks in the shared group.
	s.EcsSharedSg.AddIngressRule(s.EcsSharedSg, awsec2.Port_AllTraffic(),
		jsii.String("All traffic between ECS services"), nil)
}
