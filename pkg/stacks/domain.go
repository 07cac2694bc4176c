package stacks

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/resources"
)

// MainAccountID is the organization account holding the parent hosted zones.
// Delegation records for zones created in that account are written directly,
// all other accounts go through the cross account delegation role.
const MainAccountID = "111111111111"

type DomainStackProps struct {
	awscdk.StackProps
	Infra *config.InfraContext
}

// DomainStack owns the tenant hosted zone, its delegation from the parent
// zone and the ALB certificate.
type DomainStack struct {
	awscdk.Stack
	HostedZone        awsroute53.IHostedZone
	AlbCertificateArn *string
}

func NewDomainStack(scope constructs.Construct, id string, props *DomainStackProps) (*DomainStack, error) {
	stack := awscdk.NewStack(scope, jsii.String(id), &props.StackProps)
	cfg := props.Infra.Config.Domain
	ctx := props.Infra.Context

	zap.S().Infof("creating domain stack (environment: %s, tenant: %s, zone: %s)",
		ctx.EnvName, ctx.TenantName, cfg.ZoneName)

	var (
		zone        awsroute53.IHostedZone
		zoneCreated bool
	)
	if cfg.HostedZoneId != "" {
		zone = awsroute53.HostedZone_FromHostedZoneAttributes(stack, jsii.String("HostedZone"),
			&awsroute53.HostedZoneAttributes{
				HostedZoneId: jsii.String(cfg.HostedZoneId),
				ZoneName:     jsii.String(cfg.ZoneName),
			})
	} else {
		zone = awsroute53.NewHostedZone(stack, jsii.String("HostedZone"), &awsroute53.HostedZoneProps{
			ZoneName: jsii.String(cfg.ZoneName),
		})
		zoneCreated = true
	}

	if zoneCreated && cfg.ParentHostedZoneId != "" {
		if err := addZoneDelegation(stack, zone, cfg, props.Infra.Config.Aws.Account); err != nil {
			return nil, err
		}
	}

	var certificate awscertificatemanager.ICertificate
	if cfg.AlbCertificateArn != "" {
		certificate = awscertificatemanager.Certificate_FromCertificateArn(stack,
			jsii.String("AlbCertificate"), jsii.String(cfg.AlbCertificateArn))
	} else {
		certificate = awscertificatemanager.NewCertificate(stack, jsii.String("AlbCertificate"),
			&awscertificatemanager.CertificateProps{
				DomainName:              jsii.String(cfg.ZoneName),
				SubjectAlternativeNames: jsii.Strings("*." + cfg.ZoneName),
				Validation:              awscertificatemanager.CertificateValidation_FromDns(zone),
			})
	}

	if zoneCreated {
		// Certificate validation CNAMEs are not tracked by CloudFormation
		// and would block zone deletion without this cleanup.
		addDnsCleanup(stack, zone)
	}

	return &DomainStack{
		Stack:             stack,
		HostedZone:        zone,
		AlbCertificateArn: certificate.CertificateArn(),
	}, nil
}

func addZoneDelegation(stack awscdk.Stack, zone awsroute53.IHostedZone, cfg config.DomainConfig, account string) error {
	if account == MainAccountID {
		parent := awsroute53.HostedZone_FromHostedZoneId(stack, jsii.String("ParentHostedZone"),
			jsii.String(cfg.ParentHostedZoneId))
		awsroute53.NewZoneDelegationRecord(stack, jsii.String("ZoneDelegationRecord"),
			&awsroute53.ZoneDelegationRecordProps{
				Zone:        parent,
				RecordName:  jsii.String(cfg.ZoneName),
				NameServers: zone.HostedZoneNameServers(),
				Ttl:         awscdk.Duration_Seconds(jsii.Number(300)),
				Comment:     jsii.String(fmt.Sprintf("Zone delegation record for %s", cfg.ZoneName)),
			})
		return nil
	}

	if cfg.DelegationRoleArn == "" {
		return errors.Errorf("domain.delegation_role_arn is required to delegate %s from parent zone %s in account %s",
			cfg.ZoneName, cfg.ParentHostedZoneId, MainAccountID)
	}
	role := awsiam.Role_FromRoleArn(stack, jsii.String("DelegationRole"),
		jsii.String(cfg.DelegationRoleArn), nil)
	awsroute53.NewCrossAccountZoneDelegationRecord(stack, jsii.String("CrossAccountZoneDelegationRecord"),
		&awsroute53.CrossAccountZoneDelegationRecordProps{
			DelegatedZone:      zone,
			ParentHostedZoneId: jsii.String(cfg.ParentHostedZoneId),
			DelegationRole:     role,
			Ttl:                awscdk.Duration_Seconds(jsii.Number(300)),
		})
	return nil
}

// addDnsCleanup deletes leftover certificate validation records from the
// hosted zone when the stack is torn down.
func addDnsCleanup(stack awscdk.Stack, zone awsroute53.IHostedZone) {
	role := awsiam.NewRole(stack, jsii.String("DnsCleanupRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("lambda.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/AWSLambdaBasicExecutionRole")),
		},
	})
	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect: awsiam.Effect_ALLOW,
		Actions: jsii.Strings(
			"route53:ListResourceRecordSets",
			"route53:ChangeResourceRecordSets",
			"route53:GetChange",
		),
		Resources: &[]*string{
			jsii.String(fmt.Sprintf("arn:aws:route53:::hostedzone/%s", *zone.HostedZoneId())),
			jsii.String("arn:aws:route53:::change/*"),
		},
	}))

	handler := awslambda.NewFunction(stack, jsii.String("DnsCleanupHandler"), &awslambda.FunctionProps{
		Runtime:    awslambda.Runtime_PROVIDED_AL2023(),
		Handler:    jsii.String("bootstrap"),
		Code:       awslambda.Code_FromAsset(jsii.String(resources.DnsCleanupHandlerAsset), nil),
		Role:       role,
		Timeout:    awscdk.Duration_Minutes(jsii.Number(2)),
		MemorySize: jsii.Number(256),
	})

	awscdk.NewCustomResource(stack, jsii.String("DnsCleanup"), &awscdk.CustomResourceProps{
		ServiceToken: handler.FunctionArn(),
		Properties: &map[string]interface{}{
			"HostedZoneId": zone.HostedZoneId(),
		},
		ServiceTimeout: awscdk.Duration_Minutes(jsii.Number(3)),
	})
}
