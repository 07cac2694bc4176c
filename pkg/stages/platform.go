// Package stages assembles stacks into deployable CDK stages: one platform
// stage per (tenant, environment) pair plus the shared registry stage.
package stages

import (
	"sort"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/imageref"
	"github.com/osdcloud/osd-infra/pkg/stacks"
)

// CloudFront certificates and Lambda@Edge only work from us-east-1.
const cloudFrontRegion = "us-east-1"

type PlatformStageProps struct {
	awscdk.StageProps
	Infra         *config.InfraContext
	ImageResolver *imageref.Resolver
}

// PlatformStage deploys the full platform for one (tenant, environment)
// pair: network, security groups, databases, storage, DNS, the ECS services
// behind the ALB and the CloudFront frontend.
type PlatformStage struct {
	awscdk.Stage
	Infra *config.InfraContext
}

func NewPlatformStage(scope constructs.Construct, id string, props *PlatformStageProps) (*PlatformStage, error) {
	stage := awscdk.NewStage(scope, jsii.String(id), &props.StageProps)
	cfg := props.Infra.Config
	ctx := props.Infra.Context

	zap.S().Infof("creating stage %s (account: %s, region: %s)", id, cfg.Aws.Account, cfg.Aws.Region)

	env := &awscdk.Environment{
		Account: jsii.String(cfg.Aws.Account),
		Region:  jsii.String(cfg.Aws.Region),
	}
	usEast1 := &awscdk.Environment{
		Account: jsii.String(cfg.Aws.Account),
		Region:  jsii.String(cloudFrontRegion),
	}

	network := stacks.NewNetworkStack(stage, "NetworkStack", &stacks.NetworkStackProps{
		StackProps: awscdk.StackProps{Env: env},
		Infra:      props.Infra,
	})
	security := stacks.NewSecurityStack(stage, "SecurityStack", &stacks.SecurityStackProps{
		StackProps: awscdk.StackProps{Env: env},
		Vpc:        network.Vpc,
		Infra:      props.Infra,
	})
	database := stacks.NewDatabaseStack(stage, "DatabaseStack", &stacks.DatabaseStackProps{
		StackProps:          awscdk.StackProps{Env: env},
		Vpc:                 network.Vpc,
		DocdbSecurityGroup:  security.DocdbSg,
		DocdbLambdaSecurity: security.DocdbLambdaSg,
		RedisSecurityGroup:  security.RedisSg,
		AuroraSecurityGroup: security.RdsSg,
		RdsLambdaSecurity:   security.RdsLambdaSg,
		Infra:               props.Infra,
	})
	storage := stacks.NewStorageStack(stage, "StorageStack", &stacks.StorageStackProps{
		StackProps: awscdk.StackProps{Env: env},
		Infra:      props.Infra,
	})
	domain, err := stacks.NewDomainStack(stage, "DomainStack", &stacks.DomainStackProps{
		StackProps: awscdk.StackProps{Env: env},
		Infra:      props.Infra,
	})
	if err != nil {
		return nil, err
	}

	// The distribution certificate must live in us-east-1. When the stage
	// already deploys there the ALB certificate doubles as the CloudFront
	// one and the extra stack is skipped.
	cloudFrontCertificateArn := domain.AlbCertificateArn
	if cfg.Aws.Region != cloudFrontRegion {
		certificate := stacks.NewCloudFrontCertificateStack(stage, "CloudFrontCertificateStack",
			&stacks.CloudFrontCertificateStackProps{
				StackProps: awscdk.StackProps{
					Env:                   usEast1,
					CrossRegionReferences: jsii.Bool(true),
				},
				HostedZone: domain.HostedZone,
				Infra:      props.Infra,
			})
		cloudFrontCertificateArn = certificate.CertificateArn
	}

	if _, err := stacks.NewApplicationStack(stage, "ApplicationStack", &stacks.ApplicationStackProps{
		StackProps:             awscdk.StackProps{Env: env},
		Vpc:                    network.Vpc,
		AlbSecurityGroup:       security.AlbSg,
		OsdApiSecurityGroup:    security.OsdApiSg,
		KeycloakSecurityGroup:  security.KeycloakSg,
		EcsSharedSecurityGroup: security.EcsSharedSg,
		HostedZone:             domain.HostedZone,
		AlbCertificateArn:      domain.AlbCertificateArn,
		DocdbEndpoint:          database.DocdbEndpoint,
		DocdbPort:              database.DocdbPort,
		DocdbSecretArn:         database.DocdbSecretArn,
		RedisEndpoint:          database.RedisEndpoint,
		AuroraSecret:           database.AuroraSecret,
		AuroraJdbcUrl:          database.AuroraJdbcUrl,
		OsdStorageBucketName:   storage.OsdStorageBucketName,
		ImageResolver:          props.ImageResolver,
		Infra:                  props.Infra,
	}); err != nil {
		return nil, err
	}

	stacks.NewFrontEndStack(stage, "FrontEndStack", &stacks.FrontEndStackProps{
		StackProps: awscdk.StackProps{
			Env:                   usEast1,
			CrossRegionReferences: jsii.Bool(true),
		},
		HostedZone:               domain.HostedZone,
		CloudFrontCertificateArn: cloudFrontCertificateArn,
		Infra:                    props.Infra,
	})

	tagStage(stage, ctx.Tags())

	return &PlatformStage{Stage: stage, Infra: props.Infra}, nil
}

func tagStage(stage awscdk.Stage, tags map[string]string) {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		awscdk.Tags_Of(stage).Add(jsii.String(k), jsii.String(tags[k]), nil)
	}
}
