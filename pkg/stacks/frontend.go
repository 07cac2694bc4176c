package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53targets"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/resources"
)

type FrontEndStackProps struct {
	awscdk.StackProps
	HostedZone               awsroute53.IHostedZone
	CloudFrontCertificateArn *string
	Infra                    *config.InfraContext
}

// FrontEndStack serves the SPA through CloudFront and points the front
// domain at the distribution.
type FrontEndStack struct {
	awscdk.Stack
	FrontEnd *resources.FrontEnd
}

func NewFrontEndStack(scope constructs.Construct, id string, props *FrontEndStackProps) *FrontEndStack {
	stack := awscdk.NewStack(scope, jsii.String(id), &props.StackProps)
	cfg := props.Infra.Config
	ctx := props.Infra.Context

	zap.S().Infof("creating front end stack (environment: %s, tenant: %s)", ctx.EnvName, ctx.TenantName)

	frontEnd := resources.NewFrontEnd(stack, "FrontEnd", &resources.FrontEndProps{
		CloudFrontCertificateArn: props.CloudFrontCertificateArn,
		FrontEnd:                 cfg.FrontEnd,
		Domain:                   cfg.Domain,
	})

	record := awsroute53.NewARecord(stack, jsii.String("OsdFrontRecord"), &awsroute53.ARecordProps{
		Zone:       props.HostedZone,
		RecordName: jsii.String(cfg.Domain.FrontDomainName()),
		Target: awsroute53.RecordTarget_FromAlias(
			awsroute53targets.NewCloudFrontTarget(frontEnd.Distribution)),
		Ttl: awscdk.Duration_Minutes(jsii.Number(5)),
	})

	awscdk.NewCfnOutput(stack, jsii.String("OsdFrontRecordOutput"), &awscdk.CfnOutputProps{
		Value: record.DomainName(),
	})
	awscdk.NewCfnOutput(stack, jsii.String("CloudFrontDistributionId"), &awscdk.CfnOutputProps{
		Value: frontEnd.Distribution.DistributionId(),
	})
	awscdk.NewCfnOutput(stack, jsii.String("FrontEndBucketName"), &awscdk.CfnOutputProps{
		Value: frontEnd.Bucket.BucketName(),
	})

	return &FrontEndStack{Stack: stack, FrontEnd: frontEnd}
}
