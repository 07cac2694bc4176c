package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
)

type CloudFrontCertificateStackProps struct {
	awscdk.StackProps
	HostedZone awsroute53.IHostedZone
	Infra      *config.InfraContext
}

// CloudFrontCertificateStack issues the distribution certificate. CloudFront
// only accepts certificates from us-east-1, so this stack deploys there and
// the ARN crosses regions into the frontend stack.
type CloudFrontCertificateStack struct {
	awscdk.Stack
	CertificateArn *string
}

func NewCloudFrontCertificateStack(scope constructs.Construct, id string, props *CloudFrontCertificateStackProps) *CloudFrontCertificateStack {
	stack := awscdk.NewStack(scope, jsii.String(id), &props.StackProps)
	cfg := props.Infra.Config.Domain
	ctx := props.Infra.Context

	zap.S().Infof("creating cloudfront certificate stack (environment: %s, tenant: %s)",
		ctx.EnvName, ctx.TenantName)

	var certificate awscertificatemanager.ICertificate
	if cfg.CloudfrontCertificateArn != "" {
		certificate = awscertificatemanager.Certificate_FromCertificateArn(stack,
			jsii.String("CloudFrontCertificate"), jsii.String(cfg.CloudfrontCertificateArn))
	} else {
		certificate = awscertificatemanager.NewCertificate(stack, jsii.String("CloudFrontCertificate"),
			&awscertificatemanager.CertificateProps{
				DomainName:              jsii.String(cfg.ZoneName),
				SubjectAlternativeNames: jsii.Strings("*." + cfg.ZoneName),
				Validation:              awscertificatemanager.CertificateValidation_FromDns(props.HostedZone),
			})
	}

	return &CloudFrontCertificateStack{Stack: stack, CertificateArn: certificate.CertificateArn()}
}
