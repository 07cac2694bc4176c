package resources

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfrontorigins"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
)

type FrontEndProps struct {
	CloudFrontCertificateArn *string
	FrontEnd                 config.FrontEndConfig
	Domain                   config.DomainConfig
}

// FrontEnd is the SPA delivery: a private S3 origin behind a CloudFront
// distribution with origin access control.
type FrontEnd struct {
	Bucket       awss3.IBucket
	Distribution awscloudfront.Distribution
}

func NewFrontEnd(scope constructs.Construct, id string, props *FrontEndProps) *FrontEnd {
	cons := constructs.NewConstruct(scope, jsii.String(id))

	bucket := frontEndBucket(cons, props.FrontEnd)
	distribution := frontEndDistribution(cons, bucket, props)

	return &FrontEnd{Bucket: bucket, Distribution: distribution}
}

func frontEndBucket(cons constructs.Construct, cfg config.FrontEndConfig) awss3.IBucket {
	if cfg.BucketName != "" {
		zap.S().Debugf("importing front end bucket %s", cfg.BucketName)
		return awss3.Bucket_FromBucketName(cons, jsii.String("FrontEndBucket"), jsii.String(cfg.BucketName))
	}
	return awss3.NewBucket(cons, jsii.String("FrontEndBucket"), &awss3.BucketProps{
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		EnforceSSL:        jsii.Bool(true),
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		AutoDeleteObjects: jsii.Bool(true),
	})
}

func frontEndDistribution(cons constructs.Construct, bucket awss3.IBucket, props *FrontEndProps) awscloudfront.Distribution {
	oac := awscloudfront.NewS3OriginAccessControl(cons, jsii.String("FrontEndOAC"), &awscloudfront.S3OriginAccessControlProps{
		Signing: awscloudfront.Signing_SIGV4_NO_OVERRIDE(),
	})

	corsPolicy := awscloudfront.NewResponseHeadersPolicy(cons, jsii.String("CorsPolicy"), &awscloudfront.ResponseHeadersPolicyProps{
		CorsBehavior: &awscloudfront.ResponseHeadersCorsBehavior{
			AccessControlAllowCredentials: jsii.Bool(false),
			AccessControlAllowHeaders:     jsii.Strings("*"),
			AccessControlAllowMethods:     jsii.Strings("GET", "HEAD", "OPTIONS"),
			AccessControlAllowOrigins:     jsii.Strings("*"),
			OriginOverride:                jsii.Bool(true),
		},
		Comment: jsii.String("Allow CORS from any origin"),
	})

	domainNames := append([]string{}, props.FrontEnd.DomainNames...)
	domainNames = append(domainNames, props.Domain.FrontDomainName())

	origin := awscloudfrontorigins.S3BucketOrigin_WithOriginAccessControl(bucket, &awscloudfrontorigins.S3BucketOriginWithOACProps{
		OriginAccessControl: oac,
		OriginPath:          jsii.String("/osd"),
	})

	distribution := awscloudfront.NewDistribution(cons, jsii.String("Distribution"), &awscloudfront.DistributionProps{
		Comment: jsii.String(props.FrontEnd.Comment),
		DefaultBehavior: &awscloudfront.BehaviorOptions{
			Origin:                origin,
			ViewerProtocolPolicy:  awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
			CachePolicy:           awscloudfront.CachePolicy_CACHING_OPTIMIZED(),
			AllowedMethods:        awscloudfront.AllowedMethods_ALLOW_ALL(),
			Compress:              jsii.Bool(true),
			ResponseHeadersPolicy: corsPolicy,
		},
		// The SPA entrypoint must never be cached or the release pipeline
		// serves stale bundles.
		AdditionalBehaviors: &map[string]*awscloudfront.BehaviorOptions{
			"index.html": {
				Origin:                origin,
				ViewerProtocolPolicy:  awscloudfront.ViewerProtocolPolicy_REDIRECT_TO_HTTPS,
				CachePolicy:           awscloudfront.CachePolicy_CACHING_DISABLED(),
				AllowedMethods:        awscloudfront.AllowedMethods_ALLOW_GET_HEAD(),
				Compress:              jsii.Bool(true),
				ResponseHeadersPolicy: corsPolicy,
			},
		},
		DefaultRootObject: jsii.String("index.html"),
		ErrorResponses: &[]*awscloudfront.ErrorResponse{
			{
				HttpStatus:         jsii.Number(404),
				ResponseHttpStatus: jsii.Number(200),
				ResponsePagePath:   jsii.String("/index.html"),
				Ttl:                awscdk.Duration_Seconds(jsii.Number(0)),
			},
		},
		PriceClass:             awscloudfront.PriceClass_PRICE_CLASS_100,
		MinimumProtocolVersion: awscloudfront.SecurityPolicyProtocol_TLS_V1_2_2021,
		DomainNames:            jsii.Strings(domainNames...),
		Certificate: awscertificatemanager.Certificate_FromCertificateArn(
			cons, jsii.String("ImportedCert"), props.CloudFrontCertificateArn),
	})

	if arn := props.FrontEnd.DeliveryDestinationArn; arn != "" {
		addLogDelivery(cons, distribution, arn)
	}

	return distribution
}

func addLogDelivery(cons constructs.Construct, distribution awscloudfront.Distribution, destinationArn string) {
	source := awslogs.NewCfnDeliverySource(cons, jsii.String("CloudfrontLogSource"), &awslogs.CfnDeliverySourceProps{
		Name:        jsii.String("cloudfront-log-source-" + *distribution.DistributionId()),
		ResourceArn: distribution.DistributionArn(),
		LogType:     jsii.String("ACCESS_LOGS"),
	})

	delivery := awslogs.NewCfnDelivery(cons, jsii.String("CloudfrontLogDelivery"), &awslogs.CfnDeliveryProps{
		DeliverySourceName:     source.Name(),
		DeliveryDestinationArn: jsii.String(destinationArn),
	})
	delivery.Node().AddDependency(source)
}
