package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
)

type ExtraBucketStackProps struct {
	awscdk.StackProps
	Infra *config.InfraContext
}

// ExtraBucketStack adds the tenant specific data and archive buckets some
// tenants require on top of the base platform.
type ExtraBucketStack struct {
	awscdk.Stack
	DataBucket    awss3.Bucket
	ArchiveBucket awss3.Bucket
}

func NewExtraBucketStack(scope constructs.Construct, id string, props *ExtraBucketStackProps) *ExtraBucketStack {
	stack := awscdk.NewStack(scope, jsii.String(id), &props.StackProps)
	ctx := props.Infra.Context

	zap.S().Infof("creating extra bucket stack (environment: %s, tenant: %s)", ctx.EnvName, ctx.TenantName)

	bucket := func(id string) awss3.Bucket {
		return awss3.NewBucket(stack, jsii.String(id), &awss3.BucketProps{
			BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
			Encryption:        awss3.BucketEncryption_S3_MANAGED,
			EnforceSSL:        jsii.Bool(true),
			Versioned:         jsii.Bool(true),
			RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		})
	}
	data := bucket("DataBucket")
	archive := bucket("ArchiveBucket")

	awscdk.NewCfnOutput(stack, jsii.String("DataBucketName"), &awscdk.CfnOutputProps{
		Value:      data.BucketName(),
		ExportName: jsii.String(ctx.PascalPrefix("DataBucketName")),
	})
	awscdk.NewCfnOutput(stack, jsii.String("DataBucketArn"), &awscdk.CfnOutputProps{
		Value: data.BucketArn(),
	})
	awscdk.NewCfnOutput(stack, jsii.String("ArchiveBucketName"), &awscdk.CfnOutputProps{
		Value:      archive.BucketName(),
		ExportName: jsii.String(ctx.PascalPrefix("ArchiveBucketName")),
	})
	awscdk.NewCfnOutput(stack, jsii.String("ArchiveBucketArn"), &awscdk.CfnOutputProps{
		Value: archive.BucketArn(),
	})

	return &ExtraBucketStack{Stack: stack, DataBucket: data, ArchiveBucket: archive}
}
