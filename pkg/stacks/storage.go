package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
)

type StorageStackProps struct {
	awscdk.StackProps
	Infra *config.InfraContext
}

// StorageStack owns the OSD document bucket.
type StorageStack struct {
	awscdk.Stack
	OsdStorageBucketName *string
}

func NewStorageStack(scope constructs.Construct, id string, props *StorageStackProps) *StorageStack {
	stack := awscdk.NewStack(scope, jsii.String(id), &props.StackProps)
	ctx := props.Infra.Context

	zap.S().Infof("creating storage stack (environment: %s, tenant: %s)", ctx.EnvName, ctx.TenantName)

	var bucket awss3.IBucket
	if name := props.Infra.Config.Storage.OsdBucketName; name != "" {
		zap.S().Infof("importing osd storage bucket %s", name)
		bucket = awss3.Bucket_FromBucketName(stack, jsii.String("OSDStorage"), jsii.String(name))
	} else {
		removalPolicy := awscdk.RemovalPolicy_RETAIN
		autoDelete := false
		// Documents are disposable on dev tiers only.
		if ctx.IsDev() {
			removalPolicy = awscdk.RemovalPolicy_DESTROY
			autoDelete = true
		}
		bucket = awss3.NewBucket(stack, jsii.String("OSDStorage"), &awss3.BucketProps{
			BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
			Encryption:        awss3.BucketEncryption_S3_MANAGED,
			EnforceSSL:        jsii.Bool(true),
			Versioned:         jsii.Bool(true),
			RemovalPolicy:     removalPolicy,
			AutoDeleteObjects: jsii.Bool(autoDelete),
		})
	}

	return &StorageStack{Stack: stack, OsdStorageBucketName: bucket.BucketName()}
}
