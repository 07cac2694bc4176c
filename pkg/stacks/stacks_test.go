package stacks

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/naming"
)

func testInfra(tenant, env string) *config.InfraContext {
	cfg := config.DefaultInfrastructureConfig()
	cfg.Aws = config.AwsConfig{Account: "222222222222", Region: "eu-west-1"}
	cfg.Domain.HostedZoneId = "Z0123456789"
	cfg.Domain.ZoneName = "app.example.com"
	cfg.Domain.Records = map[string]string{
		"front_domain_name": "front.app.example.com",
		"api_domain_name":   "api.app.example.com",
		"sso_domain_name":   "sso.app.example.com",
	}
	return &config.InfraContext{
		Config:  cfg,
		Context: naming.Context{TenantName: tenant, EnvName: env},
	}
}

func TestStorageStackCreatesBucket(t *testing.T) {
	assert := assert.New(t)
	app := awscdk.NewApp(nil)

	stack := NewStorageStack(app, "StorageStack", &StorageStackProps{
		Infra: testInfra("fr", "prd"),
	})
	assert.NotNil(stack.OsdStorageBucketName)

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.ResourceCountIs(jsii.String("AWS::S3::Bucket"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::S3::Bucket"), map[string]interface{}{
		"VersioningConfiguration": map[string]interface{}{"Status": "Enabled"},
	})
	template.HasResource(jsii.String("AWS::S3::Bucket"), map[string]interface{}{
		"DeletionPolicy": "Retain",
	})
}

func TestStorageStackDevBucketIsDisposable(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack := NewStorageStack(app, "StorageStack", &StorageStackProps{
		Infra: testInfra("fr", "dev"),
	})

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.HasResource(jsii.String("AWS::S3::Bucket"), map[string]interface{}{
		"DeletionPolicy": "Delete",
	})
}

func TestStorageStackImportsNamedBucket(t *testing.T) {
	assert := assert.New(t)
	app := awscdk.NewApp(nil)

	infra := testInfra("fr", "prd")
	infra.Config.Storage.OsdBucketName = "existing-osd-bucket"
	stack := NewStorageStack(app, "StorageStack", &StorageStackProps{Infra: infra})

	assert.Equal("existing-osd-bucket", *stack.OsdStorageBucketName)
	template := assertions.Template_FromStack(stack.Stack, nil)
	template.ResourceCountIs(jsii.String("AWS::S3::Bucket"), jsii.Number(0))
}

func TestSecurityStackGroups(t *testing.T) {
	app := awscdk.NewApp(nil)
	infra := testInfra("fr", "prd")

	network := NewNetworkStack(app, "NetworkStack", &NetworkStackProps{Infra: infra})
	security := NewSecurityStack(app, "SecurityStack", &SecurityStackProps{
		Vpc:   network.Vpc,
		Infra: infra,
	})

	template := assertions.Template_FromStack(security.Stack, nil)
	template.ResourceCountIs(jsii.String("AWS::EC2::SecurityGroup"), jsii.Number(9))
	// The ALB is reachable from anywhere on 443.
	template.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroup"), map[string]interface{}{
		"GroupDescription": "Application load balancer",
		"SecurityGroupIngress": assertions.Match_ArrayWith(&[]interface{}{
			assertions.Match_ObjectLike(&map[string]interface{}{
				"CidrIp":   "0.0.0.0/0",
				"FromPort": 443,
			}),
		}),
	})
	// Group-to-group rules are split out to avoid dependency cycles.
	template.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]interface{}{
		"FromPort": 27017,
		"ToPort":   27017,
	})
}

func TestExtraBucketStackExports(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack := NewExtraBucketStack(app, "ExtraBucketStack", &ExtraBucketStackProps{
		Infra: testInfra("ch", "prd"),
	})

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.ResourceCountIs(jsii.String("AWS::S3::Bucket"), jsii.Number(2))
	template.HasOutput(jsii.String("DataBucketName"), map[string]interface{}{
		"Export": map[string]interface{}{"Name": "ChPrdDataBucketName"},
	})
	template.HasOutput(jsii.String("ArchiveBucketName"), map[string]interface{}{
		"Export": map[string]interface{}{"Name": "ChPrdArchiveBucketName"},
	})
}

func TestEcrRepositoryStack(t *testing.T) {
	app := awscdk.NewApp(nil)

	stack := NewEcrRepositoryStack(app, "EcrRepositoriesStack", &EcrRepositoryStackProps{
		RepositoryNames: []string{"osd/osd-api", "osd/osd-api-fr"},
		PullAccountIds:  []string{"222222222222"},
	})

	template := assertions.Template_FromStack(stack.Stack, nil)
	template.ResourceCountIs(jsii.String("AWS::ECR::Repository"), jsii.Number(2))
	template.HasResourceProperties(jsii.String("AWS::ECR::Repository"), map[string]interface{}{
		"RepositoryName":             "osd/osd-api-fr",
		"ImageScanningConfiguration": map[string]interface{}{"ScanOnPush": true},
	})
}

func TestDomainStackCrossAccountDelegationNeedsRole(t *testing.T) {
	assert := assert.New(t)
	app := awscdk.NewApp(nil)

	infra := testInfra("fr", "prd")
	infra.Config.Domain.HostedZoneId = ""
	infra.Config.Domain.ParentHostedZoneId = "Z9876543210"

	_, err := NewDomainStack(app, "DomainStack", &DomainStackProps{Infra: infra})
	if assert.Error(err) {
		assert.Contains(err.Error(), "delegation_role_arn")
	}
}
