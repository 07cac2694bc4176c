package stacks

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecr"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/naming"
)

type EcrRepositoryStackProps struct {
	awscdk.StackProps
	// RepositoryNames are the full repository paths, e.g. "osd/osd-api-fr".
	RepositoryNames []string
	// PullAccountIds are the tenant accounts allowed to pull images.
	PullAccountIds []string
}

// EcrRepositoryStack holds the container registries shared by every tenant.
// It deploys once, in the main account.
type EcrRepositoryStack struct {
	awscdk.Stack
	Repositories map[string]awsecr.Repository
}

func NewEcrRepositoryStack(scope constructs.Construct, id string, props *EcrRepositoryStackProps) *EcrRepositoryStack {
	stack := awscdk.NewStack(scope, jsii.String(id), &props.StackProps)

	zap.S().Infof("creating ecr repository stack with %d repositories", len(props.RepositoryNames))

	repositories := make(map[string]awsecr.Repository, len(props.RepositoryNames))
	for _, name := range props.RepositoryNames {
		repository := awsecr.NewRepository(stack, jsii.String("EcrRepository"+naming.ToPascal(name)),
			&awsecr.RepositoryProps{
				RepositoryName:  jsii.String(name),
				ImageScanOnPush: jsii.Bool(true),
				Encryption:      awsecr.RepositoryEncryption_AES_256(),
				RemovalPolicy:   awscdk.RemovalPolicy_DESTROY,
				EmptyOnDelete:   jsii.Bool(true),
			})
		if len(props.PullAccountIds) > 0 {
			allowCrossAccountPull(repository, props.PullAccountIds)
		}
		repositories[name] = repository
	}

	return &EcrRepositoryStack{Stack: stack, Repositories: repositories}
}

func allowCrossAccountPull(repository awsecr.Repository, accountIds []string) {
	principals := make([]awsiam.IPrincipal, 0, len(accountIds))
	for _, account := range accountIds {
		principals = append(principals,
			awsiam.NewArnPrincipal(jsii.String(fmt.Sprintf("arn:aws:iam::%s:root", account))))
	}
	repository.AddToResourcePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Sid:        jsii.String("CrossAccountPull"),
		Effect:     awsiam.Effect_ALLOW,
		Principals: &principals,
		Actions: jsii.Strings(
			"ecr:BatchCheckLayerAvailability",
			"ecr:BatchGetImage",
			"ecr:GetDownloadUrlForLayer",
		),
	}))
}
