package stages

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/stacks"
)

const repositoryBaseName = "osd"

// defaultRepositoryNames are the registries shared by every tenant. The
// tenant specific api repositories are added on top.
var defaultRepositoryNames = []string{
	repositoryBaseName + "/osd-api",
	repositoryBaseName + "/xslt-processor",
	repositoryBaseName + "/keycloak",
	repositoryBaseName + "/fonto/review",
	repositoryBaseName + "/fonto/content-quality",
	repositoryBaseName + "/fonto/document-history",
}

type SharedStageProps struct {
	awscdk.StageProps
	// TenantNames get a dedicated "osd/osd-api-<tenant>" repository each.
	TenantNames []string
	// PullAccountIds are the tenant accounts allowed to pull from the
	// shared registries.
	PullAccountIds []string
	Account        string
	Region         string
}

// SharedStage deploys the resources shared by all tenants, currently the
// container registries in the main account.
type SharedStage struct {
	awscdk.Stage
}

func NewSharedStage(scope constructs.Construct, id string, props *SharedStageProps) *SharedStage {
	stage := awscdk.NewStage(scope, jsii.String(id), &props.StageProps)

	zap.S().Infof("creating shared stage %s for tenants %v", id, props.TenantNames)

	names := make([]string, 0, len(props.TenantNames)+len(defaultRepositoryNames))
	for _, tenant := range props.TenantNames {
		names = append(names, fmt.Sprintf("%s/osd-api-%s", repositoryBaseName, tenant))
	}
	names = append(names, defaultRepositoryNames...)

	stacks.NewEcrRepositoryStack(stage, "EcrRepositoriesStack", &stacks.EcrRepositoryStackProps{
		StackProps: awscdk.StackProps{
			Env: &awscdk.Environment{
				Account: jsii.String(props.Account),
				Region:  jsii.String(props.Region),
			},
		},
		RepositoryNames: names,
		PullAccountIds:  props.PullAccountIds,
	})

	return &SharedStage{Stage: stage}
}
