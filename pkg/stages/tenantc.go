package stages

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/osdcloud/osd-infra/pkg/resources"
	"github.com/osdcloud/osd-infra/pkg/stacks"
)

// NewTenantCStage extends the platform with the extra data and archive
// buckets the C tenant contract requires.
func NewTenantCStage(scope constructs.Construct, id string, props *PlatformStageProps) (*PlatformStage, error) {
	stage, err := NewPlatformStage(scope, id, props)
	if err != nil {
		return nil, err
	}

	extra := stacks.NewExtraBucketStack(stage, "ExtraBucketStack", &stacks.ExtraBucketStackProps{
		StackProps: awscdk.StackProps{
			Env: &awscdk.Environment{
				Account: jsii.String(props.Infra.Config.Aws.Account),
				Region:  jsii.String(props.Infra.Config.Aws.Region),
			},
		},
		Infra: props.Infra,
	})
	awscdk.Aspects_Of(extra).Add(&resources.BucketNamingAspect{}, nil)

	return stage, nil
}
