package resources

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/naming"
)

type EcsClusterProps struct {
	Vpc        awsec2.IVpc
	EcsCluster config.EcsClusterConfig
	Context    naming.Context
}

// NewEcsCluster creates the Fargate cluster with a spot-backed default
// capacity provider strategy and the Cloud Map namespace used by Service
// Connect.
func NewEcsCluster(scope constructs.Construct, id string, props *EcsClusterProps) awsecs.Cluster {
	cons := constructs.NewConstruct(scope, jsii.String(id))

	insights := awsecs.ContainerInsights_DISABLED
	if props.EcsCluster.ContainerInsights {
		insights = awsecs.ContainerInsights_ENHANCED
	}

	cluster := awsecs.NewCluster(cons, jsii.String("Cluster"), &awsecs.ClusterProps{
		Vpc:                            props.Vpc,
		ContainerInsightsV2:            insights,
		EnableFargateCapacityProviders: jsii.Bool(true),
	})

	cluster.AddDefaultCapacityProviderStrategy(&[]*awsecs.CapacityProviderStrategy{
		{CapacityProvider: jsii.String("FARGATE"), Base: jsii.Number(1), Weight: jsii.Number(1)},
		{CapacityProvider: jsii.String("FARGATE_SPOT"), Base: jsii.Number(0), Weight: jsii.Number(1)},
	})

	namespaceName := props.EcsCluster.Namespace
	if namespaceName == "" {
		namespaceName = props.Context.KebabPrefix("app") + ".local"
	}
	cluster.AddDefaultCloudMapNamespace(&awsecs.CloudMapNamespaceOptions{
		Name:                 jsii.String(namespaceName),
		Vpc:                  props.Vpc,
		UseForServiceConnect: jsii.Bool(true),
	})
	zap.S().Debugf("cloud map namespace: %s", namespaceName)

	return cluster
}
