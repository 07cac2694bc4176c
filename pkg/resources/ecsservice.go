package resources

import (
	"sort"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapplicationautoscaling"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/naming"
)

type EcsServiceProps struct {
	Vpc            awsec2.IVpc
	SecurityGroups []awsec2.ISecurityGroup
	Cluster        awsecs.Cluster
	Service        config.EcsServiceConfig
	// Environment is merged into every container's environment.
	Environment map[string]string
	Secrets     map[string]awsecs.Secret
	// ImageURI overrides the configured container image when set.
	ImageURI string
}

// EcsService is a Fargate service with its task definition, containers,
// Service Connect registration and auto scaling policies.
type EcsService struct {
	Service awsecs.FargateService
}

func NewEcsService(scope constructs.Construct, id string, props *EcsServiceProps) *EcsService {
	cons := constructs.NewConstruct(scope, jsii.String(id))
	cfg := props.Service

	zap.S().Debugf("creating ecs service %s", cfg)

	taskDefinition := newTaskDefinition(cons, cfg)
	for _, container := range cfg.Containers {
		newContainerDefinition(cons, taskDefinition, container, props)
	}
	service := newFargateService(cons, taskDefinition, props)

	return &EcsService{Service: service}
}

// AttachToTargetGroup links the service to an ALB target group through the
// L1 resource. Going through the L1 avoids the ingress rules the L2 adds to
// the shared security group, and the listener dependency makes sure the
// target group is linked before the service starts.
func (s *EcsService) AttachToTargetGroup(
	targetGroup awselasticloadbalancingv2.IApplicationTargetGroup,
	containerName string,
	containerPort int,
	listener awselasticloadbalancingv2.ApplicationListener,
) {
	cfnService, ok := s.Service.Node().DefaultChild().(awsecs.CfnService)
	if !ok {
		return
	}
	cfnService.SetLoadBalancers([]interface{}{
		&awsecs.CfnService_LoadBalancerProperty{
			ContainerName:  jsii.String(containerName),
			ContainerPort:  jsii.Number(containerPort),
			TargetGroupArn: targetGroup.TargetGroupArn(),
		},
	})
	cfnService.Node().AddDependency(listener)
}

func newTaskDefinition(cons constructs.Construct, cfg config.EcsServiceConfig) awsecs.FargateTaskDefinition {
	executionRole := awsiam.NewRole(cons, jsii.String("ExecutionRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("ecs-tasks.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("AmazonEC2ContainerRegistryReadOnly")),
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/AmazonECSTaskExecutionRolePolicy")),
		},
	})
	executionRole.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    awsiam.Effect_ALLOW,
		Actions:   jsii.Strings("secretsmanager:*"),
		Resources: jsii.Strings("*"),
	}))
	executionRole.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    awsiam.Effect_ALLOW,
		Actions:   jsii.Strings("kms:*"),
		Resources: jsii.Strings("*"),
	}))

	// TODO: replace with per-service policies (s3 access for osd-api only).
	taskRole := awsiam.NewRole(cons, jsii.String("TaskRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("ecs-tasks.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("AdministratorAccess")),
		},
	})

	return awsecs.NewFargateTaskDefinition(cons, jsii.String("TaskDefinition"), &awsecs.FargateTaskDefinitionProps{
		Cpu:            jsii.Number(cfg.Cpu),
		MemoryLimitMiB: jsii.Number(cfg.Memory),
		ExecutionRole:  executionRole,
		TaskRole:       taskRole,
	})
}

func newContainerDefinition(
	cons constructs.Construct,
	taskDefinition awsecs.FargateTaskDefinition,
	container config.ContainerDefinitionConfig,
	props *EcsServiceProps,
) awsecs.ContainerDefinition {
	portMappings := make([]*awsecs.PortMapping, 0, len(container.PortMappings))
	for _, pm := range container.PortMappings {
		portMappings = append(portMappings, &awsecs.PortMapping{
			Name:          jsii.String(pm.Name),
			ContainerPort: jsii.Number(pm.ContainerPort),
			HostPort:      jsii.Number(pm.ContainerPort),
			AppProtocol:   appProtocol(pm.AppProtocol),
		})
	}

	environment := make(map[string]*string, len(container.Environment)+len(props.Environment))
	for k, v := range container.Environment {
		environment[k] = jsii.String(v)
	}
	for k, v := range props.Environment {
		environment[k] = jsii.String(v)
	}

	var secrets *map[string]awsecs.Secret
	if len(props.Secrets) > 0 {
		secrets = &props.Secrets
	}

	image := container.Image
	if props.ImageURI != "" {
		image = props.ImageURI
	}

	hc := container.HealthCheck
	return awsecs.NewContainerDefinition(cons, jsii.String("Container"+naming.ToPascal(container.ContainerName)), &awsecs.ContainerDefinitionProps{
		TaskDefinition: taskDefinition,
		ContainerName:  jsii.String(container.ContainerName),
		Image:          awsecs.ContainerImage_FromRegistry(jsii.String(image), nil),
		PortMappings:   &portMappings,
		Environment:    &environment,
		Secrets:        secrets,
		HealthCheck: &awsecs.HealthCheck{
			Command:     jsii.Strings(hc.Command...),
			Interval:    awscdk.Duration_Seconds(jsii.Number(hc.Interval)),
			Timeout:     awscdk.Duration_Seconds(jsii.Number(hc.Timeout)),
			Retries:     jsii.Number(hc.Retries),
			StartPeriod: awscdk.Duration_Seconds(jsii.Number(hc.StartPeriod)),
		},
		Logging: awsecs.LogDrivers_AwsLogs(&awsecs.AwsLogDriverProps{
			StreamPrefix: jsii.String(container.ContainerName),
			LogRetention: awslogs.RetentionDays_ONE_MONTH,
		}),
	})
}

func newFargateService(
	cons constructs.Construct,
	taskDefinition awsecs.FargateTaskDefinition,
	props *EcsServiceProps,
) awsecs.FargateService {
	cfg := props.Service

	serviceProps := &awsecs.FargateServiceProps{
		Cluster:        props.Cluster,
		SecurityGroups: &props.SecurityGroups,
		TaskDefinition: taskDefinition,
		VpcSubnets: &awsec2.SubnetSelection{
			SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
		},
		PropagateTags:        awsecs.PropagatedTagSource_TASK_DEFINITION,
		DesiredCount:         jsii.Number(cfg.DesiredCount),
		EnableExecuteCommand: jsii.Bool(true),
	}

	if len(cfg.CapacityProviderStrategies) > 0 {
		strategies := make([]*awsecs.CapacityProviderStrategy, 0, len(cfg.CapacityProviderStrategies))
		for _, s := range cfg.CapacityProviderStrategies {
			strategies = append(strategies, &awsecs.CapacityProviderStrategy{
				CapacityProvider: jsii.String(s.CapacityProvider),
				Base:             jsii.Number(s.Base),
				Weight:           jsii.Number(s.Weight),
			})
		}
		serviceProps.CapacityProviderStrategies = &strategies
	}

	service := awsecs.NewFargateService(cons, jsii.String("EcsService"), serviceProps)

	if len(cfg.ServiceConnectServices) > 0 {
		connectServices := make([]*awsecs.ServiceConnectService, 0, len(cfg.ServiceConnectServices))
		for _, scs := range cfg.ServiceConnectServices {
			connectServices = append(connectServices, &awsecs.ServiceConnectService{
				PortMappingName:   jsii.String(scs.PortMappingName),
				DnsName:           jsii.String(scs.DNSName),
				Port:              jsii.Number(scs.Port),
				PerRequestTimeout: awscdk.Duration_Seconds(jsii.Number(60)),
			})
		}
		service.EnableServiceConnect(&awsecs.ServiceConnectProps{
			Namespace: props.Cluster.DefaultCloudMapNamespace().NamespaceName(),
			Services:  &connectServices,
		})
	}

	if cfg.AutoScaling != nil {
		addAutoScaling(service, *cfg.AutoScaling)
	}

	return service
}

func addAutoScaling(service awsecs.FargateService, scaling config.AutoScalingConfig) {
	target := service.AutoScaleTaskCount(&awsapplicationautoscaling.EnableScalingProps{
		MinCapacity: jsii.Number(scaling.MinCapacity),
		MaxCapacity: jsii.Number(scaling.MaxCapacity),
	})
	if scaling.CpuTarget > 0 {
		target.ScaleOnCpuUtilization(jsii.String("CpuScaling"), &awsecs.CpuUtilizationScalingProps{
			TargetUtilizationPercent: jsii.Number(scaling.CpuTarget),
			ScaleInCooldown:          awscdk.Duration_Seconds(jsii.Number(scaling.CpuScaleInCooldown)),
			ScaleOutCooldown:         awscdk.Duration_Seconds(jsii.Number(scaling.CpuScaleOutCooldown)),
		})
	}
	if scaling.MemoryTarget > 0 {
		target.ScaleOnMemoryUtilization(jsii.String("MemoryScaling"), &awsecs.MemoryUtilizationScalingProps{
			TargetUtilizationPercent: jsii.Number(scaling.MemoryTarget),
			ScaleInCooldown:          awscdk.Duration_Seconds(jsii.Number(scaling.MemoryScaleInCooldown)),
			ScaleOutCooldown:         awscdk.Duration_Seconds(jsii.Number(scaling.MemoryScaleOutCooldown)),
		})
	}
}

func appProtocol(protocol string) awsecs.AppProtocol {
	switch protocol {
	case "http2":
		return awsecs.AppProtocol_Http2()
	case "grpc":
		return awsecs.AppProtocol_Grpc()
	default:
		return awsecs.AppProtocol_Http()
	}
}

// SortedServiceNames returns the configured service names in a stable order
// so synthesized templates do not churn between runs.
func SortedServiceNames(services map[string]config.EcsServiceConfig) []string {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
