package stacks

import (
	"context"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/imageref"
	"github.com/osdcloud/osd-infra/pkg/naming"
	"github.com/osdcloud/osd-infra/pkg/resources"
)

type ApplicationStackProps struct {
	awscdk.StackProps
	Vpc awsec2.IVpc

	AlbSecurityGroup       awsec2.ISecurityGroup
	OsdApiSecurityGroup    awsec2.ISecurityGroup
	KeycloakSecurityGroup  awsec2.ISecurityGroup
	EcsSharedSecurityGroup awsec2.ISecurityGroup

	HostedZone        awsroute53.IHostedZone
	AlbCertificateArn *string

	DocdbEndpoint  *string
	DocdbPort      *string
	DocdbSecretArn *string
	RedisEndpoint  *string
	AuroraSecret   awssecretsmanager.ISecret
	AuroraJdbcUrl  *string

	OsdStorageBucketName *string

	// ImageResolver is optional; without it (or without a published
	// pipeline image) the osd-api image comes from the node context or the
	// configured container image.
	ImageResolver *imageref.Resolver

	Infra *config.InfraContext
}

// ApplicationStack runs the ECS services behind the ALB and publishes the
// api and sso DNS records.
type ApplicationStack struct {
	awscdk.Stack
	Alb *resources.AlbTargetGroups
}

func NewApplicationStack(scope constructs.Construct, id string, props *ApplicationStackProps) (*ApplicationStack, error) {
	stack := awscdk.NewStack(scope, jsii.String(id), &props.StackProps)
	cfg := props.Infra.Config
	ctx := props.Infra.Context

	zap.S().Infof("creating application stack (environment: %s, tenant: %s)", ctx.EnvName, ctx.TenantName)

	alb := resources.NewAlbTargetGroups(stack, "AlbTargetGroups", &resources.AlbTargetGroupsProps{
		Vpc:               props.Vpc,
		SecurityGroup:     props.AlbSecurityGroup,
		AlbCertificateArn: props.AlbCertificateArn,
		Alb:               cfg.Alb,
		Domain:            cfg.Domain,
		Context:           ctx,
	})
	addAlbRecords(stack, props.HostedZone, alb, cfg.Domain)

	s := &ApplicationStack{Stack: stack, Alb: alb}

	if len(cfg.EcsServices) == 0 {
		zap.S().Warnf("no ecs services configured for %s/%s, skipping cluster creation",
			ctx.TenantName, ctx.EnvName)
		return s, nil
	}

	cluster := resources.NewEcsCluster(stack, "EcsCluster", &resources.EcsClusterProps{
		Vpc:        props.Vpc,
		EcsCluster: cfg.EcsCluster,
		Context:    ctx,
	})

	secret, err := ecsSecret(stack, cfg.Secrets, ctx)
	if err != nil {
		return nil, err
	}

	services := make(map[string]*resources.EcsService, len(cfg.EcsServices))
	for _, name := range resources.SortedServiceNames(cfg.EcsServices) {
		svc := cfg.EcsServices[name]
		switch name {
		case "keycloak":
			services[name] = newKeycloakService(stack, cluster, svc, secret, props)
		case "osd_api":
			services[name] = newOsdApiService(stack, cluster, svc, secret, props)
		default:
			services[name] = resources.NewEcsService(stack, naming.ToPascal(name)+"Service", &resources.EcsServiceProps{
				Vpc:            props.Vpc,
				SecurityGroups: []awsec2.ISecurityGroup{props.EcsSharedSecurityGroup},
				Cluster:        cluster,
				Service:        svc,
			})
		}
		services[name].Service.Node().AddDependency(cluster)
	}

	if osdApi, ok := services["osd_api"]; ok {
		osdApi.AttachToTargetGroup(alb.TargetGroupOsdApi, "osd-api", cfg.Alb.TargetGroupOsdAPI.Port, alb.HttpsListener)
	}
	if keycloak, ok := services["keycloak"]; ok {
		keycloak.AttachToTargetGroup(alb.TargetGroupKeycloak, "keycloak", cfg.Alb.TargetGroupKeycloak.Port, alb.HttpsListener)
	}

	orderServiceStartup(services)

	return s, nil
}

// addAlbRecords points the api and sso hosts at the load balancer.
func addAlbRecords(stack awscdk.Stack, zone awsroute53.IHostedZone, alb *resources.AlbTargetGroups, domain config.DomainConfig) {
	api := awsroute53.NewCnameRecord(stack, jsii.String("OsdApiRecord"), &awsroute53.CnameRecordProps{
		Zone:       zone,
		RecordName: jsii.String(domain.ApiDomainName()),
		DomainName: alb.Alb.LoadBalancerDnsName(),
		Ttl:        awscdk.Duration_Minutes(jsii.Number(5)),
	})
	sso := awsroute53.NewCnameRecord(stack, jsii.String("KeycloakRecord"), &awsroute53.CnameRecordProps{
		Zone:       zone,
		RecordName: jsii.String(domain.SsoDomainName()),
		DomainName: alb.Alb.LoadBalancerDnsName(),
		Ttl:        awscdk.Duration_Minutes(jsii.Number(5)),
	})

	awscdk.NewCfnOutput(stack, jsii.String("OsdApiRecordOutput"), &awscdk.CfnOutputProps{
		Value: api.DomainName(),
	})
	awscdk.NewCfnOutput(stack, jsii.String("KeycloakRecordOutput"), &awscdk.CfnOutputProps{
		Value: sso.DomainName(),
	})
}

// ecsSecret imports the tenant's application secret and checks its ARN names
// the right environment and tenant. The ARN crosses environment files by
// copy-paste, so a cheap sanity check here catches a wrong pairing before
// the services boot with another tenant's credentials.
func ecsSecret(stack awscdk.Stack, secrets config.SecretsConfig, ctx naming.Context) (awssecretsmanager.ISecret, error) {
	arn := secrets.SecretEcsCompleteArn
	if arn == "" {
		return nil, errors.New("secrets.secret_ecs_complete_arn is required when ecs services are configured")
	}
	lowered := strings.ToLower(arn)
	if !strings.Contains(lowered, strings.ToLower(ctx.EnvName)) ||
		!strings.Contains(lowered, strings.ToLower(ctx.TenantName)) {
		return nil, errors.Errorf("Secret ARN %s does not contain expected environment/tenant (%s/%s)",
			arn, ctx.EnvName, ctx.TenantName)
	}
	return awssecretsmanager.Secret_FromSecretCompleteArn(stack, jsii.String("EcsSecret"), jsii.String(arn)), nil
}

func newKeycloakService(
	stack awscdk.Stack,
	cluster awsecs.Cluster,
	svc config.EcsServiceConfig,
	ecsSecret awssecretsmanager.ISecret,
	props *ApplicationStackProps,
) *resources.EcsService {
	domain := props.Infra.Config.Domain
	front := "https://" + domain.FrontDomainName()
	api := "https://" + domain.ApiDomainName()
	sso := "https://" + domain.SsoDomainName()

	secrets := map[string]awsecs.Secret{
		"KC_DB_USERNAME": awsecs.Secret_FromSecretsManager(props.AuroraSecret, jsii.String("username")),
		"KC_DB_PASSWORD": awsecs.Secret_FromSecretsManager(props.AuroraSecret, jsii.String("password")),
	}
	for _, key := range []string{
		"KC_BOOTSTRAP_ADMIN_PASSWORD",
		"OSD_REALM_USERS_OSD_ADMIN_SECRET_DATA_SALT",
		"OSD_REALM_USERS_OSD_ADMIN_SECRET_DATA_VAULT",
		"OSD_REALM_SMTP_SERVER_USER",
		"OSD_REALM_SMTP_SERVER_PASSWORD",
		"OSD_REALM_OSD_CLIENT_CLIENT_SECRET",
		"MASTER_REALM_IDP_CLIENT_SECRET",
		"MASTER_REALM_SMTP_SERVER_USER",
		"MASTER_REALM_SMTP_SERVER_PASSWORD",
	} {
		secrets[key] = awsecs.Secret_FromSecretsManager(ecsSecret, jsii.String(key))
	}

	environment := map[string]string{
		"KC_DB_URL":         *props.AuroraJdbcUrl,
		"KC_HOSTNAME":       domain.SsoDomainName(),
		"KC_HEALTH_ENABLED": "true",

		"OSD_REALM_ATTRIBUTES_SSO_URL":      front,
		"OSD_REALM_ATTRIBUTES_FRONTEND_URL": sso,

		"OSD_REALM_OSD_CLIENT_ROOT_URL":       api,
		"OSD_REALM_OSD_CLIENT_REDIRECT_URI_1": api + "/*",
		"OSD_REALM_OSD_CLIENT_REDIRECT_URI_2": front + "/*",
		"OSD_REALM_OSD_CLIENT_ATTRIBUTES_POST_LOGOUT_REDIRECT_URIS": front + "/*##" + api + "/*##" + sso + "/*",
		"OSD_REALM_OSD_CLIENT_ADMIN_URL":                            front,
		"OSD_REALM_OSD_CLIENT_BASE_URL":                             front,
		"OSD_REALM_OSD_CLIENT_WEB_ORIGIN_1":                         front,
		"OSD_REALM_OSD_CLIENT_WEB_ORIGIN_2":                         sso,
	}

	return resources.NewEcsService(stack, "KeycloakService", &resources.EcsServiceProps{
		Vpc:            props.Vpc,
		SecurityGroups: []awsec2.ISecurityGroup{props.KeycloakSecurityGroup, props.EcsSharedSecurityGroup},
		Cluster:        cluster,
		Service:        svc,
		Environment:    environment,
		Secrets:        secrets,
	})
}

func newOsdApiService(
	stack awscdk.Stack,
	cluster awsecs.Cluster,
	svc config.EcsServiceConfig,
	ecsSecret awssecretsmanager.ISecret,
	props *ApplicationStackProps,
) *resources.EcsService {
	cfg := props.Infra.Config
	domain := cfg.Domain
	front := "https://" + domain.FrontDomainName()
	api := "https://" + domain.ApiDomainName()
	sso := "https://" + domain.SsoDomainName()

	environment := map[string]string{
		"DOCUMENTDB_PORT":      *props.DocdbPort,
		"DOCUMENTDB_HOST":      *props.DocdbEndpoint,
		"DOCUMENTDB_SECRET_ID": *props.DocdbSecretArn,

		"S3_OSD_BUCKET": *props.OsdStorageBucketName,
		"S3_OSD_REGION": cfg.Aws.Region,

		"SPRING_DATA_REDIS_HOST": *props.RedisEndpoint,

		"OSD_PLUGINS_AWS_CLOUD_SERVICES_REGION": cfg.Aws.Region,

		"SSO_FRONT_END_URL":     front,
		"SSO_APP_ROOT_URL":      api,
		"SSO_LOGOUT_URL":        sso + "/realms/osd/protocol/openid-connect/logout",
		"OSD_SPA_FRONT_END_URL": front,
		"OSD_SETTINGS_CMS_URL":  api,
		"SPRING_SECURITY_OAUTH2_CLIENT_PROVIDER_KEYCLOAK_ISSUER_URI": sso + "/realms/osd",
	}
	secrets := map[string]awsecs.Secret{
		"SPRING_SECURITY_OAUTH2_CLIENT_REGISTRATION_KEYCLOAK_CLIENT_SECRET": awsecs.Secret_FromSecretsManager(
			ecsSecret, jsii.String("OSD_REALM_OSD_CLIENT_CLIENT_SECRET")),
	}

	return resources.NewEcsService(stack, "OsdApiService", &resources.EcsServiceProps{
		Vpc:            props.Vpc,
		SecurityGroups: []awsec2.ISecurityGroup{props.OsdApiSecurityGroup, props.EcsSharedSecurityGroup},
		Cluster:        cluster,
		Service:        svc,
		Environment:    environment,
		Secrets:        secrets,
		ImageURI:       osdApiImage(stack, props),
	})
}

// osdApiImage resolves the api image in precedence order: pipeline parameter,
// node context, then whatever the environment file configured.
func osdApiImage(stack awscdk.Stack, props *ApplicationStackProps) string {
	if props.ImageResolver != nil {
		if uri := props.ImageResolver.EcrImageURI(context.Background(), "OsdApi", props.Infra.Context); uri != "" {
			return uri
		}
	}
	if v, ok := stack.Node().TryGetContext(jsii.String("ecr_image_osd_api_uri")).(string); ok {
		return v
	}
	return ""
}

// orderServiceStartup sequences deployments through Service Connect: the api
// waits for its upstream keycloak and xslt services, everything else waits
// for the api so its Service Connect endpoint exists before clients start.
func orderServiceStartup(services map[string]*resources.EcsService) {
	osdApi, ok := services["osd_api"]
	if !ok {
		return
	}
	for _, upstream := range []string{"keycloak", "xslt"} {
		if svc, present := services[upstream]; present {
			osdApi.Service.Node().AddDependency(svc.Service)
		}
	}
	for name, svc := range services {
		if name == "osd_api" || name == "keycloak" || name == "xslt" {
			continue
		}
		svc.Service.Node().AddDependency(osdApi.Service)
	}
}
