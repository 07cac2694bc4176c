package resources

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	elbv2 "github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/naming"
)

// ALB logs replicate to the central monitoring account.
const (
	albLogReplicationBucketArn = "arn:aws:s3:::alb-logs-monitoring-org"
	albLogReplicationAccountID = "000000000000"

	albAccessLogPrefix     = "osd/alb-access-logs"
	albConnectionLogPrefix = "osd/alb-connection-logs"
)

// Office and VPN source ranges allowed to reach Keycloak on dev tiers.
var keycloakDevSourceIps = []string{
	"194.230.73.32/29",
	"194.158.244.90/32",
	"212.203.79.34/32",
	"194.158.251.199/32",
}

type AlbTargetGroupsProps struct {
	Vpc               awsec2.IVpc
	SecurityGroup     awsec2.ISecurityGroup
	AlbCertificateArn *string
	Alb               config.AlbConfig
	Domain            config.DomainConfig
	Context           naming.Context
}

// AlbTargetGroups is the application load balancer with its HTTPS listener
// rules and the IP-based target groups the ECS services attach to.
type AlbTargetGroups struct {
	Alb                 elbv2.ApplicationLoadBalancer
	TargetGroupOsdApi   elbv2.ApplicationTargetGroup
	TargetGroupKeycloak elbv2.ApplicationTargetGroup
	HttpsListener       elbv2.ApplicationListener
	LogBucket           awss3.Bucket
}

func NewAlbTargetGroups(scope constructs.Construct, id string, props *AlbTargetGroupsProps) *AlbTargetGroups {
	cons := constructs.NewConstruct(scope, jsii.String(id))

	logBucket := newAlbLogBucket(cons, props.Alb.EnableLogReplication)
	alb := newLoadBalancer(cons, props)
	osdApi := newTargetGroup(cons, "TargetGroupOsdApi", props.Vpc, props.Alb.TargetGroupOsdAPI)
	keycloak := newTargetGroup(cons, "TargetGroupKeycloak", props.Vpc, props.Alb.TargetGroupKeycloak)

	tg := &AlbTargetGroups{
		Alb:                 alb,
		TargetGroupOsdApi:   osdApi,
		TargetGroupKeycloak: keycloak,
		LogBucket:           logBucket,
	}
	tg.createListeners(cons, props)

	allowAlbLogDelivery(logBucket)
	alb.LogAccessLogs(logBucket, jsii.String(albAccessLogPrefix))
	alb.LogConnectionLogs(logBucket, jsii.String(albConnectionLogPrefix))

	if props.Alb.EnableLogReplication {
		configureLogReplication(cons, logBucket)
	}

	return tg
}

func newAlbLogBucket(cons constructs.Construct, replicated bool) awss3.Bucket {
	lifecycleRules := []*awss3.LifecycleRule{
		{
			Id:         jsii.String("DeleteOldLogs"),
			Expiration: awscdk.Duration_Days(jsii.Number(90)),
			Enabled:    jsii.Bool(true),
		},
	}
	// Versioning is required for cross-account replication; expire old
	// versions so the bucket does not bloat.
	if replicated {
		lifecycleRules = append(lifecycleRules, &awss3.LifecycleRule{
			Id:                          jsii.String("DeleteOldVersions"),
			NoncurrentVersionExpiration: awscdk.Duration_Days(jsii.Number(30)),
			Enabled:                     jsii.Bool(true),
		})
	}

	return awss3.NewBucket(cons, jsii.String("AlbLogBucket"), &awss3.BucketProps{
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		EnforceSSL:        jsii.Bool(true),
		Versioned:         jsii.Bool(replicated),
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		AutoDeleteObjects: jsii.Bool(true),
		LifecycleRules:    &lifecycleRules,
	})
}

func newLoadBalancer(cons constructs.Construct, props *AlbTargetGroupsProps) elbv2.ApplicationLoadBalancer {
	subnetType := awsec2.SubnetType_PRIVATE_WITH_EGRESS
	if props.Alb.InternetFacing {
		subnetType = awsec2.SubnetType_PUBLIC
	}
	return elbv2.NewApplicationLoadBalancer(cons, jsii.String("ALB"), &elbv2.ApplicationLoadBalancerProps{
		Vpc:            props.Vpc,
		VpcSubnets:     &awsec2.SubnetSelection{SubnetType: subnetType},
		SecurityGroup:  props.SecurityGroup,
		InternetFacing: jsii.Bool(props.Alb.InternetFacing),
	})
}

func newTargetGroup(cons constructs.Construct, id string, vpc awsec2.IVpc, cfg config.TargetGroupConfig) elbv2.ApplicationTargetGroup {
	return elbv2.NewApplicationTargetGroup(cons, jsii.String(id), &elbv2.ApplicationTargetGroupProps{
		Vpc:                 vpc,
		Port:                jsii.Number(cfg.Port),
		Protocol:            applicationProtocol(cfg.Protocol),
		TargetType:          elbv2.TargetType_IP,
		DeregistrationDelay: awscdk.Duration_Seconds(jsii.Number(cfg.DeregistrationDelay)),
		HealthCheck: &elbv2.HealthCheck{
			Enabled:                 jsii.Bool(true),
			Path:                    jsii.String(cfg.HealthCheck.Path),
			Port:                    jsii.String(cfg.HealthCheck.Port),
			Protocol:                healthCheckProtocol(cfg.HealthCheck.Protocol),
			Interval:                awscdk.Duration_Seconds(jsii.Number(cfg.HealthCheck.Interval)),
			Timeout:                 awscdk.Duration_Seconds(jsii.Number(cfg.HealthCheck.Timeout)),
			HealthyThresholdCount:   jsii.Number(cfg.HealthCheck.Retries),
			UnhealthyThresholdCount: jsii.Number(cfg.HealthCheck.Retries),
			HealthyHttpCodes:        jsii.String(cfg.HealthCheck.SuccessCodes),
		},
		StickinessCookieDuration: awscdk.Duration_Days(jsii.Number(7)),
	})
}

func (t *AlbTargetGroups) createListeners(cons constructs.Construct, props *AlbTargetGroupsProps) {
	httpListener := t.Alb.AddListener(jsii.String("HTTPListener"), &elbv2.BaseApplicationListenerProps{
		Port: jsii.Number(80),
		Open: jsii.Bool(true),
	})
	httpListener.AddAction(jsii.String("RedirectToHTTPS"), &elbv2.AddApplicationActionProps{
		Action: elbv2.ListenerAction_Redirect(&elbv2.RedirectOptions{
			Protocol:  jsii.String("HTTPS"),
			Port:      jsii.String("443"),
			Permanent: jsii.Bool(true),
		}),
	})

	certificate := awscertificatemanager.Certificate_FromCertificateArn(
		cons, jsii.String("ImportedCertificate"), props.AlbCertificateArn)

	t.HttpsListener = t.Alb.AddListener(jsii.String("HTTPSListener"), &elbv2.BaseApplicationListenerProps{
		Port:         jsii.Number(443),
		Open:         jsii.Bool(true),
		Protocol:     elbv2.ApplicationProtocol_HTTPS,
		Certificates: &[]elbv2.IListenerCertificate{certificate},
		DefaultAction: elbv2.ListenerAction_FixedResponse(jsii.Number(404), &elbv2.FixedResponseOptions{
			ContentType: jsii.String("text/plain"),
			MessageBody: jsii.String("Not Found"),
		}),
		SslPolicy: elbv2.SslPolicy_RECOMMENDED_TLS,
	})

	t.HttpsListener.AddAction(jsii.String("OsdApiRule"), &elbv2.AddApplicationActionProps{
		Priority: jsii.Number(1),
		Conditions: &[]elbv2.ListenerCondition{
			elbv2.ListenerCondition_HostHeaders(jsii.Strings(props.Domain.ApiDomainName())),
		},
		Action: elbv2.ListenerAction_Forward(&[]elbv2.IApplicationTargetGroup{t.TargetGroupOsdApi}, nil),
	})

	if props.Context.IsDev() {
		t.addRestrictedKeycloakRules(props)
	} else {
		t.HttpsListener.AddAction(jsii.String("KeycloakRule"), &elbv2.AddApplicationActionProps{
			Priority: jsii.Number(2),
			Conditions: &[]elbv2.ListenerCondition{
				elbv2.ListenerCondition_HostHeaders(jsii.Strings(props.Domain.SsoDomainName())),
			},
			Action: elbv2.ListenerAction_Forward(&[]elbv2.IApplicationTargetGroup{t.TargetGroupKeycloak}, nil),
		})
	}
}

// addRestrictedKeycloakRules limits the Keycloak host to known source
// ranges on dev tiers: the office/VPN allowlist, the stage's own NAT EIPs
// (so in-cluster calls still work), and a 403 for everyone else.
func (t *AlbTargetGroups) addRestrictedKeycloakRules(props *AlbTargetGroupsProps) {
	ssoHost := jsii.Strings(props.Domain.SsoDomainName())

	t.HttpsListener.AddAction(jsii.String("KeycloakRuleSourceIps"), &elbv2.AddApplicationActionProps{
		Priority: jsii.Number(3),
		Conditions: &[]elbv2.ListenerCondition{
			elbv2.ListenerCondition_HostHeaders(ssoHost),
			elbv2.ListenerCondition_SourceIps(jsii.Strings(keycloakDevSourceIps...)),
		},
		Action: elbv2.ListenerAction_Forward(&[]elbv2.IApplicationTargetGroup{t.TargetGroupKeycloak}, nil),
	})

	if eips := natEips(props.Vpc); len(eips) > 0 {
		t.HttpsListener.AddAction(jsii.String("KeycloakRuleSourceIpsNatEip"), &elbv2.AddApplicationActionProps{
			Priority: jsii.Number(4),
			Conditions: &[]elbv2.ListenerCondition{
				elbv2.ListenerCondition_HostHeaders(ssoHost),
				elbv2.ListenerCondition_SourceIps(jsii.Strings(eips...)),
			},
			Action: elbv2.ListenerAction_Forward(&[]elbv2.IApplicationTargetGroup{t.TargetGroupKeycloak}, nil),
		})
	}

	t.HttpsListener.AddAction(jsii.String("KeycloakDenyOthers"), &elbv2.AddApplicationActionProps{
		Priority: jsii.Number(99),
		Conditions: &[]elbv2.ListenerCondition{
			elbv2.ListenerCondition_HostHeaders(ssoHost),
		},
		Action: elbv2.ListenerAction_FixedResponse(jsii.Number(403), &elbv2.FixedResponseOptions{
			ContentType: jsii.String("text/plain"),
			MessageBody: jsii.String("Forbidden"),
		}),
	})
}

func natEips(vpc awsec2.IVpc) []string {
	var eips []string
	for _, subnet := range *vpc.PublicSubnets() {
		child := subnet.Node().TryFindChild(jsii.String("EIP"))
		if eip, ok := child.(awsec2.CfnEIP); ok {
			eips = append(eips, *eip.AttrPublicIp()+"/32")
		}
	}
	return eips
}

func allowAlbLogDelivery(bucket awss3.Bucket) {
	bucket.AddToResourcePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:     awsiam.Effect_ALLOW,
		Principals: &[]awsiam.IPrincipal{awsiam.NewServicePrincipal(jsii.String("elasticloadbalancing.amazonaws.com"), nil)},
		Actions:    jsii.Strings("s3:PutObject"),
		Resources:  jsii.Strings(*bucket.BucketArn() + "/*"),
		Conditions: &map[string]interface{}{
			"StringEquals": map[string]interface{}{
				"s3:x-amz-acl": "bucket-owner-full-control",
			},
		},
	}))
}

// configureLogReplication replicates both log prefixes to the monitoring
// account, with ownership handed over to the destination.
func configureLogReplication(cons constructs.Construct, bucket awss3.Bucket) {
	zap.S().Debug("configuring alb log replication to the monitoring account")

	role := awsiam.NewRole(cons, jsii.String("AlbLogReplicationRole"), &awsiam.RoleProps{
		AssumedBy:   awsiam.NewServicePrincipal(jsii.String("s3.amazonaws.com"), nil),
		Description: jsii.String("Role for ALB log bucket replication to monitoring account"),
	})
	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions:   jsii.Strings("s3:GetReplicationConfiguration", "s3:ListBucket"),
		Resources: &[]*string{bucket.BucketArn()},
	}))
	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: jsii.Strings(
			"s3:GetObjectVersion",
			"s3:GetObjectVersionForReplication",
			"s3:GetObjectVersionAcl",
			"s3:GetObjectVersionTagging",
		),
		Resources: jsii.Strings(*bucket.BucketArn() + "/*"),
	}))
	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: jsii.Strings(
			"s3:ReplicateObject",
			"s3:ReplicateDelete",
			"s3:ReplicateTags",
			"s3:ObjectOwnerOverrideToBucketOwner",
		),
		Resources: jsii.Strings(albLogReplicationBucketArn + "/*"),
	}))

	cfnBucket, ok := bucket.Node().DefaultChild().(awss3.CfnBucket)
	if !ok {
		return
	}
	cfnBucket.SetReplicationConfiguration(&awss3.CfnBucket_ReplicationConfigurationProperty{
		Role: role.RoleArn(),
		Rules: []interface{}{
			replicationRule("ReplicateAccessLogs", 1, albAccessLogPrefix),
			replicationRule("ReplicateConnectionLogs", 2, albConnectionLogPrefix),
		},
	})
}

func replicationRule(id string, priority int, prefix string) *awss3.CfnBucket_ReplicationRuleProperty {
	return &awss3.CfnBucket_ReplicationRuleProperty{
		Id:       jsii.String(id),
		Priority: jsii.Number(priority),
		Status:   jsii.String("Enabled"),
		Filter: &awss3.CfnBucket_ReplicationRuleFilterProperty{
			Prefix: jsii.String(prefix),
		},
		DeleteMarkerReplication: &awss3.CfnBucket_DeleteMarkerReplicationProperty{
			Status: jsii.String("Disabled"),
		},
		Destination: &awss3.CfnBucket_ReplicationDestinationProperty{
			Bucket:  jsii.String(albLogReplicationBucketArn),
			Account: jsii.String(albLogReplicationAccountID),
			AccessControlTranslation: &awss3.CfnBucket_AccessControlTranslationProperty{
				Owner: jsii.String("Destination"),
			},
		},
	}
}

func applicationProtocol(protocol string) elbv2.ApplicationProtocol {
	if protocol == "HTTPS" {
		return elbv2.ApplicationProtocol_HTTPS
	}
	return elbv2.ApplicationProtocol_HTTP
}

func healthCheckProtocol(protocol string) elbv2.Protocol {
	if protocol == "HTTPS" {
		return elbv2.Protocol_HTTPS
	}
	return elbv2.Protocol_HTTP
}
