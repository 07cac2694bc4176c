package resources

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsrds"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
)

type AuroraClusterProps struct {
	Vpc                 awsec2.IVpc
	SecurityGroup       awsec2.ISecurityGroup
	LambdaSecurityGroup awsec2.ISecurityGroup
	Aurora              config.AuroraClusterConfig
}

// AuroraCluster is a serverless-v2 Aurora cluster whose master password is
// handed over to Secrets Manager by a custom resource after creation.
type AuroraCluster struct {
	Cluster awsrds.IDatabaseCluster
	// Secret is the Secrets Manager managed master user secret.
	Secret awssecretsmanager.ISecret
	// JdbcUrl points at the writer endpoint of the default database.
	JdbcUrl *string
}

func NewAuroraCluster(scope constructs.Construct, id string, props *AuroraClusterProps) *AuroraCluster {
	cons := constructs.NewConstruct(scope, jsii.String(id))
	cfg := props.Aurora

	zap.S().Debugf("creating aurora cluster (engine: %s, readers: %d)", cfg.Engine, cfg.InstanceReaderCount)

	subnetGroup := awsrds.NewSubnetGroup(cons, jsii.String("SubnetGroup"), &awsrds.SubnetGroupProps{
		Description:   jsii.String("Aurora cluster subnet group"),
		Vpc:           props.Vpc,
		VpcSubnets:    &awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED},
		RemovalPolicy: awscdk.RemovalPolicy_DESTROY,
	})

	monitoringRole := awsiam.NewRole(cons, jsii.String("MonitoringRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("monitoring.rds.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/AmazonRDSEnhancedMonitoringRole")),
		},
	})

	writer := awsrds.ClusterInstance_ServerlessV2(jsii.String("Writer"), &awsrds.ServerlessV2ClusterInstanceProps{
		EnablePerformanceInsights: jsii.Bool(true),
	})
	readers := make([]awsrds.IClusterInstance, 0, cfg.InstanceReaderCount)
	for i := 0; i < cfg.InstanceReaderCount; i++ {
		readers = append(readers, awsrds.ClusterInstance_ServerlessV2(
			jsii.String(fmt.Sprintf("Reader%d", i+1)),
			&awsrds.ServerlessV2ClusterInstanceProps{
				ScaleWithWriter:           jsii.Bool(true),
				EnablePerformanceInsights: jsii.Bool(true),
			}))
	}

	engine, parameterGroupName := auroraEngine(cfg.Engine)
	parameterGroup := awsrds.ParameterGroup_FromParameterGroupName(
		cons, jsii.String("ParameterGroup"), jsii.String(parameterGroupName))

	var cluster awsrds.DatabaseCluster
	if cfg.SnapshotIdentifier != "" {
		zap.S().Infof("restoring aurora cluster from snapshot %s", cfg.SnapshotIdentifier)
		cluster = awsrds.NewDatabaseClusterFromSnapshot(cons, jsii.String("Cluster"), &awsrds.DatabaseClusterFromSnapshotProps{
			Engine:                               engine,
			SnapshotIdentifier:                   jsii.String(cfg.SnapshotIdentifier),
			Vpc:                                  props.Vpc,
			VpcSubnets:                           &awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED},
			SecurityGroups:                       &[]awsec2.ISecurityGroup{props.SecurityGroup},
			SubnetGroup:                          subnetGroup,
			Writer:                               writer,
			Readers:                              &readers,
			ServerlessV2MinCapacity:              jsii.Number(cfg.ServerlessV2MinCapacity),
			ServerlessV2MaxCapacity:              jsii.Number(cfg.ServerlessV2MaxCapacity),
			DefaultDatabaseName:                  jsii.String(cfg.DefaultDatabaseName),
			Backup:                               &awsrds.BackupProps{Retention: awscdk.Duration_Days(jsii.Number(cfg.BackupRetention))},
			CloudwatchLogsExports:                auroraLogExports(),
			RemovalPolicy:                        awscdk.RemovalPolicy_SNAPSHOT,
			MonitoringInterval:                   awscdk.Duration_Seconds(jsii.Number(30)),
			MonitoringRole:                       monitoringRole,
			EnableClusterLevelEnhancedMonitoring: jsii.Bool(true),
			ParameterGroup:                       parameterGroup,
		})
	} else {
		cluster = awsrds.NewDatabaseCluster(cons, jsii.String("Cluster"), &awsrds.DatabaseClusterProps{
			Engine:                               engine,
			Vpc:                                  props.Vpc,
			VpcSubnets:                           &awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED},
			SecurityGroups:                       &[]awsec2.ISecurityGroup{props.SecurityGroup},
			SubnetGroup:                          subnetGroup,
			Writer:                               writer,
			Readers:                              &readers,
			ServerlessV2MinCapacity:              jsii.Number(cfg.ServerlessV2MinCapacity),
			ServerlessV2MaxCapacity:              jsii.Number(cfg.ServerlessV2MaxCapacity),
			DefaultDatabaseName:                  jsii.String(cfg.DefaultDatabaseName),
			Backup:                               &awsrds.BackupProps{Retention: awscdk.Duration_Days(jsii.Number(cfg.BackupRetention))},
			CloudwatchLogsExports:                auroraLogExports(),
			StorageEncrypted:                     jsii.Bool(true),
			RemovalPolicy:                        awscdk.RemovalPolicy_SNAPSHOT,
			MonitoringInterval:                   awscdk.Duration_Seconds(jsii.Number(30)),
			MonitoringRole:                       monitoringRole,
			EnableClusterLevelEnhancedMonitoring: jsii.Bool(true),
			ParameterGroup:                       parameterGroup,
		})
	}

	secretArn := newManagedPasswordSecretArn(cons, "ManagedPassword", &managedPasswordProps{
		Vpc:           props.Vpc,
		SecurityGroup: props.LambdaSecurityGroup,
		Properties: map[string]interface{}{
			"ClusterId": cluster.ClusterIdentifier(),
		},
		DependsOn: []constructs.IConstruct{cluster},
	})
	secret := awssecretsmanager.Secret_FromSecretCompleteArn(cons, jsii.String("ManagedSecret"), secretArn)

	jdbcUrl := jsii.String(fmt.Sprintf("jdbc:%s://%s/%s",
		cfg.Engine, *cluster.ClusterEndpoint().SocketAddress(), cfg.DefaultDatabaseName))

	return &AuroraCluster{Cluster: cluster, Secret: secret, JdbcUrl: jdbcUrl}
}

func auroraEngine(engine string) (awsrds.IClusterEngine, string) {
	if engine == "postgres" {
		return awsrds.DatabaseClusterEngine_AuroraPostgres(&awsrds.AuroraPostgresClusterEngineProps{
			Version: awsrds.AuroraPostgresEngineVersion_VER_16_6(),
		}), "default.aurora-postgresql16"
	}
	return awsrds.DatabaseClusterEngine_AuroraMysql(&awsrds.AuroraMysqlClusterEngineProps{
		Version: awsrds.AuroraMysqlEngineVersion_VER_3_08_0(),
	}), "default.aurora-mysql8.0"
}

func auroraLogExports() *[]*string {
	return jsii.Strings("audit", "error", "slowquery", "iam-db-auth-error")
}
