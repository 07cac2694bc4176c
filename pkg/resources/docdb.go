package resources

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdocdb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
)

type DocDBClusterProps struct {
	Vpc                 awsec2.IVpc
	SecurityGroup       awsec2.ISecurityGroup
	LambdaSecurityGroup awsec2.ISecurityGroup
	DocDB               config.DocDBConfig
}

// DocDBCluster is a DocumentDB cluster in the isolated subnets with its
// master password managed by Secrets Manager through a custom resource.
type DocDBCluster struct {
	Cluster  awsdocdb.DatabaseCluster
	Endpoint *string
	Port     *string
	// SecretArn points at the Secrets Manager managed master user secret.
	SecretArn *string
}

func NewDocDBCluster(scope constructs.Construct, id string, props *DocDBClusterProps) *DocDBCluster {
	cons := constructs.NewConstruct(scope, jsii.String(id))
	cfg := props.DocDB

	zap.S().Debugf("creating docdb cluster (instance type: %s)", cfg.DbInstanceType)

	cluster := awsdocdb.NewDatabaseCluster(cons, jsii.String("Cluster"), &awsdocdb.DatabaseClusterProps{
		MasterUser: &awsdocdb.Login{
			Username: jsii.String(cfg.MasterUsername),
			// These characters break connection strings.
			ExcludeCharacters: jsii.String(`"@/:`),
		},
		InstanceType:  awsec2.NewInstanceType(jsii.String(cfg.DbInstanceType)),
		Vpc:           props.Vpc,
		VpcSubnets:    &awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED},
		SecurityGroup: props.SecurityGroup,
		Backup: &awsdocdb.BackupProps{
			Retention: awscdk.Duration_Days(jsii.Number(cfg.BackupRetention)),
		},
		StorageEncrypted:               jsii.Bool(cfg.StorageEncrypted),
		CopyTagsToSnapshot:             jsii.Bool(true),
		RemovalPolicy:                  awscdk.RemovalPolicy_SNAPSHOT,
		ExportAuditLogsToCloudWatch:    jsii.Bool(true),
		ExportProfilerLogsToCloudWatch: jsii.Bool(true),
	})

	// Snapshot restore is only exposed on the L1 resource.
	if cfg.SnapshotIdentifier != "" {
		zap.S().Infof("restoring docdb cluster from snapshot %s", cfg.SnapshotIdentifier)
		if cfnCluster, ok := cluster.Node().DefaultChild().(awsdocdb.CfnDBCluster); ok {
			cfnCluster.SetSnapshotIdentifier(jsii.String(cfg.SnapshotIdentifier))
		}
	}

	secretArn := newManagedPasswordSecretArn(cons, "ManagedPassword", &managedPasswordProps{
		Vpc:           props.Vpc,
		SecurityGroup: props.LambdaSecurityGroup,
		Properties: map[string]interface{}{
			"ClusterId":  cluster.ClusterIdentifier(),
			"InstanceId": (*cluster.InstanceIdentifiers())[0],
		},
		DependsOn: []constructs.IConstruct{cluster},
	})

	return &DocDBCluster{
		Cluster:   cluster,
		Endpoint:  cluster.ClusterEndpoint().Hostname(),
		Port:      cluster.ClusterEndpoint().PortAsString(),
		SecretArn: secretArn,
	}
}
