package resources

import (
	"regexp"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticache"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/naming"
)

type RedisClusterProps struct {
	Vpc           awsec2.IVpc
	SecurityGroup awsec2.ISecurityGroup
	Redis         config.RedisConfig
	Context       naming.Context
}

// RedisCluster is either an ElastiCache serverless cache or a classic Redis
// cluster, depending on configuration.
type RedisCluster struct {
	Endpoint *string
}

func NewRedisCluster(scope constructs.Construct, id string, props *RedisClusterProps) *RedisCluster {
	cons := constructs.NewConstruct(scope, jsii.String(id))
	cfg := props.Redis

	if cfg.ServerlessCacheEnabled {
		return &RedisCluster{Endpoint: newServerlessCache(cons, props)}
	}
	return &RedisCluster{Endpoint: newClassicCache(cons, props)}
}

func newServerlessCache(cons constructs.Construct, props *RedisClusterProps) *string {
	name := props.Redis.ServerlessCacheName
	if name == "" {
		name = CacheName(props.Context)
	}
	zap.S().Debugf("creating serverless redis cache %s", name)

	cache := awselasticache.NewCfnServerlessCache(cons, jsii.String("ServerlessRedisCluster"), &awselasticache.CfnServerlessCacheProps{
		Engine:                 jsii.String("redis"),
		ServerlessCacheName:    jsii.String(name),
		SubnetIds:              isolatedSubnetIds(props.Vpc),
		SecurityGroupIds:       &[]*string{props.SecurityGroup.SecurityGroupId()},
		SnapshotRetentionLimit: jsii.Number(props.Redis.BackupRetention),
	})
	return cache.AttrEndpointAddress()
}

func newClassicCache(cons constructs.Construct, props *RedisClusterProps) *string {
	cfg := props.Redis
	zap.S().Debugf("creating redis cluster (%d nodes, %s)", cfg.NumCacheNodes, cfg.CacheNodeType)

	subnetGroup := awselasticache.NewCfnSubnetGroup(cons, jsii.String("RedisSubnetGroup"), &awselasticache.CfnSubnetGroupProps{
		Description: jsii.String("Redis Subnet Group for Redis Cluster"),
		SubnetIds:   isolatedSubnetIds(props.Vpc),
	})

	cache := awselasticache.NewCfnCacheCluster(cons, jsii.String("RedisCluster"), &awselasticache.CfnCacheClusterProps{
		CacheNodeType:            jsii.String(cfg.CacheNodeType),
		Engine:                   jsii.String("redis"),
		ClusterName:              jsii.String(CacheName(props.Context)),
		NumCacheNodes:            jsii.Number(cfg.NumCacheNodes),
		CacheSubnetGroupName:     subnetGroup.Ref(),
		CacheParameterGroupName:  jsii.String(cfg.CacheParameterGroup),
		EngineVersion:            jsii.String(cfg.CacheEngineVersion),
		Port:                     jsii.Number(6379),
		VpcSecurityGroupIds:      &[]*string{props.SecurityGroup.SecurityGroupId()},
		TransitEncryptionEnabled: jsii.Bool(false),
	})
	return cache.AttrRedisEndpointAddress()
}

func isolatedSubnetIds(vpc awsec2.IVpc) *[]*string {
	selected := vpc.SelectSubnets(&awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED})
	return selected.SubnetIds
}

var invalidCacheNameChars = regexp.MustCompile(`[^a-z0-9-]`)

// CacheName derives a deterministic cache name from the tenant and
// environment, truncated and sanitized to the ElastiCache naming rules
// (40 chars max, letters/digits/hyphens, must start with a letter). A stable
// name keeps deployments updating the cache in place.
func CacheName(ctx naming.Context) string {
	tenant := strings.ToLower(ctx.TenantName)
	if len(tenant) > 10 {
		tenant = tenant[:10]
	}
	env := strings.ToLower(ctx.EnvName)
	if len(env) > 3 {
		env = env[:3]
	}

	name := tenant + "-" + env + "-redis"
	if len(name) > 40 {
		name = name[:40]
	}
	name = invalidCacheNameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		name = "a" + name
	}
	if len(name) > 40 {
		name = name[:40]
	}
	return name
}
