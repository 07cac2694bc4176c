package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/osdcloud/osd-infra/pkg/multierr"
)

// Section types mirror the YAML layout of a tenant environment file. Every
// section is optional in the file; absent sections and fields keep the
// defaults from the Default* constructors.

type (
	AwsConfig struct {
		Account string `mapstructure:"account"`
		Region  string `mapstructure:"region"`
	}

	SecretsConfig struct {
		SecretEcsCompleteArn string `mapstructure:"secret_ecs_complete_arn"`
	}

	VpcConfig struct {
		Cidr        string `mapstructure:"cidr"`
		ReservedAzs int    `mapstructure:"reserved_azs"`
		NatGateways int    `mapstructure:"nat_gateways"`
	}

	DocDBConfig struct {
		MasterUsername     string `mapstructure:"master_username"`
		SnapshotIdentifier string `mapstructure:"snapshot_identifier"`
		BackupRetention    int    `mapstructure:"backup_retention"`
		DbInstanceType     string `mapstructure:"db_instance_type"`
		StorageEncrypted   bool   `mapstructure:"storage_encrypted"`
	}

	RedisConfig struct {
		ServerlessCacheEnabled bool   `mapstructure:"serverless_cache_enabled"`
		ServerlessCacheName    string `mapstructure:"serverless_cache_name"`
		BackupRetention        int    `mapstructure:"backup_retention"`
		BackupArnsToRestore    string `mapstructure:"backup_arns_to_restore"`
		NumCacheNodes          int    `mapstructure:"num_cache_nodes"`
		CacheNodeType          string `mapstructure:"cache_node_type"`
		CacheEngineVersion     string `mapstructure:"cache_engine_version"`
		CacheParameterGroup    string `mapstructure:"cache_parameter_group_name"`
	}

	HealthCheckTargetGroupConfig struct {
		Path         string `mapstructure:"path"`
		Port         string `mapstructure:"port"`
		Protocol     string `mapstructure:"protocol"`
		Interval     int    `mapstructure:"interval"`
		Timeout      int    `mapstructure:"timeout"`
		Retries      int    `mapstructure:"retries"`
		SuccessCodes string `mapstructure:"success_codes"`
	}

	TargetGroupConfig struct {
		Port                int                          `mapstructure:"port"`
		Protocol            string                       `mapstructure:"protocol"`
		DeregistrationDelay int                          `mapstructure:"deregistration_delay"`
		HealthCheck         HealthCheckTargetGroupConfig `mapstructure:"health_check"`
	}

	AlbConfig struct {
		InternetFacing       bool              `mapstructure:"internet_facing"`
		TargetGroupOsdAPI    TargetGroupConfig `mapstructure:"target_group_osd_api"`
		TargetGroupKeycloak  TargetGroupConfig `mapstructure:"target_group_keycloak"`
		EnableLogReplication bool              `mapstructure:"enable_log_replication"`
	}

	EcsClusterConfig struct {
		ContainerInsights bool   `mapstructure:"container_insights"`
		Namespace         string `mapstructure:"namespace"`
	}

	PortMappingConfig struct {
		Name          string `mapstructure:"name"`
		ContainerPort int    `mapstructure:"container_port"`
		HostPort      int    `mapstructure:"host_port"`
		AppProtocol   string `mapstructure:"app_protocol"`
	}

	ContainerHealthCheckConfig struct {
		Command     []string `mapstructure:"command"`
		Interval    int      `mapstructure:"interval"`
		Timeout     int      `mapstructure:"timeout"`
		Retries     int      `mapstructure:"retries"`
		StartPeriod int      `mapstructure:"start_period"`
	}

	ServiceConnectServiceConfig struct {
		PortMappingName string `mapstructure:"port_mapping_name"`
		DNSName         string `mapstructure:"dns_name"`
		Port            int    `mapstructure:"port"`
	}

	ContainerDefinitionConfig struct {
		ContainerName string                     `mapstructure:"container_name"`
		Image         string                     `mapstructure:"image"`
		PortMappings  []PortMappingConfig        `mapstructure:"port_mappings"`
		Environment   map[string]string          `mapstructure:"environment"`
		HealthCheck   ContainerHealthCheckConfig `mapstructure:"health_check"`
	}

	AutoScalingConfig struct {
		MinCapacity            int `mapstructure:"min_capacity"`
		MaxCapacity            int `mapstructure:"max_capacity"`
		CpuTarget              int `mapstructure:"cpu_target"`
		CpuScaleInCooldown     int `mapstructure:"cpu_scale_in_cooldown"`
		CpuScaleOutCooldown    int `mapstructure:"cpu_scale_out_cooldown"`
		MemoryTarget           int `mapstructure:"memory_target"`
		MemoryScaleInCooldown  int `mapstructure:"memory_scale_in_cooldown"`
		MemoryScaleOutCooldown int `mapstructure:"memory_scale_out_cooldown"`
	}

	CapacityProviderStrategyConfig struct {
		CapacityProvider string `mapstructure:"capacity_provider"`
		Base             int    `mapstructure:"base"`
		Weight           int    `mapstructure:"weight"`
	}

	EcsServiceConfig struct {
		Name                       string                           `mapstructure:"name"`
		Cpu                        int                              `mapstructure:"cpu"`
		Memory                     int                              `mapstructure:"memory"`
		DesiredCount               int                              `mapstructure:"desired_count"`
		ServiceConnectServices     []ServiceConnectServiceConfig    `mapstructure:"service_connect_services"`
		AutoScaling                *AutoScalingConfig               `mapstructure:"auto_scaling"`
		Containers                 []ContainerDefinitionConfig      `mapstructure:"containers"`
		CapacityProviderStrategies []CapacityProviderStrategyConfig `mapstructure:"capacity_provider_strategies"`
	}

	AngularBuildConfig struct {
		Theme            string `mapstructure:"theme"`
		Config           string `mapstructure:"config"`
		Logo             string `mapstructure:"logo"`
		SourceBucketKey  string `mapstructure:"source_bucket_key"`
		SourceBucketName string `mapstructure:"source_bucket_name"`
	}

	FrontEndConfig struct {
		BucketName             string             `mapstructure:"bucket_name"`
		Comment                string             `mapstructure:"comment"`
		DomainNames            []string           `mapstructure:"domain_names"`
		AngularBuild           AngularBuildConfig `mapstructure:"angular_build"`
		DeliveryDestinationArn string             `mapstructure:"delivery_destination_arn"`
	}

	AuroraClusterConfig struct {
		Engine                  string  `mapstructure:"engine"`
		SnapshotIdentifier      string  `mapstructure:"snapshot_identifier"`
		BackupRetention         int     `mapstructure:"backup_retention"`
		InstanceReaderCount     int     `mapstructure:"instance_reader_count"`
		DefaultDatabaseName     string  `mapstructure:"default_database_name"`
		ServerlessV2MinCapacity float64 `mapstructure:"serverless_v2_min_capacity"`
		ServerlessV2MaxCapacity float64 `mapstructure:"serverless_v2_max_capacity"`
	}

	StorageConfig struct {
		OsdBucketName string `mapstructure:"osd_bucket_name"`
	}

	DomainConfig struct {
		ZoneName                 string            `mapstructure:"zone_name"`
		HostedZoneId             string            `mapstructure:"hosted_zone_id"`
		ParentHostedZoneId       string            `mapstructure:"parent_hosted_zone_id"`
		DelegationRoleArn        string            `mapstructure:"delegation_role_arn"`
		CloudfrontCertificateArn string            `mapstructure:"cloudfront_certificate_arn"`
		AlbCertificateArn        string            `mapstructure:"alb_certificate_arn"`
		Records                  map[string]string `mapstructure:"records"`
	}

	// InfrastructureConfig groups every section needed to deploy one
	// (tenant, environment) pair.
	InfrastructureConfig struct {
		Aws           AwsConfig                   `mapstructure:"aws"`
		Secrets       SecretsConfig               `mapstructure:"secrets"`
		Vpc           VpcConfig                   `mapstructure:"vpc"`
		Storage       StorageConfig               `mapstructure:"storage"`
		AuroraCluster AuroraClusterConfig         `mapstructure:"aurora_cluster"`
		DocDB         DocDBConfig                 `mapstructure:"docdb"`
		Redis         RedisConfig                 `mapstructure:"redis"`
		FrontEnd      FrontEndConfig              `mapstructure:"front_end"`
		Alb           AlbConfig                   `mapstructure:"alb"`
		EcsCluster    EcsClusterConfig            `mapstructure:"ecs_cluster"`
		EcsServices   map[string]EcsServiceConfig `mapstructure:"ecs_services"`
		Domain        DomainConfig                `mapstructure:"domain"`
	}
)

func DefaultVpcConfig() VpcConfig {
	return VpcConfig{
		Cidr:        "10.0.0.0/16",
		ReservedAzs: 3,
		NatGateways: 3,
	}
}

func DefaultDocDBConfig() DocDBConfig {
	return DocDBConfig{
		MasterUsername:   "docdbadmin",
		BackupRetention:  15,
		DbInstanceType:   "t4g.medium",
		StorageEncrypted: true,
	}
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		BackupRetention:     7,
		NumCacheNodes:       1,
		CacheNodeType:       "cache.t4g.medium",
		CacheEngineVersion:  "7.1",
		CacheParameterGroup: "default.redis7",
	}
}

func DefaultTargetGroupConfig() TargetGroupConfig {
	return TargetGroupConfig{
		Port:                8080,
		Protocol:            "HTTP",
		DeregistrationDelay: 300,
		HealthCheck: HealthCheckTargetGroupConfig{
			Path:         "/",
			Port:         "8080",
			Protocol:     "HTTP",
			Interval:     30,
			Timeout:      10,
			Retries:      3,
			SuccessCodes: "200-399",
		},
	}
}

func DefaultAlbConfig() AlbConfig {
	return AlbConfig{
		InternetFacing:       true,
		TargetGroupOsdAPI:    DefaultTargetGroupConfig(),
		TargetGroupKeycloak:  DefaultTargetGroupConfig(),
		EnableLogReplication: true,
	}
}

func DefaultEcsClusterConfig() EcsClusterConfig {
	return EcsClusterConfig{ContainerInsights: true}
}

func DefaultPortMappingConfig() PortMappingConfig {
	return PortMappingConfig{
		ContainerPort: 8080,
		HostPort:      8080,
		AppProtocol:   "http",
	}
}

func DefaultContainerHealthCheckConfig() ContainerHealthCheckConfig {
	return ContainerHealthCheckConfig{
		Command:  []string{"CMD-SHELL", "echo ok || exit 1"},
		Interval: 30,
		Timeout:  10,
		Retries:  3,
	}
}

func DefaultAutoScalingConfig() AutoScalingConfig {
	return AutoScalingConfig{
		MinCapacity:            1,
		MaxCapacity:            10,
		CpuTarget:              60,
		CpuScaleInCooldown:     300,
		CpuScaleOutCooldown:    300,
		MemoryTarget:           70,
		MemoryScaleInCooldown:  300,
		MemoryScaleOutCooldown: 300,
	}
}

func DefaultContainerDefinitionConfig() ContainerDefinitionConfig {
	return ContainerDefinitionConfig{
		HealthCheck: DefaultContainerHealthCheckConfig(),
	}
}

func DefaultEcsServiceConfig() EcsServiceConfig {
	return EcsServiceConfig{
		Cpu:          1024,
		Memory:       2048,
		DesiredCount: 1,
	}
}

func DefaultFrontEndConfig() FrontEndConfig {
	return FrontEndConfig{
		Comment: "osd frontend",
		AngularBuild: AngularBuildConfig{
			Theme:  "sandbox",
			Config: "aws-tenant",
			Logo:   "assets/logo-fr.png",
		},
		DeliveryDestinationArn: "arn:aws:logs:us-east-1:000000000000:delivery-destination:cloudfront-logs-delivery-destination",
	}
}

func DefaultAuroraClusterConfig() AuroraClusterConfig {
	return AuroraClusterConfig{
		Engine:                  "mysql",
		BackupRetention:         14,
		InstanceReaderCount:     1,
		DefaultDatabaseName:     "keycloak",
		ServerlessV2MinCapacity: 0.5,
		ServerlessV2MaxCapacity: 4.0,
	}
}

func DefaultDomainConfig() DomainConfig {
	return DomainConfig{ZoneName: "app.dev.example.com"}
}

// DefaultInfrastructureConfig returns the config an empty environment file
// would produce. Decoding a file's sections over this value keeps the
// defaults for anything the file leaves out.
func DefaultInfrastructureConfig() InfrastructureConfig {
	return InfrastructureConfig{
		Vpc:           DefaultVpcConfig(),
		AuroraCluster: DefaultAuroraClusterConfig(),
		DocDB:         DefaultDocDBConfig(),
		Redis:         DefaultRedisConfig(),
		FrontEnd:      DefaultFrontEndConfig(),
		Alb:           DefaultAlbConfig(),
		EcsCluster:    DefaultEcsClusterConfig(),
		Domain:        DefaultDomainConfig(),
	}
}

var (
	cidrPattern           = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}/\d{1,2}$`)
	masterUsernamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]{0,62}$`)
	cacheNamePattern      = regexp.MustCompile(`^[a-zA-Z]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)
)

func (c AwsConfig) Validate() error {
	var errs multierr.Error
	if c.Account == "" {
		errs.Appendf("aws.account is required")
	}
	if c.Region == "" {
		errs.Appendf("aws.region is required")
	}
	return errs.ErrOrNil()
}

func (c VpcConfig) Validate() error {
	var errs multierr.Error
	if !cidrPattern.MatchString(c.Cidr) {
		errs.Appendf("vpc.cidr %q is not a valid CIDR block (e.g. 10.0.0.0/16)", c.Cidr)
	}
	if c.NatGateways < 0 || c.NatGateways > 3 {
		errs.Appendf("nat_gateways (%d) must be between 0 and 3", c.NatGateways)
	}
	if c.NatGateways > c.ReservedAzs {
		errs.Appendf("nat_gateways (%d) must be less than or equal to reserved_azs (%d)",
			c.NatGateways, c.ReservedAzs)
	}
	return errs.ErrOrNil()
}

func (c DocDBConfig) Validate() error {
	var errs multierr.Error
	if !masterUsernamePattern.MatchString(c.MasterUsername) {
		errs.Appendf("docdb.master_username %q must start with a letter and contain only 1-63 alphanumeric characters",
			c.MasterUsername)
	}
	for _, reserved := range []string{"admin", "serviceadmin"} {
		if strings.EqualFold(c.MasterUsername, reserved) {
			errs.Appendf("docdb.master_username cannot be %q, reserved words: admin, serviceadmin",
				c.MasterUsername)
		}
	}
	return errs.ErrOrNil()
}

// Validate checks the serverless cache name against the ElastiCache rules:
// starts with a letter, letters/digits/hyphens only, no trailing hyphen, no
// consecutive hyphens, at most 40 characters.
func (c RedisConfig) Validate() error {
	if c.ServerlessCacheName == "" {
		return nil
	}
	var errs multierr.Error
	if len(c.ServerlessCacheName) > 40 {
		errs.Appendf("redis.serverless_cache_name %q exceeds 40 characters", c.ServerlessCacheName)
	}
	if !cacheNamePattern.MatchString(c.ServerlessCacheName) {
		errs.Appendf("redis.serverless_cache_name %q must start with a letter, contain only letters, digits and hyphens, and not end with a hyphen",
			c.ServerlessCacheName)
	}
	if strings.Contains(c.ServerlessCacheName, "--") {
		errs.Appendf("redis.serverless_cache_name %q must not contain two consecutive hyphens",
			c.ServerlessCacheName)
	}
	return errs.ErrOrNil()
}

func (c AuroraClusterConfig) Validate() error {
	var errs multierr.Error
	if c.ServerlessV2MinCapacity < 0 {
		errs.Appendf("aurora_cluster.serverless_v2_min_capacity (%v) must not be negative",
			c.ServerlessV2MinCapacity)
	}
	if c.ServerlessV2MinCapacity >= c.ServerlessV2MaxCapacity {
		errs.Appendf("serverless_v2_min_capacity (%v) must be less than serverless_v2_max_capacity (%v)",
			c.ServerlessV2MinCapacity, c.ServerlessV2MaxCapacity)
	}
	switch c.Engine {
	case "mysql", "postgres":
	default:
		errs.Appendf("aurora_cluster.engine %q must be either mysql or postgres", c.Engine)
	}
	return errs.ErrOrNil()
}

func (c DomainConfig) Validate() error {
	var errs multierr.Error
	switch {
	case c.HostedZoneId == "" && c.ParentHostedZoneId == "":
		errs.Appendf("either 'hosted_zone_id' or 'parent_hosted_zone_id' must be provided: " +
			"use 'hosted_zone_id' to import an existing zone, or 'parent_hosted_zone_id' to create a new zone with delegation")
	case c.HostedZoneId != "" && c.ParentHostedZoneId != "":
		errs.Appendf("'hosted_zone_id' and 'parent_hosted_zone_id' are mutually exclusive: " +
			"provide 'hosted_zone_id' to use an existing zone (no delegation), or 'parent_hosted_zone_id' to create a new zone with delegation, but not both")
	}
	var missing []string
	for _, key := range []string{"front_domain_name", "api_domain_name", "sso_domain_name"} {
		if _, ok := c.Records[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		errs.Appendf("domain.records must contain 'front_domain_name', 'api_domain_name' and 'sso_domain_name', missing: %s",
			strings.Join(missing, ", "))
	}
	return errs.ErrOrNil()
}

// Validate checks every section and reports all violations at once.
func (c InfrastructureConfig) Validate() error {
	var errs multierr.Error
	for _, v := range []interface{ Validate() error }{
		c.Aws, c.Vpc, c.DocDB, c.Redis, c.AuroraCluster, c.Domain,
	} {
		errs.Append(v.Validate())
	}
	return errs.ErrOrNil()
}

// FrontDomainName, ApiDomainName and SsoDomainName read the required record
// keys. Only valid after Validate has passed.
func (c DomainConfig) FrontDomainName() string { return c.Records["front_domain_name"] }
func (c DomainConfig) ApiDomainName() string   { return c.Records["api_domain_name"] }
func (c DomainConfig) SsoDomainName() string   { return c.Records["sso_domain_name"] }

// IsCrossAccountDelegation reports whether zone delegation records must be
// written in another account via the delegation role.
func (c DomainConfig) IsCrossAccountDelegation() bool {
	return c.ParentHostedZoneId != "" && c.DelegationRoleArn != ""
}

func (c EcsServiceConfig) String() string {
	return fmt.Sprintf("%s (cpu=%d mem=%d)", c.Name, c.Cpu, c.Memory)
}
