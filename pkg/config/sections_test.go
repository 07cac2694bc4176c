package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVpcConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*VpcConfig)
		wantErr string
	}{
		{name: "defaults are valid"},
		{
			name:   "zero nat gateways",
			mutate: func(c *VpcConfig) { c.NatGateways = 0 },
		},
		{
			name:    "negative nat gateways",
			mutate:  func(c *VpcConfig) { c.NatGateways = -1 },
			wantErr: "between 0 and 3",
		},
		{
			name:    "too many nat gateways",
			mutate:  func(c *VpcConfig) { c.NatGateways = 4; c.ReservedAzs = 4 },
			wantErr: "between 0 and 3",
		},
		{
			name:    "more gateways than azs",
			mutate:  func(c *VpcConfig) { c.NatGateways = 3; c.ReservedAzs = 2 },
			wantErr: "less than or equal to reserved_azs",
		},
		{
			name:    "malformed cidr",
			mutate:  func(c *VpcConfig) { c.Cidr = "not-a-cidr" },
			wantErr: "not a valid CIDR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			cfg := DefaultVpcConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(err)
			} else if assert.Error(err) {
				assert.Contains(err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDocDBConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  string
	}{
		{name: "default username", username: "docdbadmin"},
		{name: "reserved admin", username: "admin", wantErr: "reserved words"},
		{name: "reserved mixed case", username: "Admin", wantErr: "reserved words"},
		{name: "reserved serviceadmin", username: "serviceadmin", wantErr: "reserved words"},
		{name: "starts with digit", username: "1admin", wantErr: "must start with a letter"},
		{name: "too long", username: "a" + strings.Repeat("b", 63), wantErr: "must start with a letter"},
		{name: "single letter", username: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			cfg := DefaultDocDBConfig()
			cfg.MasterUsername = tt.username
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(err)
			} else if assert.Error(err) {
				assert.Contains(err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRedisConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cacheName string
		wantErr   string
	}{
		{name: "empty name skips validation", cacheName: ""},
		{name: "simple name", cacheName: "tenant-prd-cache"},
		{name: "single letter", cacheName: "a"},
		{name: "consecutive hyphens", cacheName: "tenant--cache", wantErr: "consecutive hyphens"},
		{name: "trailing hyphen", cacheName: "tenant-cache-", wantErr: "not end with a hyphen"},
		{name: "starts with digit", cacheName: "1cache", wantErr: "must start with a letter"},
		{name: "too long", cacheName: "a" + strings.Repeat("b", 40), wantErr: "exceeds 40 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			cfg := DefaultRedisConfig()
			cfg.ServerlessCacheName = tt.cacheName
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(err)
			} else if assert.Error(err) {
				assert.Contains(err.Error(), tt.wantErr)
			}
		})
	}
}

func TestAuroraClusterConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AuroraClusterConfig)
		wantErr string
	}{
		{name: "defaults are valid"},
		{
			name:   "postgres engine",
			mutate: func(c *AuroraClusterConfig) { c.Engine = "postgres" },
		},
		{
			name:    "min equals max",
			mutate:  func(c *AuroraClusterConfig) { c.ServerlessV2MinCapacity = 4.0 },
			wantErr: "must be less than serverless_v2_max_capacity",
		},
		{
			name:    "min above max",
			mutate:  func(c *AuroraClusterConfig) { c.ServerlessV2MinCapacity = 8.0 },
			wantErr: "must be less than serverless_v2_max_capacity",
		},
		{
			name:    "negative min",
			mutate:  func(c *AuroraClusterConfig) { c.ServerlessV2MinCapacity = -0.5 },
			wantErr: "must not be negative",
		},
		{
			name:    "unknown engine",
			mutate:  func(c *AuroraClusterConfig) { c.Engine = "oracle" },
			wantErr: "must be either mysql or postgres",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			cfg := DefaultAuroraClusterConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(err)
			} else if assert.Error(err) {
				assert.Contains(err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDomainConfig_Validate(t *testing.T) {
	records := map[string]string{
		"front_domain_name": "app.example.com",
		"api_domain_name":   "api.example.com",
		"sso_domain_name":   "sso.example.com",
	}

	tests := []struct {
		name    string
		cfg     DomainConfig
		wantErr string
	}{
		{
			name: "existing zone",
			cfg:  DomainConfig{HostedZoneId: "Z1", Records: records},
		},
		{
			name: "delegated zone",
			cfg:  DomainConfig{ParentHostedZoneId: "Z2", Records: records},
		},
		{
			name:    "neither zone id",
			cfg:     DomainConfig{Records: records},
			wantErr: "either 'hosted_zone_id' or 'parent_hosted_zone_id'",
		},
		{
			name:    "both zone ids",
			cfg:     DomainConfig{HostedZoneId: "Z1", ParentHostedZoneId: "Z2", Records: records},
			wantErr: "mutually exclusive",
		},
		{
			name: "missing record keys",
			cfg: DomainConfig{HostedZoneId: "Z1", Records: map[string]string{
				"front_domain_name": "app.example.com",
			}},
			wantErr: "missing: api_domain_name, sso_domain_name",
		},
		{
			name:    "nil records",
			cfg:     DomainConfig{HostedZoneId: "Z1"},
			wantErr: "missing: front_domain_name, api_domain_name, sso_domain_name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(err)
			} else if assert.Error(err) {
				assert.Contains(err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDomainConfig_IsCrossAccountDelegation(t *testing.T) {
	assert := assert.New(t)
	assert.False(DomainConfig{HostedZoneId: "Z1"}.IsCrossAccountDelegation())
	assert.False(DomainConfig{ParentHostedZoneId: "Z2"}.IsCrossAccountDelegation())
	assert.True(DomainConfig{
		ParentHostedZoneId: "Z2",
		DelegationRoleArn:  "arn:aws:iam::111111111111:role/Route53ZoneDelegationRole-OrgSubdomains",
	}.IsCrossAccountDelegation())
}

func TestInfrastructureConfig_Validate_Aggregates(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultInfrastructureConfig()
	// aws.account/region missing, domain has no zone ids and no records
	err := cfg.Validate()
	if assert.Error(err) {
		msg := err.Error()
		assert.Contains(msg, "aws.account is required")
		assert.Contains(msg, "aws.region is required")
		assert.Contains(msg, "hosted_zone_id")
		assert.Contains(msg, "front_domain_name")
	}
}
