package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByStage(t *testing.T) {
	assert := assert.New(t)
	stacks := []string{
		"FrdevStage/NetworkStack",
		"FrdevStage/SecurityStack",
		"TenantcprdStage/NetworkStack",
		"TenantcprdStage/ExtraBucketStack",
		"OrphanStackWithoutStage",
	}

	groups := GroupByStage(stacks)

	require.Len(t, groups, 2)
	assert.Equal("FrdevStage", groups[0].StageName)
	assert.Equal([]string{"FrdevStage/NetworkStack", "FrdevStage/SecurityStack"}, groups[0].Stacks)
	assert.Equal("TenantcprdStage", groups[1].StageName)
	assert.Len(groups[1].Stacks, 2)
}

func TestGroupByStage_PreservesFirstSeenOrder(t *testing.T) {
	assert := assert.New(t)
	groups := GroupByStage([]string{
		"Zz-Prd/A",
		"Aa-Dev/B",
		"Zz-Prd/C",
	})
	require.Len(t, groups, 2)
	assert.Equal("Zz-Prd", groups[0].StageName)
	assert.Equal("Aa-Dev", groups[1].StageName)
}

func TestDetectEnvType(t *testing.T) {
	tests := []struct {
		stageName string
		want      string
	}{
		{"FrdevStage", "dev"},
		{"FrstgStage", "stg"},
		{"FrprdStage", "prd"},
		{"TenantbprodStage", "prd"},
		{"TenantcStagingStage", "stg"},
		{"UnknownStage", "other"},
		{"Fr-Dev", "dev"},
		// dev wins over prd when both substrings appear
		{"DevprdStage", "dev"},
	}
	for _, tt := range tests {
		t.Run(tt.stageName, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tt.want, DetectEnvType(tt.stageName))
		})
	}
}

func TestExtractTenantEnv(t *testing.T) {
	tests := []struct {
		stageName  string
		wantTenant string
		wantEnv    string
	}{
		{"Pco-Dev", "pco", "dev"},
		{"Che-Prd", "che", "prd"},
		{"Fr-Stg", "fr", "stg"},
		// hyphenless fallback strips the detected tier substring
		{"FrdevStage", "frstage", "dev"},
		{"Dev", "unknown", "dev"},
	}
	for _, tt := range tests {
		t.Run(tt.stageName, func(t *testing.T) {
			assert := assert.New(t)
			tenant, env := ExtractTenantEnv(tt.stageName)
			assert.Equal(tt.wantTenant, tenant)
			assert.Equal(tt.wantEnv, env)
		})
	}
}

func TestBuildStageConfigs(t *testing.T) {
	assert := assert.New(t)
	groups := []StageGroup{
		{StageName: "FrdevStage", Stacks: []string{"FrdevStage/NetworkStack", "FrdevStage/SecurityStack"}},
		{StageName: "TenantcprdStage", Stacks: []string{"TenantcprdStage/NetworkStack"}},
	}

	configs := BuildStageConfigs(groups)
	require.Len(t, configs, 2)

	dev := configs[0]
	assert.Equal("FrdevStage", dev.StageName)
	assert.Equal("dev", dev.EnvType)
	assert.Equal(2, dev.StackCount)
	assert.Equal("FrdevStage/*", dev.DeployPattern)

	prd := configs[1]
	assert.Equal("prd", prd.EnvType)
	assert.Equal(1, prd.StackCount)
	assert.Equal("TenantcprdStage/*", prd.DeployPattern)
}

func TestStageConfig_Matches(t *testing.T) {
	assert := assert.New(t)
	cfg := StageConfig{DeployPattern: "FrdevStage/*"}

	assert.True(cfg.Matches("FrdevStage/NetworkStack"))
	assert.False(cfg.Matches("TenantcprdStage/NetworkStack"))
	// a path glob does not cross separators
	assert.False(cfg.Matches("FrdevStage/Nested/Stack"))
}
