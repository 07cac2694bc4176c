package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderJobs_DevTier(t *testing.T) {
	assert := assert.New(t)
	configs := []StageConfig{{
		StageName:     "Fr-Dev",
		Stacks:        []string{"Fr-Dev/NetworkStack"},
		StackCount:    1,
		EnvType:       "dev",
		DeployPattern: "Fr-Dev/*",
	}}

	out, err := RenderJobs(configs, "registry.example.com/cdk-deploy:latest")
	require.NoError(t, err)

	assert.Contains(out, "diff:dev:Fr-Dev:")
	assert.Contains(out, "deploy:dev:Fr-Dev:")
	assert.Contains(out, "destroy:dev:Fr-Dev:")
	assert.Contains(out, "  - destroy")
	assert.Contains(out, `image: "registry.example.com/cdk-deploy:latest"`)
	assert.Contains(out, "-c tenant=fr -c env=dev")
	assert.Contains(out, "allow_failure: true")
	// diff scans its own output for dangerous operations
	assert.Contains(out, `DANGEROUS_WORDS="requires replacement|dangerous word"`)
	assert.Contains(out, "exit 1")
	// deploy waits on diff and is manual
	assert.Contains(out, "needs:\n    - diff:dev:Fr-Dev")
	assert.Contains(out, "when: manual")
	assert.Contains(out, `name: "dev-Fr-Dev"`)
}

func TestRenderJobs_PrdTierHasNoDestroy(t *testing.T) {
	assert := assert.New(t)
	configs := []StageConfig{{
		StageName:     "Tenantc-Prd",
		Stacks:        []string{"Tenantc-Prd/NetworkStack"},
		StackCount:    1,
		EnvType:       "prd",
		DeployPattern: "Tenantc-Prd/*",
	}}

	out, err := RenderJobs(configs, "img")
	require.NoError(t, err)

	assert.Contains(out, "diff:prd:Tenantc-Prd:")
	assert.Contains(out, "deploy:prd:Tenantc-Prd:")
	assert.NotContains(out, "destroy:")
	// the destroy pipeline stage header is omitted entirely
	assert.NotContains(out, "- destroy")
}

func TestRenderJobs_MixedTiers(t *testing.T) {
	assert := assert.New(t)
	configs := []StageConfig{
		{StageName: "Fr-Stg", EnvType: "stg", DeployPattern: "Fr-Stg/*", StackCount: 2},
		{StageName: "De-Prd", EnvType: "prd", DeployPattern: "De-Prd/*", StackCount: 2},
	}

	out, err := RenderJobs(configs, "img")
	require.NoError(t, err)

	// a single non-prd stage is enough to bring the destroy stage back
	assert.Contains(out, "- destroy")
	assert.Contains(out, "destroy:stg:Fr-Stg:")
	assert.NotContains(out, "destroy:prd:De-Prd")

	// jobs appear in config order
	assert.Less(strings.Index(out, "diff:stg:Fr-Stg"), strings.Index(out, "diff:prd:De-Prd"))
}
