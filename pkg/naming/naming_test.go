package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToKebab(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "underscores", in: "tenant_test", want: "tenant-test"},
		{name: "mixed case", in: "Tenant-Test", want: "tenant-test"},
		{name: "spaces", in: "tenant test", want: "tenant-test"},
		{name: "already kebab", in: "tenant-test", want: "tenant-test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tt.want, ToKebab(tt.in))
		})
	}
}

func TestToPascal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "kebab", in: "tenant-test", want: "TenantTest"},
		{name: "snake", in: "osd_api", want: "OsdApi"},
		{name: "single word", in: "prd", want: "Prd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tt.want, ToPascal(tt.in))
		})
	}
}

func TestContextPrefixes(t *testing.T) {
	assert := assert.New(t)
	ctx := Context{EnvName: "prd", TenantName: "tenant-test"}

	assert.Equal("tenant-test-prd-osd", ctx.KebabPrefix("osd"))
	assert.Equal("TenantTestPrdNetworkStack", ctx.PascalPrefix("network-stack"))
	assert.Equal("TenantTestPrdStage", ctx.StageName())
}

func TestContextTags(t *testing.T) {
	assert := assert.New(t)
	ctx := Context{EnvName: "stg", TenantName: "fr"}

	tags := ctx.Tags()
	assert.Equal("stg", tags["EnvName"])
	assert.Equal("fr", tags["TenantName"])
	assert.Equal("CDK", tags["ManagedBy"])
}

func TestContextIsDev(t *testing.T) {
	assert := assert.New(t)
	assert.True(Context{EnvName: "dev"}.IsDev())
	assert.True(Context{EnvName: "Dev2"}.IsDev())
	assert.False(Context{EnvName: "prd"}.IsDev())
	assert.False(Context{EnvName: "stg"}.IsDev())
}

func TestSanitizeForCfn(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("TenantTestPrdData", SanitizeForCfn("Tenant-Test_Prd.Data"))
}
