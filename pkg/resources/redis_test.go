package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osdcloud/osd-infra/pkg/naming"
)

func TestCacheName(t *testing.T) {
	tests := []struct {
		name   string
		tenant string
		env    string
		want   string
	}{
		{"simple", "fr", "stg", "fr-stg-redis"},
		{"long names truncated", "tenantcorporate", "production", "tenantcorp-pro-redis"},
		{"lowercased", "Fr", "STG", "fr-stg-redis"},
		{"invalid characters replaced", "t c", "dev", "t-c-dev-redis"},
		{"leading digit prefixed", "9lives", "dev", "a9lives-dev-redis"},
		{"hyphen runs collapsed", "-fr-", "dev", "fr-dev-redis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			got := CacheName(naming.Context{TenantName: tt.tenant, EnvName: tt.env})
			assert.Equal(tt.want, got)
			assert.LessOrEqual(len(got), 40)
		})
	}
}
