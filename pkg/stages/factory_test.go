package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultStage(t *testing.T) {
	assert := assert.New(t)

	desc, err := DefaultStage("fr", "stg")
	if assert.NoError(err) {
		assert.Equal("fr", desc.TenantName)
		assert.Equal("stg", desc.EnvName)
		assert.NotNil(desc.build)
	}
}

func TestStageDescriptorValidation(t *testing.T) {
	tests := []struct {
		name    string
		tenant  string
		env     string
		build   StageBuilder
		wantErr string
	}{
		{
			name:    "missing tenant",
			env:     "prd",
			build:   NewPlatformStage,
			wantErr: "needs a tenant name",
		},
		{
			name:    "missing environment",
			tenant:  "de",
			build:   NewPlatformStage,
			wantErr: "needs an environment name",
		},
		{
			name:    "missing builder",
			tenant:  "ch",
			env:     "prd",
			wantErr: "needs a builder",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			_, err := CustomStage(tt.tenant, tt.env, tt.build)
			if assert.Error(err) {
				assert.Contains(err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFactoryCreateMissingConfig(t *testing.T) {
	assert := assert.New(t)

	factory := &Factory{BaseDir: t.TempDir()}
	desc, err := DefaultStage("fr", "stg")
	assert.NoError(err)

	_, _, err = factory.Create(nil, desc)
	if assert.Error(err) {
		assert.Contains(err.Error(), "loading configuration for fr/stg")
	}
}
