package stages

import (
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/pkg/errors"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/imageref"
)

// StageBuilder constructs a platform stage variant. NewPlatformStage is the
// default, extension tenants plug their own (see NewTenantCStage).
type StageBuilder func(scope constructs.Construct, id string, props *PlatformStageProps) (*PlatformStage, error)

// StageDescriptor names a (tenant, environment) pair to deploy and how to
// build it. Construct one through DefaultStage or CustomStage so an invalid
// pair is rejected before synthesis starts.
type StageDescriptor struct {
	TenantName string
	EnvName    string
	build      StageBuilder
}

func DefaultStage(tenantName, envName string) (StageDescriptor, error) {
	return CustomStage(tenantName, envName, NewPlatformStage)
}

func CustomStage(tenantName, envName string, build StageBuilder) (StageDescriptor, error) {
	if tenantName == "" {
		return StageDescriptor{}, errors.New("stage descriptor needs a tenant name")
	}
	if envName == "" {
		return StageDescriptor{}, errors.Errorf("stage descriptor for tenant %s needs an environment name", tenantName)
	}
	if build == nil {
		return StageDescriptor{}, errors.Errorf("stage descriptor for %s/%s needs a builder", tenantName, envName)
	}
	return StageDescriptor{TenantName: tenantName, EnvName: envName, build: build}, nil
}

// Factory turns stage descriptors into synthesized stages, loading each
// pair's environment file from BaseDir.
type Factory struct {
	BaseDir       string
	ImageResolver *imageref.Resolver
}

// Create loads the descriptor's configuration and builds its stage. The
// infrastructure context is returned alongside so the caller can collect
// accounts and tenants for the shared stage.
func (f *Factory) Create(scope constructs.Construct, desc StageDescriptor) (*PlatformStage, *config.InfraContext, error) {
	loader := config.NewLoader(desc.EnvName, desc.TenantName, f.BaseDir)
	infra, err := loader.Load()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "loading configuration for %s/%s", desc.TenantName, desc.EnvName)
	}

	stage, err := desc.build(scope, loader.StageName(), &PlatformStageProps{
		Infra:         infra,
		ImageResolver: f.ImageResolver,
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "building stage for %s/%s", desc.TenantName, desc.EnvName)
	}
	return stage, infra, nil
}
