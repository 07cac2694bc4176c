// The osd-infra command is the CDK application: it synthesizes one stage per
// deployed (tenant, environment) pair plus the shared registry stage.
//
// Pass -c tenant=<tenant> -c env=<env> to synthesize a single pair, which is
// what the pipeline's per-stage deploy jobs do.
package main

import (
	"context"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/config"
	"github.com/osdcloud/osd-infra/pkg/imageref"
	"github.com/osdcloud/osd-infra/pkg/logging"
	"github.com/osdcloud/osd-infra/pkg/stacks"
	"github.com/osdcloud/osd-infra/pkg/stages"
)

// The shared stage deploys to the main account alongside the parent hosted
// zones.
const mainRegion = "eu-west-1"

// fleet is every deployed pair. The C tenant carries the extension stacks.
var fleet = []struct {
	tenant, env string
	build       stages.StageBuilder
}{
	{tenant: "fr", env: "stg"},
	{tenant: "de", env: "prd"},
	{tenant: "ch", env: "prd", build: stages.NewTenantCStage},
	{tenant: "us", env: "prd"},
	{tenant: "nl", env: "prd"},
}

func main() {
	defer jsii.Close()

	logger := logging.LogOpts{Color: true}.NewLogger()
	defer logger.Sync() // nolint:errcheck
	zap.ReplaceGlobals(logger)

	app := awscdk.NewApp(nil)

	resolver, err := imageref.FromConfig(context.Background())
	if err != nil {
		zap.S().Warnf("no aws session for image lookups, falling back to configured images: %v", err)
		resolver = nil
	}
	factory := &stages.Factory{BaseDir: "config", ImageResolver: resolver}

	descriptors, err := selectDescriptors(app)
	if err != nil {
		zap.S().Fatalf("invalid stage selection: %v", err)
	}

	var contexts []*config.InfraContext
	for _, desc := range descriptors {
		_, infra, err := factory.Create(app, desc)
		if err != nil {
			zap.S().Fatalf("creating stage for %s/%s: %v", desc.TenantName, desc.EnvName, err)
		}
		contexts = append(contexts, infra)
	}

	// The shared registries always synthesize with the full fleet's pull
	// accounts, even when a single stage is selected, so a focused deploy
	// never shrinks the repository policies.
	addSharedStage(app, contexts)

	app.Synth(nil)
}

// selectDescriptors returns either the single pair named by the tenant/env
// context values or the whole fleet.
func selectDescriptors(app awscdk.App) ([]stages.StageDescriptor, error) {
	tenant, _ := app.Node().TryGetContext(jsii.String("tenant")).(string)
	env, _ := app.Node().TryGetContext(jsii.String("env")).(string)

	if tenant != "" && env != "" {
		build := stages.StageBuilder(stages.NewPlatformStage)
		for _, pair := range fleet {
			if pair.tenant == tenant && pair.env == env && pair.build != nil {
				build = pair.build
			}
		}
		desc, err := stages.CustomStage(tenant, env, build)
		if err != nil {
			return nil, err
		}
		zap.S().Infof("synthesizing single stage %s/%s", tenant, env)
		return []stages.StageDescriptor{desc}, nil
	}

	descriptors := make([]stages.StageDescriptor, 0, len(fleet))
	for _, pair := range fleet {
		build := pair.build
		if build == nil {
			build = stages.NewPlatformStage
		}
		desc, err := stages.CustomStage(pair.tenant, pair.env, build)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, desc)
	}
	return descriptors, nil
}

func addSharedStage(app awscdk.App, contexts []*config.InfraContext) {
	var (
		tenants  []string
		accounts []string
		seenT    = make(map[string]bool)
		seenA    = make(map[string]bool)
	)
	for _, infra := range contexts {
		if tenant := infra.Context.TenantName; !seenT[tenant] {
			seenT[tenant] = true
			tenants = append(tenants, tenant)
		}
		if account := infra.Config.Aws.Account; !seenA[account] {
			seenA[account] = true
			accounts = append(accounts, account)
		}
	}

	stages.NewSharedStage(app, "SharedOsd", &stages.SharedStageProps{
		TenantNames:    tenants,
		PullAccountIds: accounts,
		Account:        stacks.MainAccountID,
		Region:         mainRegion,
	})
}
