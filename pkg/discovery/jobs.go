package discovery

import (
	"embed"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/osdcloud/osd-infra/pkg/templateutils"
)

//go:embed templates/gitlab_jobs.yml.tmpl
var templatesFS embed.FS

var jobsTemplate = templateutils.MustTemplate(templatesFS, "templates/gitlab_jobs.yml.tmpl")

// DefaultImage is the job container image when ECR_IMAGE is not set. The
// literal pipeline variable is resolved by the CI runner, not here.
const DefaultImage = "$LATEST_CDK_DEPLOY_ECR_IMAGE"

type jobsData struct {
	Image      string
	HasDestroy bool
	Stages     []stageJobData
}

type stageJobData struct {
	StageConfig
	Tenant  string
	Env     string
	EnvName string
}

// RenderJobs produces the pipeline YAML for one tier's stage configs: a diff
// job that fails loudly on destructive changes, a manual deploy job, and for
// every non-production stage a manual destroy job. Production stages never
// get a destroy job.
func RenderJobs(configs []StageConfig, image string) (string, error) {
	data := jobsData{Image: image}
	for _, cfg := range configs {
		tenant, env := ExtractTenantEnv(cfg.StageName)
		envName := cfg.StageName
		if cfg.EnvType != "" {
			// environment names must be slash-free for the CI provider
			envName = fmt.Sprintf("%s-%s", cfg.EnvType, cfg.StageName)
		}
		data.Stages = append(data.Stages, stageJobData{
			StageConfig: cfg,
			Tenant:      tenant,
			Env:         env,
			EnvName:     envName,
		})
		if cfg.EnvType != EnvPrd {
			data.HasDestroy = true
		}
	}

	sb := new(strings.Builder)
	if err := jobsTemplate.Execute(sb, data); err != nil {
		return "", errors.Wrap(err, "rendering pipeline jobs")
	}
	return sb.String(), nil
}
