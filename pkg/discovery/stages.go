package discovery

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Environment tiers, in classification priority order: a stage name
// containing both "dev" and "prd" is a dev stage.
const (
	EnvDev   = "dev"
	EnvStg   = "stg"
	EnvPrd   = "prd"
	EnvOther = "other"
)

// EnvTypes lists the tiers that get a generated pipeline file.
var EnvTypes = []string{EnvDev, EnvStg, EnvPrd}

// StageGroup is the ordered set of stacks belonging to one stage.
type StageGroup struct {
	StageName string
	Stacks    []string
}

// StageConfig is the deployment descriptor written to stages_config.json.
type StageConfig struct {
	StageName     string   `json:"stage_name"`
	Stacks        []string `json:"stacks"`
	StackCount    int      `json:"stack_count"`
	EnvType       string   `json:"env_type"`
	DeployPattern string   `json:"deploy_pattern"`
}

// Matches reports whether a stack id falls under this stage's deploy
// pattern. Patterns are path globs, so "Stage/*" does not cross into nested
// construct paths.
func (c StageConfig) Matches(stackID string) bool {
	ok, err := doublestar.Match(c.DeployPattern, stackID)
	return err == nil && ok
}

// GroupByStage buckets stack ids by the segment before the first "/",
// preserving first-seen stage order. Ids without a "/" belong to no stage
// and are dropped.
func GroupByStage(stacks []string) []StageGroup {
	var groups []StageGroup
	index := make(map[string]int)
	for _, stack := range stacks {
		stageName, _, found := strings.Cut(stack, "/")
		if !found {
			continue
		}
		i, ok := index[stageName]
		if !ok {
			i = len(groups)
			index[stageName] = i
			groups = append(groups, StageGroup{StageName: stageName})
		}
		groups[i].Stacks = append(groups[i].Stacks, stack)
	}
	return groups
}

// DetectEnvType classifies a stage name into an environment tier by
// case-insensitive substring, dev taking priority over stg over prd.
func DetectEnvType(stageName string) string {
	lower := strings.ToLower(stageName)
	switch {
	case strings.Contains(lower, "dev"):
		return EnvDev
	case strings.Contains(lower, "stg"), strings.Contains(lower, "staging"):
		return EnvStg
	case strings.Contains(lower, "prd"), strings.Contains(lower, "prod"):
		return EnvPrd
	default:
		return EnvOther
	}
}

// ExtractTenantEnv splits a "Tenant-Env" stage name into its lowercase
// parts. Names without a hyphen fall back to tier detection, with the tier
// substring stripped out of the name to approximate the tenant.
func ExtractTenantEnv(stageName string) (tenant, env string) {
	if before, after, found := strings.Cut(stageName, "-"); found {
		return strings.ToLower(before), strings.ToLower(after)
	}
	env = DetectEnvType(stageName)
	tenant = strings.ToLower(stageName)
	tenant = strings.ReplaceAll(tenant, env, "")
	tenant = strings.TrimSpace(strings.ReplaceAll(tenant, "-", ""))
	if tenant == "" {
		tenant = "unknown"
	}
	return tenant, env
}

// BuildStageConfigs derives one deployment descriptor per stage group.
func BuildStageConfigs(groups []StageGroup) []StageConfig {
	configs := make([]StageConfig, 0, len(groups))
	for _, group := range groups {
		configs = append(configs, StageConfig{
			StageName:     group.StageName,
			Stacks:        group.Stacks,
			StackCount:    len(group.Stacks),
			EnvType:       DetectEnvType(group.StageName),
			DeployPattern: group.StageName + "/*",
		})
	}
	return configs
}
