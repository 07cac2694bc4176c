package discovery

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Options configures one discovery run. Zero values fall back to the
// conventional file names and the environment-derived image and principal.
type Options struct {
	ListingFile      string
	OutDir           string
	Image            string
	PrincipalAccount string
	Out              io.Writer
}

// Result reports what a run produced.
type Result struct {
	Configs   []StageConfig
	JobFiles  map[string]string // env tier -> generated file path
	Bootstrap *BootstrapConfig  // nil when the listing was unavailable
}

// Run executes the full discovery flow: parse the listing, group and
// classify stages, write stages_config.json, one pipeline jobs file per tier
// that has stages, and the bootstrap plan. A missing or malformed listing is
// not fatal: the run degrades to empty outputs and skips the bootstrap plan.
func Run(opts Options) (*Result, error) {
	if opts.ListingFile == "" {
		opts.ListingFile = "cdk_stacks_long.yml"
	}
	if opts.Image == "" {
		opts.Image = ImageFromEnv()
	}
	if opts.PrincipalAccount == "" {
		opts.PrincipalAccount = PrincipalAccountFromEnv()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	entries, err := ReadListing(opts.ListingFile)
	listingAvailable := err == nil
	if err != nil {
		zap.S().Warnf("stack listing unavailable, producing empty discovery outputs: %v", err)
		color.New(color.FgYellow).Fprintf(opts.Out, "warning: %v\n", err)
	}

	stacks := StackIDs(entries)
	configs := BuildStageConfigs(GroupByStage(stacks))

	result := &Result{
		Configs:  configs,
		JobFiles: make(map[string]string),
	}

	if err := writeJSON(filepath.Join(opts.OutDir, "stages_config.json"), configs); err != nil {
		return nil, err
	}

	for _, envType := range EnvTypes {
		var tierConfigs []StageConfig
		for _, cfg := range configs {
			if cfg.EnvType == envType {
				tierConfigs = append(tierConfigs, cfg)
			}
		}
		if len(tierConfigs) == 0 {
			continue
		}
		jobsYaml, err := RenderJobs(tierConfigs, opts.Image)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(opts.OutDir, fmt.Sprintf("gitlab-ci-dynamic-jobs-%s.yml", envType))
		if err := os.WriteFile(path, []byte(jobsYaml), 0644); err != nil {
			return nil, errors.Wrapf(err, "writing %s", path)
		}
		result.JobFiles[envType] = path
	}

	if listingAvailable {
		if accounts := UniqueAccounts(entries); len(accounts) > 0 {
			bootstrap := BuildBootstrapConfig(accounts, opts.PrincipalAccount)
			if err := writeJSON(filepath.Join(opts.OutDir, "bootstrap_config.json"), bootstrap); err != nil {
				return nil, err
			}
			result.Bootstrap = &bootstrap
		}
	}

	printSummary(opts.Out, result)
	return result, nil
}

func printSummary(w io.Writer, result *Result) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	green.Fprintf(w, "Discovered %d stages\n", len(result.Configs))
	for _, cfg := range result.Configs {
		fmt.Fprintf(w, "  - %-30s (%3s) : %d stacks\n", cfg.StageName, cfg.EnvType, cfg.StackCount)
	}
	if len(result.JobFiles) > 0 {
		bold.Fprintln(w, "Generated pipeline files:")
		for _, envType := range EnvTypes {
			if path, ok := result.JobFiles[envType]; ok {
				fmt.Fprintf(w, "  - %s\n", path)
			}
		}
	}
	if result.Bootstrap != nil {
		trusted := 0
		for _, acct := range result.Bootstrap.Accounts {
			if acct.NeedsTrust {
				trusted++
			}
		}
		bold.Fprintf(w, "Bootstrap plan: principal %s, %d account(s) needing trust\n",
			result.Bootstrap.PrincipalAccount, trusted)
	}
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
