// The stage-discovery command turns a synthesized stack listing into the
// pipeline's dynamic configuration: the stage inventory, one generated jobs
// file per environment tier, and the account bootstrap plan.
package main

import (
	"os"

	"github.com/lithammer/dedent"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/discovery"
	"github.com/osdcloud/osd-infra/pkg/logging"
)

var cfg struct {
	verbose bool
	jsonLog bool

	listingFile      string
	outDir           string
	image            string
	principalAccount string
}

func main() {
	root := &cobra.Command{
		Use:   "stage-discovery",
		Short: "Generate the dynamic pipeline configuration from a stack listing",
		Long: dedent.Dedent(`
			Reads the stack listing produced by 'cdk list --long' and derives
			everything the pipeline needs to fan out: which stages exist, which
			environment tier each one belongs to, the per-tier job definitions,
			and which accounts still need CDK bootstrap trust.

			A missing listing is not fatal: the run degrades to empty outputs so
			a fresh repository can still bring its pipeline up.`),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := discovery.Run(discovery.Options{
				ListingFile:      cfg.listingFile,
				OutDir:           cfg.outDir,
				Image:            cfg.image,
				PrincipalAccount: cfg.principalAccount,
			})
			return err
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&cfg.verbose, "verbose", "v", false, "Verbose flag")
	flags.BoolVar(&cfg.jsonLog, "json-log", false, "Output logs in JSON")

	root.Flags().StringVar(&cfg.listingFile, "listing", "", "Stack listing file (default cdk_stacks_long.yml)")
	root.Flags().StringVar(&cfg.outDir, "out-dir", "", "Directory for the generated files")
	root.Flags().StringVar(&cfg.image, "image", "", "Pipeline image for the generated jobs")
	root.Flags().StringVar(&cfg.principalAccount, "principal-account", "", "Account the pipeline deploys from")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	opts := logging.LogOpts{
		Verbose: cfg.verbose,
		Color:   !cfg.jsonLog,
	}
	if cfg.jsonLog {
		opts.Encoding = "json"
	}
	zap.ReplaceGlobals(opts.NewLogger())
}
