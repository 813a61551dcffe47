package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/ErzenXz/huly-selfhost/internal/config"
	"github.com/ErzenXz/huly-selfhost/internal/pipeline"
)

// buildFlags are shared by build and redeploy --from-source.
type buildFlags struct {
	repo      string
	path      string
	ref       string
	registry  string
	tagSuffix string
	frontDist string
	services  []string
	noCache   bool
	strict    bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.repo, "repo", "", "platform repository URL to clone or fetch")
	flags.StringVar(&f.path, "path", "", "local platform source tree to build as is")
	flags.StringVar(&f.ref, "ref", "", "branch, tag or commit to check out (remote sources only)")
	flags.StringVar(&f.registry, "registry", "", "registry prefix for image tags (default BUILD_REGISTRY)")
	flags.BoolVar(&f.noCache, "no-cache", false, "build images without cache, pulling base images")
	flags.StringVar(&f.tagSuffix, "tag-suffix", "", "tag suffix (default is the UTC build time)")
	flags.StringVar(&f.frontDist, "front-dist", "", "prebuilt front-end dist directory to use for front")
	flags.StringSliceVar(&f.services, "services", nil, "build only these services (comma separated)")
	flags.BoolVar(&f.strict, "strict", false, "fail when any service is skipped")
}

func (f *buildFlags) options() pipeline.Options {
	return pipeline.Options{
		Repo:      f.repo,
		Path:      f.path,
		Ref:       f.ref,
		Registry:  f.registry,
		NoCache:   f.noCache,
		TagSuffix: f.tagSuffix,
		FrontDist: f.frontDist,
		Services:  f.services,
		Strict:    f.strict,
	}
}

var build buildFlags

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build service images from source and write the image overrides",
	Long: `Build resolves the platform source, builds every service it can locate and
records each built image in the override file. Services that cannot be built
keep their default image; the run only fails for configuration or source
errors, or with --strict.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := runBuild(cmd.Context(), &build)
		if err != nil {
			return err
		}
		printer.Success("image overrides written to %s", cfg.OverrideFile)
		return nil
	},
}

// runBuild runs the pipeline and prints its report, also when strict mode
// turned a partial build into an error.
func runBuild(ctx context.Context, flags *buildFlags) (*pipeline.Report, config.Config, error) {
	cfg, registry, err := loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}
	p, _, err := newPipeline(cfg, registry)
	if err != nil {
		return nil, cfg, err
	}

	report, err := p.Run(ctx, flags.options())
	if report != nil {
		printer.Step("Summary (tag suffix %s)", report.TagSuffix)
		report.Print(os.Stdout)
	}
	return report, cfg, err
}

func init() {
	build.register(buildCmd)
	buildCmd.MarkFlagsMutuallyExclusive("repo", "path")
	buildCmd.MarkFlagsOneRequired("repo", "path")
	rootCmd.AddCommand(buildCmd)
}
