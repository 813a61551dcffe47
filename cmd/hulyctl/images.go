package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ErzenXz/huly-selfhost/internal/config"
	"github.com/ErzenXz/huly-selfhost/internal/orchestrator"
	"github.com/ErzenXz/huly-selfhost/internal/overrides"
	"github.com/ErzenXz/huly-selfhost/internal/ui"
)

var (
	imagesEnvFile string
	imagesDryRun  bool
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Apply image overrides to the deployments of a kubernetes namespace",
	Long: `Images reads IMAGE_<SERVICE> variables from an env file and sets the image of
deployment <service> in the namespace: the container named after the service,
else its first container. Services without a deployment are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, registry, err := loadConfig()
		if err != nil {
			return err
		}

		envFile := imagesEnvFile
		if envFile == "" {
			envFile = cfg.OverrideFile
		}
		entries, err := overrides.Read(envFile)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Printf("No image overrides in %s\n", envFile)
			return nil
		}

		client, err := orchestrator.NewKubeClient(cfg.Kubeconfig)
		if err != nil {
			return err
		}
		kube := orchestrator.NewKube(client, cfg.KubeNamespace)

		plan, err := kube.Plan(cmd.Context(), registry, entries)
		if err != nil {
			return err
		}
		printPlan(cfg, plan)

		if imagesDryRun || len(plan.Changes) == 0 {
			return nil
		}
		if err := kube.Apply(cmd.Context(), plan); err != nil {
			return err
		}
		printer.Success("updated %d deployments in %s", len(plan.Changes), cfg.KubeNamespace)
		return nil
	},
}

func printPlan(cfg config.Config, plan orchestrator.ImagePlan) {
	printer.Step("Namespace %s", ui.IDString("%s", cfg.KubeNamespace))
	table := &ui.Table{Headers: []string{"deployment", "container", "current", "new"}}
	for _, change := range plan.Changes {
		table.Append(change.Deployment, change.Container, change.From, change.To)
	}
	table.Print(os.Stdout)

	for _, name := range plan.Unchanged {
		printer.Info("%s already runs its override", name)
	}
	for _, name := range plan.Missing {
		printer.Warn("no deployment %s in %s, skipped", name, cfg.KubeNamespace)
	}
	for _, key := range plan.Unknown {
		printer.Warn("%s names no known service, skipped", key)
	}
}

func init() {
	flags := imagesCmd.Flags()
	flags.StringVar(&imagesEnvFile, "env-file", "", "env file with IMAGE_<SERVICE> overrides (default OVERRIDE_FILE)")
	flags.String("namespace", "huly", "kubernetes namespace (default KUBE_NAMESPACE)")
	flags.String("kubeconfig", "", "kubeconfig path (default KUBECONFIG or ~/.kube/config)")
	flags.BoolVar(&imagesDryRun, "dry-run", false, "only print the planned changes")
	cobra.CheckErr(v.BindPFlag(config.KeyKubeNamespace, flags.Lookup("namespace")))
	cobra.CheckErr(v.BindPFlag(config.KeyKubeconfig, flags.Lookup("kubeconfig")))
	rootCmd.AddCommand(imagesCmd)
}
