package cmd

import (
	"github.com/spf13/cobra"
)

var (
	pruneAll     bool
	pruneVolumes bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Reclaim unused Docker resources",
	Long: `Remove stopped containers, dangling images and unused networks.
--all extends this to every unused image and --volumes to unused
volumes; both ask for confirmation since they reach beyond dev's own
footprint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		return app.ctl.Prune(cmd.Context(), pruneAll, pruneVolumes)
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().BoolVar(&pruneAll, "all", false, "also remove unused non-dangling images")
	pruneCmd.Flags().BoolVar(&pruneVolumes, "volumes", false, "also remove unused volumes")
}
