package cmd

import (
	"github.com/spf13/cobra"
)

var pruneImagesForce bool

var pruneImagesCmd = &cobra.Command{
	Use:   "prune-images",
	Short: "Remove all dev images",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		return app.ctl.PruneImages(cmd.Context(), pruneImagesForce)
	},
}

func init() {
	rootCmd.AddCommand(pruneImagesCmd)
	pruneImagesCmd.Flags().BoolVarP(&pruneImagesForce, "force", "f", false, "skip confirmation")
}
