package cmd

import (
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Stop and remove every dev container",
	Long: `Stop and remove all containers managed by dev, best effort: a
failure on one container does not stop the sweep.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		return app.ctl.Cleanup(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
