package cmd

import (
	"github.com/spf13/cobra"
)

var (
	deleteName  string
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove a dev container",
	Long: `Remove a dev container. Running containers are refused unless
--force is given, in which case they are stopped first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		return app.ctl.Delete(cmd.Context(), deleteName, deleteForce)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().StringVar(&deleteName, "name", "", "container to delete (default: this directory's)")
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "stop the container first if running")
}
