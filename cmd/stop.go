package cmd

import (
	"github.com/spf13/cobra"
)

var stopName string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running dev container",
	Long: `Stop a running dev container without removing it. With no --name
and several containers running, an interactive picker is shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		return app.ctl.Stop(cmd.Context(), stopName)
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().StringVar(&stopName, "name", "", "container to stop")
}
