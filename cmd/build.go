package cmd

import (
	"github.com/spf13/cobra"
)

var buildNoCache bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the dev image from ~/.dev",
	Long: `Build the shared development image from the Dockerfile in ~/.dev.
Every container created by dev runs this image.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		return app.ctl.Build(cmd.Context(), app.resolver.DevDir(), buildNoCache)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "rebuild every layer from scratch")
}
