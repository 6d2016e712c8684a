package cmd

import (
	"github.com/spf13/cobra"
)

var (
	execInteractive bool
	execName        string
)

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <command> [args...]",
	Short: "Run a command in the running dev container",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		code, err := app.ctl.Exec(cmd.Context(), execName, args, execInteractive)
		if err != nil {
			return err
		}
		exitCode = code
		return nil
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().BoolVarP(&execInteractive, "interactive", "i", false, "attach stdin")
	execCmd.Flags().StringVar(&execName, "name", "", "target container (default: this directory's)")
}
