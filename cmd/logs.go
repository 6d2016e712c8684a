package cmd

import (
	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsLines  int
	logsName   string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show a dev container's output",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		return app.ctl.Logs(cmd.Context(), logsName, logsFollow, logsLines)
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "keep streaming new output")
	logsCmd.Flags().IntVar(&logsLines, "lines", 0, "only show the last N lines")
	logsCmd.Flags().StringVar(&logsName, "name", "", "target container (default: this directory's)")
}
