package cmd

import (
	"github.com/spf13/cobra"

	"dev/internal/srv"
)

var srvPort int

var srvCmd = &cobra.Command{
	Use:   "srv [dir]",
	Short: "Serve a directory over HTTP via dev-srv",
	Long: `Launch the dev-srv static file server for a directory (default: the
current one). The binary is looked up on PATH, then under ~/.dev/bin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		return srv.NewLauncher().Serve(cmd.Context(), srvPort, dir)
	},
}

func init() {
	rootCmd.AddCommand(srvCmd)
	srvCmd.Flags().IntVarP(&srvPort, "port", "p", 8000, "port to listen on")
}
