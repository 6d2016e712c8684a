package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"dev/internal/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List all dev containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		recs, err := app.ctl.Status(cmd.Context())
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("no dev containers")
			return nil
		}
		fmt.Print(renderStatus(recs))
		return nil
	},
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// renderStatus formats the container list as an aligned table with the
// state column colorized.
func renderStatus(recs []domain.ContainerRecord) string {
	var b strings.Builder
	write := func(name, id, state, ports, created string) {
		fmt.Fprintf(&b, "%-22s %-14s %-20s %-20s %s\n", name, id, state, ports, created)
	}

	write(headerStyle.Render("NAME"), headerStyle.Render("ID"),
		headerStyle.Render("STATE"), headerStyle.Render("PORTS"),
		headerStyle.Render("CREATED"))

	for _, rec := range recs {
		state := string(rec.State)
		if rec.Running() {
			state = runningStyle.Render(state)
		} else {
			state = stoppedStyle.Render(state)
		}
		write(rec.Name, rec.ShortID(), state, formatPorts(rec.Ports),
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func formatPorts(ports []domain.PortSpec) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprintf("%d->%d", p.HostPort, p.ContainerPort)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
