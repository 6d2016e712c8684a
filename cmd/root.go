// Package cmd wires the dev verbs onto cobra. The root command with no
// verb is `enter`: build-once, then just type dev.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dev/internal/config"
	"dev/internal/domain"
	"dev/internal/identity"
	"dev/internal/runtime"
	"dev/internal/session"
	"dev/pkg/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "dev",
	Short: "Disposable development containers per directory",
	Long: `dev gives every project directory its own containerized shell.
Run it with no arguments to enter the container for the current
directory: it is created and started on demand, and torn down again
when the last shell exits.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()

		code, err := app.ctl.Enter(cmd.Context())
		if err != nil {
			return err
		}
		exitCode = code
		return nil
	},
}

// exitCode carries a remote shell's exit status out to Execute.
var exitCode int

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		return 1
	}
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cobra.OnInitialize(func() {
		if logLevel != "" {
			logger.Get().SetLogLevel(logLevel)
		}
	})
}

// app bundles the per-invocation collaborators. Everything is rebuilt
// from scratch on every run; nothing persists between invocations.
type app struct {
	ctl      *session.Controller
	rt       *runtime.Client
	resolver *config.Resolver
	cfg      *domain.ResolvedConfig
	id       domain.ContainerIdentity
}

func (a *app) close() {
	if a.rt != nil {
		a.rt.Close()
	}
}

// setup resolves configuration for the current directory and connects
// to the container runtime.
func setup(ctx context.Context) (*app, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}

	resolver, err := config.NewResolver()
	if err != nil {
		return nil, err
	}
	cfg, err := resolver.Resolve(resolver.DefaultSearchPaths(cwd)...)
	if err != nil {
		return nil, err
	}

	rt, err := runtime.NewClient()
	if err != nil {
		return nil, err
	}
	if err := rt.Ping(ctx); err != nil {
		rt.Close()
		return nil, err
	}

	id := identity.NameFor(cwd)
	ctl := session.NewController(rt, session.NewSelector(), cfg, id)
	return &app{ctl: ctl, rt: rt, resolver: resolver, cfg: cfg, id: id}, nil
}

// printError renders a domain error on stderr with the failing kind and
// name so the user knows what to fix, not just that something broke.
func printError(err error) {
	red := color.New(color.FgRed, color.Bold).FprintfFunc()
	yellow := color.New(color.FgYellow).FprintfFunc()

	var (
		cfgErr *domain.ConfigError
		rtErr  *domain.RuntimeError
		selErr *domain.SelectionError
		preErr *domain.PreconditionError
	)
	switch {
	case errors.As(err, &cfgErr):
		red(os.Stderr, "configuration error: ")
		fmt.Fprintln(os.Stderr, cfgErr.Error())
		if cfgErr.Kind == domain.ConfigMissingFile {
			yellow(os.Stderr, "create a dev.env in this directory or under ~/.dev\n")
		}
	case errors.As(err, &rtErr):
		red(os.Stderr, "runtime error: ")
		fmt.Fprintln(os.Stderr, rtErr.Error())
		if rtErr.Kind == domain.RuntimeTransportFailure {
			yellow(os.Stderr, "is the Docker daemon running?\n")
		}
	case errors.As(err, &selErr):
		red(os.Stderr, "selection error: ")
		fmt.Fprintln(os.Stderr, selErr.Error())
	case errors.As(err, &preErr):
		red(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, preErr.Error())
	default:
		red(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err.Error())
	}
}
