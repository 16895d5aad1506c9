package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/natejswenson/traefik-local-cli/internal/config"
	"github.com/natejswenson/traefik-local-cli/internal/connector"
	"github.com/natejswenson/traefik-local-cli/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	logger  = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "traefik-local",
	Short: "Connect local services to a shared traefik docker-compose stack",
	Long: `traefik-local inspects a service's source tree, generates a Dockerfile
when one is missing, and adds the service to your shared docker-compose
file with traefik routing labels, then builds and starts it.

The compose file is changed transactionally: it is backed up first,
the merged result is verified, and it is swapped in atomically.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ce *connector.Error
	if !errors.As(err, &ce) && !errors.Is(err, errReported) {
		fmt.Fprint(os.Stderr, ui.FormatError(err.Error(), "", "run 'traefik-local --help' for usage"))
	}
	return connector.ExitCode(err)
}

// errReported marks a failure the command already printed.
var errReported = errors.New("reported")

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: traefik-local.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every pipeline step to stderr")
}

func initConfig() {
	if err := config.Init(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
	}
}
