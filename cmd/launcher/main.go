package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/CZERTAINLY/Launcher/internal/log"
	"github.com/CZERTAINLY/Launcher/internal/service"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		stop()
		os.Exit(exitErr.code)
	}
	slog.Error("launcher failed", "err", err)
	stop()
	os.Exit(1)
}

// launcher is the state shared by the subcommands of a single execution.
type launcher struct {
	v              *viper.Viper
	settings       service.Config
	logger         *slog.Logger
	userConfigPath string // /default/config/path/launcher on given OS
	configPath     string // actual job file used (if loaded)

	flagConfigFilePath string // value of --config flag
}

func newRootCmd() *cobra.Command {
	l := &launcher{v: service.NewViper()}
	if d, err := os.UserConfigDir(); err == nil {
		l.userConfigPath = filepath.Join(d, "launcher")
	}

	rootCmd := &cobra.Command{
		Use:          "launcher",
		Short:        "Starts external processes and logs their output",
		SilenceUsage: true,
		// never print messages
		SilenceErrors: true,
		// parse settings, setup logging
		PersistentPreRunE: l.init,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&l.flagConfigFilePath, "config", "", "Job file to load - default is launcher.yaml in current directory or in "+l.userConfigPath)
	flags.Bool("verbose", false, "verbose logging")
	flags.Duration("wait-delay", 0, "how long to wait for output after the process is killed")
	flags.Int("max-line-bytes", 0, "longest output line logged, the rest of the output is discarded")
	mustBind(l.v, "verbose", flags.Lookup("verbose"))
	mustBind(l.v, "wait_delay", flags.Lookup("wait-delay"))
	mustBind(l.v, "max_line_bytes", flags.Lookup("max-line-bytes"))

	rootCmd.AddCommand(l.execCmd())
	rootCmd.AddCommand(l.runCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(l.versionCmd())
	return rootCmd
}

func (l *launcher) init(cmd *cobra.Command, _ []string) error {
	settings, err := service.ParseConfig(l.v)
	if err != nil {
		return fmt.Errorf("parsing settings: %w", err)
	}
	l.settings = settings
	l.setupLogging(cmd)
	slog.Debug("launcher started", "settings", l.settings)
	return nil
}

func (l *launcher) setupLogging(cmd *cobra.Command) {
	l.logger = log.New(cmd.ErrOrStderr(), l.settings.Verbose)
	slog.SetDefault(l.logger)
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
