package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/CZERTAINLY/Launcher/internal/log"
	"github.com/CZERTAINLY/Launcher/internal/model"
	"github.com/CZERTAINLY/Launcher/internal/process"
	"github.com/CZERTAINLY/Launcher/internal/service"
	"github.com/CZERTAINLY/Launcher/internal/tokenize"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

// exitCodeError makes the process exit with the code of a launched process.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

func (l *launcher) execCmd() *cobra.Command {
	var (
		script  string
		input   string
		dir     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "exec COMMAND [ARG...]",
		Short: "exec starts a single process and exits with its code",
		Long: `exec starts a single process and exits with its code.

Arguments after COMMAND belong to the process, flags of exec must precede it.
Without --timeout the process runs until it exits, unless LAUNCHER_TIMEOUT
sets a default bound. --timeout 0 selects the default bound of 1000 minutes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := process.NewSpec(tokenize.Join(args), script)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("input") {
				spec = spec.WithInput(input)
			}
			if dir != "" {
				spec = spec.WithDir(dir)
			}
			bounded := cmd.Flags().Changed("timeout")
			if !bounded && l.settings.Timeout > 0 {
				timeout, bounded = l.settings.Timeout, true
			}
			return l.doExec(cmd.Context(), spec, timeout, bounded)
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&script, "script", "", "additional arguments, tokenized like COMMAND")
	cmd.Flags().StringVar(&input, "input", "", "text written to the process standard input, followed by a newline")
	cmd.Flags().StringVar(&dir, "dir", "", "working directory, created when missing")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "kill the process after this duration")
	return cmd
}

func (l *launcher) doExec(ctx context.Context, spec process.Spec, timeout time.Duration, bounded bool) error {
	ctx = log.ContextAttrs(ctx, slog.Group("launcher",
		slog.String("cmd", "exec"),
		slog.Int("pid", os.Getpid()),
	))

	runner := l.settings.Runner(l.logger)
	var res process.Result
	if bounded {
		res = runner.RunWithTimeout(ctx, spec, timeout)
	} else {
		res = runner.Run(ctx, spec)
	}
	if res.Success() {
		return nil
	}
	return &exitCodeError{code: res.Code(), err: res.AsError()}
}

func (l *launcher) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run reads the job file and runs its jobs",
		RunE:  l.doRun,
	}
	cmd.Flags().Int("parallelism", 0, "jobs running at once unless the job file says otherwise")
	mustBind(l.v, "parallelism", cmd.Flags().Lookup("parallelism"))
	return cmd
}

func (l *launcher) doRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := l.loadJobFile()
	if err != nil {
		return err
	}

	// a verbose job file enables debug logs as --verbose does
	if v := cfg.Service.Verbose; v != nil && *v && !l.settings.Verbose {
		l.settings.Verbose = true
		l.setupLogging(cmd)
	}
	slog.DebugContext(ctx, "launcher run", "configPath", l.configPath, "jobs", len(cfg.Jobs))

	ctx = log.ContextAttrs(ctx, slog.Group("launcher",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	))
	return service.Run(ctx, cfg, l.settings, l.logger)
}

// loadJobFile loads the job file named by --config, LAUNCHERCONFIG or the
// first launcher.yaml found in the user config directory or the current one.
func (l *launcher) loadJobFile() (model.Config, error) {
	switch {
	case l.flagConfigFilePath != "":
		l.configPath = l.flagConfigFilePath
	default:
		if envConfig, ok := os.LookupEnv("LAUNCHERCONFIG"); ok && envConfig != "" {
			l.configPath = envConfig
			break
		}
		for _, d := range []string{l.userConfigPath, "."} {
			if d == "" {
				continue
			}
			path := filepath.Join(d, "launcher.yaml")
			if exists(path) {
				l.configPath = path
				break
			}
		}
	}
	if l.configPath == "" {
		return model.Config{}, errors.New("no job file found: use --config or create one with `launcher config`")
	}

	f, err := os.Open(l.configPath)
	if err != nil {
		return model.Config{}, fmt.Errorf("opening job file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	cfg, err := model.LoadConfig(f)
	if err != nil {
		for _, d := range model.ErrDetails(err) {
			slog.Error(d)
		}
		return model.Config{}, fmt.Errorf("parsing job file %s: %w", l.configPath, err)
	}
	return cfg, nil
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "config prints a default job file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(model.DefaultConfig(cmd.Context())); err != nil {
				return fmt.Errorf("encoding job file: %w", err)
			}
			return enc.Close()
		},
	}
}

func (l *launcher) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "version provide version of a launcher",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			info, ok := debug.ReadBuildInfo()
			if !ok {
				fmt.Fprintln(w, "launcher: version info not available")
				return
			}

			fmt.Fprintf(w, "launcher: %s\n", info.Main.Version)
			fmt.Fprintf(w, "go:       %s\n", info.GoVersion)
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					fmt.Fprintf(w, "commit:   %s\n", s.Value)
				case "vcs.time":
					fmt.Fprintf(w, "date:     %s\n", s.Value)
				case "vcs.modified":
					fmt.Fprintf(w, "dirty:    %s\n", s.Value)
				}
			}
		},
	}
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
