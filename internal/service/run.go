package service

import (
	"context"
	"log/slog"

	"github.com/CZERTAINLY/Launcher/internal/model"
)

// Run implements CLI run command
func Run(ctx context.Context, cfg model.Config, settings Config, logger *slog.Logger) error {
	supervisor, err := SupervisorFromConfig(ctx, cfg, settings, settings.Runner(logger))
	if err != nil {
		return err
	}
	return supervisor.Do(ctx)
}
