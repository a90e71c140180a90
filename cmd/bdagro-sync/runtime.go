package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/entity"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/services"
	"github.com/agrotomo/bdagro-sync/pkg/configuration"
	"github.com/agrotomo/bdagro-sync/pkg/eventbus"
)

// runtime is what every command shares: configuration, a logger and the
// event bus carrying pipeline progress.
type runtime struct {
	cfg *configuration.Configuration
	log *logrus.Entry
	bus eventbus.EventBus
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	envFiles, err := cmd.Flags().GetStringSlice("env-file")
	if err != nil {
		envFiles = configuration.DefaultEnvFiles
	}
	cfg, err := configuration.Load(envFiles)
	if err != nil {
		return nil, withStatus(exitUsage, fmt.Errorf("load configuration: %w", err))
	}
	log := logrus.NewEntry(cfg.Logger()).WithField("command", cmd.Name())
	bus := eventbus.New(log)
	services.SubscribeLogging(bus, log)
	services.SubscribeMetrics(bus)
	return &runtime{cfg: cfg, log: log, bus: bus}, nil
}

func (r *runtime) Close() {
	if path := r.cfg.BDAgro.MetricsFile; path != "" {
		if err := services.WriteMetrics(path); err != nil {
			r.log.WithError(err).WithField("path", path).Warn("write metrics")
		}
	}
	r.cfg.Unload()
}

// stringFlag returns the flag value when it was set on the command line and
// fallback otherwise.
func stringFlag(cmd *cobra.Command, name, value, fallback string) string {
	if cmd.Flags().Changed(name) {
		return value
	}
	return fallback
}

func boolFlag(cmd *cobra.Command, name string, value, fallback bool) bool {
	if cmd.Flags().Changed(name) {
		return value
	}
	return fallback
}

func clientsFolder(cmd *cobra.Command, flag string, cfg *configuration.Configuration) (string, error) {
	root := strings.TrimSpace(stringFlag(cmd, "root", flag, cfg.BDAgro.ClientsFolder))
	if root == "" {
		return "", withStatus(exitUsage, fmt.Errorf("--root or BDAGRO_CLIENTS_FOLDER is required"))
	}
	return root, nil
}

func selection(cmd *cobra.Command, flag string, cfg *configuration.Configuration) (entity.Selection, error) {
	raw := stringFlag(cmd, "clients", flag, cfg.BDAgro.ClientIDs)
	sel, err := entity.ParseSelection(raw)
	if err != nil {
		return entity.Selection{}, withStatus(exitUsage, fmt.Errorf("invalid --clients: %w", err))
	}
	return sel, nil
}
