package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/services"
)

type discoverOptions struct {
	Root string
}

type discoveredFile struct {
	Type       string `json:"type"`
	ClientID   int64  `json:"client_id"`
	ClientName string `json:"client_name"`
	Path       string `json:"path"`
}

type discoverSummary struct {
	Type       string          `json:"type"`
	Root       string          `json:"root"`
	Discovered int             `json:"discovered"`
	Skipped    []skippedFolder `json:"skipped"`
}

func newDiscoverCmd() *cobra.Command {
	var opts discoverOptions
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the BD_AGRO export of every client folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			if opts.Root, err = clientsFolder(cmd, opts.Root, rt.cfg); err != nil {
				return err
			}
			return runDiscover(cmd.Context(), cmd.OutOrStdout(), rt, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Root, "root", "", "Clients folder (overrides BDAGRO_CLIENTS_FOLDER)")
	return cmd
}

func runDiscover(ctx context.Context, out io.Writer, rt *runtime, opts discoverOptions) error {
	locator := services.NewLocator(opts.Root, rt.cfg.BDAgro.ExcludedClients, rt.bus)
	d, err := locator.Discover(ctx)
	if err != nil {
		return err
	}
	for _, f := range d.Files {
		if err := writeJSONLine(out, discoveredFile{
			Type:       "file",
			ClientID:   f.ClientID(),
			ClientName: f.ClientName(),
			Path:       f.Path,
		}); err != nil {
			return err
		}
	}
	summary := discoverSummary{
		Type:       "summary",
		Root:       opts.Root,
		Discovered: len(d.Files),
		Skipped:    []skippedFolder{},
	}
	for _, sk := range d.Skipped {
		summary.Skipped = append(summary.Skipped, skippedFolder{Folder: sk.Folder, Reason: string(sk.Reason)})
	}
	return writeJSONLine(out, summary)
}
