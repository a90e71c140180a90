package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/infrastructure/spreadsheet"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/services"
)

type mergeOptions struct {
	Root            string
	Clients         string
	Output          string
	Format          string
	Stage           string
	HarvestEstimate bool
}

func newMergeCmd() *cobra.Command {
	var opts mergeOptions
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge and normalize the selected exports into a JSON file",
		Long:  "Merge and normalize the selected exports into a JSON file. The database is never touched and grupo stays null.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			return runMerge(cmd.Context(), cmd, cmd.OutOrStdout(), rt, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Root, "root", "", "Clients folder (overrides BDAGRO_CLIENTS_FOLDER)")
	cmd.Flags().StringVar(&opts.Clients, "clients", "", "Comma separated client ids (overrides BDAGRO_CLIENT_IDS)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "JSON output path (overrides BDAGRO_OUTPUT_FILE)")
	cmd.Flags().StringVar(&opts.Format, "format", "", "JSON layout: lines|array (overrides BDAGRO_JSON_FORMAT)")
	cmd.Flags().StringVar(&opts.Stage, "export-stage", string(services.ExportNormalized), "Table exported: normalized|merged")
	cmd.Flags().BoolVar(&opts.HarvestEstimate, "harvest-estimate", false, "Add tc_est_colheita (overrides BDAGRO_HARVEST_ESTIMATE)")
	return cmd
}

func runMerge(ctx context.Context, cmd *cobra.Command, out io.Writer, rt *runtime, opts mergeOptions) error {
	root, err := clientsFolder(cmd, opts.Root, rt.cfg)
	if err != nil {
		return err
	}
	sel, err := selection(cmd, opts.Clients, rt.cfg)
	if err != nil {
		return err
	}
	export, err := exportOptions(cmd, opts.Output, opts.Format, opts.Stage, rt)
	if err != nil {
		return err
	}

	pipeline, err := services.NewPipeline(services.PipelineDeps{
		Files:  services.NewLocator(root, rt.cfg.BDAgro.ExcludedClients, rt.bus),
		Reader: spreadsheet.NewReader(),
		Events: rt.bus,
		Logger: rt.log,
	})
	if err != nil {
		return err
	}
	report, _, err := pipeline.Run(ctx, services.Options{
		Selection:       sel,
		HarvestEstimate: boolFlag(cmd, "harvest-estimate", opts.HarvestEstimate, rt.cfg.BDAgro.HarvestEstimate),
		Export:          export,
	})
	if err != nil {
		return err
	}
	return writeJSONLine(out, newRunSummary("merge", "merged", root, sel.IDs(), report))
}

func exportOptions(cmd *cobra.Command, output, format, stage string, rt *runtime) (*services.ExportOptions, error) {
	path := stringFlag(cmd, "output", output, rt.cfg.BDAgro.OutputFile)
	if path == "" {
		return nil, withStatus(exitUsage, fmt.Errorf("--output or BDAGRO_OUTPUT_FILE is required"))
	}
	f, err := services.ParseJSONFormat(stringFlag(cmd, "format", format, rt.cfg.BDAgro.JSONFormat))
	if err != nil {
		return nil, withStatus(exitUsage, err)
	}
	s, err := services.ParseExportStage(stage)
	if err != nil {
		return nil, withStatus(exitUsage, err)
	}
	return &services.ExportOptions{Path: path, Format: f, Stage: s}, nil
}
