package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agrotomo/bdagro-sync/pkg/configuration"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bdagro-sync",
		Short:         "Merge BD_AGRO client exports and sync them into Postgres",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSlice("env-file", configuration.DefaultEnvFiles, "Env files loaded before the environment")

	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newMergeCmd())
	cmd.AddCommand(newSyncCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitStatus(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
