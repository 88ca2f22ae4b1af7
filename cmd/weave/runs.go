package main

import (
	"github.com/aretw0/weave/internal/cli"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage stored runs",
	Long:  `List, inspect, and remove run checkpoints kept by the configured store (file store by default).`,
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored runs",
	RunE: withStore(func(cmd *cobra.Command, store ports.CheckpointStore, args []string) error {
		return cli.ListRuns(cmd.Context(), store, cmd.OutOrStdout())
	}),
}

var runsInspectCmd = &cobra.Command{
	Use:   "inspect <run-id>",
	Short: "Inspect the checkpoint of a run",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(cmd *cobra.Command, store ports.CheckpointStore, args []string) error {
		return cli.InspectRun(cmd.Context(), store, args[0], cmd.OutOrStdout())
	}),
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Remove one or more runs",
	Args:  cobra.MinimumNArgs(1),
	RunE: withStore(func(cmd *cobra.Command, store ports.CheckpointStore, args []string) error {
		return cli.RemoveRuns(cmd.Context(), store, args, cmd.OutOrStdout())
	}),
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsLsCmd)
	runsCmd.AddCommand(runsInspectCmd)
	runsCmd.AddCommand(runsRmCmd)
}

func withStore(fn func(*cobra.Command, ports.CheckpointStore, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		configPath, _ := cmd.Flags().GetString("config")
		store, closeStore, err := cli.OpenStore(configPath)
		if err != nil {
			return err
		}
		defer closeStore()
		return fn(cmd, store, args)
	}
}
