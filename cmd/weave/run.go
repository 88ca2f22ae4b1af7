package main

import (
	"github.com/aretw0/weave"
	"github.com/aretw0/weave/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <workflow.json>",
	Short: "Run a workflow",
	Long:  `Executes the workflow from its entry step until EXIT. With a checkpoint store configured, an interrupted run can be resumed with --run-id.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{
			WorkflowPath: args[0],
			Version:      weave.Version,
			Stdin:        cmd.InOrStdin(),
			Stdout:       cmd.OutOrStdout(),
			Stderr:       cmd.ErrOrStderr(),
		}
		opts.ConfigPath, _ = cmd.Flags().GetString("config")
		opts.Vars, _ = cmd.Flags().GetStringArray("var")
		opts.RunID, _ = cmd.Flags().GetString("run-id")
		opts.Channel, _ = cmd.Flags().GetString("channel")
		opts.Checkpoint, _ = cmd.Flags().GetString("checkpoint")
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.Keep, _ = cmd.Flags().GetBool("keep")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")

		cmd.SilenceUsage = true
		return cli.Execute(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArray("var", nil, "Initial variable as key=value (repeatable)")
	runCmd.Flags().String("run-id", "", "Run id used for checkpoints and relay sessions")
	runCmd.Flags().String("channel", "", "I/O channel: stdio, http or redis (overrides config)")
	runCmd.Flags().String("checkpoint", "", "Checkpoint store: none, memory, file or redis (overrides config)")
	runCmd.Flags().Bool("fresh", false, "Discard any checkpoint of --run-id before starting")
	runCmd.Flags().Bool("keep", false, "Keep the checkpoint after the workflow finishes")
	runCmd.Flags().Bool("debug", false, "Log every step at debug level")
	runCmd.Flags().BoolP("quiet", "q", false, "Suppress the banner and system messages")
}
