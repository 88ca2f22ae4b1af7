package main

import (
	"fmt"

	"github.com/aretw0/weave/internal/cli"
	"github.com/aretw0/weave/internal/presentation/graph"
	"github.com/aretw0/weave/pkg/document"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <workflow.json>",
	Short: "Export the workflow graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the workflow's steps and jumps. With --run-id the run's position is highlighted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		doc, err := document.ParseFile(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if runID, _ := cmd.Flags().GetString("run-id"); runID != "" {
			configPath, _ := cmd.Flags().GetString("config")
			store, closeStore, err := cli.OpenStore(configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			cp, err := store.Load(cmd.Context(), runID)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromCheckpoint(cp)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(doc, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run-id", "", "Highlight the position of a stored run")
}
