/*
Package weave executes interactive CI workflows described as JSON documents.

A workflow is an ordered list of steps. Each step has a type (display,
user_ask, decide, ci_analyze, workflow_call...) and names the step that runs
after it. Execution starts at the first step and ends when a step moves to
EXIT.

# Concept

The controller owns the run: the variable context, loop and recursion
counters, retries and on_error recovery. Everything outside the process is
reached through ports: an AI Provider, an I/O Channel (terminal, HTTP relay,
Redis relay) and a CheckpointStore used to stop and resume long runs.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/weave"
		"github.com/aretw0/weave/pkg/channel"
	)

	func main() {
		ctrl, err := weave.Open("./review.json",
			weave.WithChannel(channel.Stdio()),
			weave.WithVariables(map[string]string{"repo": "api"}),
		)
		if err != nil {
			log.Fatal(err)
		}

		if err := ctrl.ExecuteAllSteps(context.Background()); err != nil {
			log.Fatal(err)
		}
	}

Use Run with runner.WithStore to checkpoint after every step, and the weave
command (cmd/weave) for the configured, signal-aware CLI.
*/
package weave
