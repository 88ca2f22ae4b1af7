/*
Package runner drives a workflow controller to completion from a host process.

It bridges the step executor and the outside world: it turns SIGINT/SIGTERM
into context cancellation, checkpoints the controller after every step and
resumes interrupted runs from a CheckpointStore.

# Usage

	ctrl := weave.New(weave.WithChannel(channel.Stdio()), weave.WithRunID("run-1"))
	if err := ctrl.LoadFile("onboarding.json"); err != nil {
		log.Fatal(err)
	}

	r := runner.NewRunner(runner.WithStore(store))
	if _, err := r.Resume(ctx, ctrl); err != nil {
		log.Fatal(err)
	}
	if err := r.Run(ctx, ctrl); err != nil {
		log.Fatal(err)
	}
*/
package runner
