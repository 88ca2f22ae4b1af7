/*
Package dsl builds workflow documents in Go instead of hand-written JSON.

It is useful for generated workflows and for tests, where a typo in a field
name should fail at compile time rather than at step dispatch.

	b := dsl.New("release")
	b.Step("1").Ask("Version?", "version").Next("2")
	b.Step("2").Decide("version", "3", "1")
	b.Step("3").Display("Releasing {{version}}").Exit()

	doc, err := b.Build()
	if err != nil {
		return err
	}
	ctrl := weave.New(weave.WithChannel(channel.Stdio()))
	err = ctrl.Load(doc)
*/
package dsl
