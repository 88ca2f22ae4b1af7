/*
Package document provides the read-only workflow document model.

Documents are JSON objects holding either a flat 'steps' array or the legacy
'phases[].steps[]' layout. Parsing is done once with gjson; afterwards the
tree is navigated through Node values without further allocation of Go maps.

	doc, err := document.ParseFile("onboarding.json")
	step, ok := doc.Step(doc.EntryStepID())
	msg, err := document.RequireString(step, "message")
*/
package document
