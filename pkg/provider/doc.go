// Package provider contains the AI provider adapters the engine queries for
// rephrasing, analysis and chat turns, plus middleware that bounds them.
//
// Every adapter satisfies ports.Provider. Failures are reported as
// domain.ErrResourceUnavailable so step retry policies apply to them.
package provider
