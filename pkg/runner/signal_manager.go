package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// SignalManager turns OS signals into context cancellation and handles
// platform-specific races (e.g. Windows Stdin EOF vs Interrupt).
type SignalManager struct {
	parent  context.Context
	enabled bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewSignalManager derives a context from parent that is also cancelled on
// SIGINT or SIGTERM. With enabled false only parent cancels it.
func NewSignalManager(parent context.Context, enabled bool) *SignalManager {
	sm := &SignalManager{parent: parent, enabled: enabled}
	sm.Reset()
	return sm
}

// Context returns the current signal context.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Reset re-arms the signal listener with a fresh context.
func (sm *SignalManager) Reset() {
	if sm.cancel != nil {
		sm.cancel()
	}
	if sm.enabled {
		sm.ctx, sm.cancel = signal.NotifyContext(sm.parent, os.Interrupt, syscall.SIGTERM)
		return
	}
	sm.ctx, sm.cancel = context.WithCancel(sm.parent)
}

// Stop permanently stops the signal listener.
func (sm *SignalManager) Stop() {
	if sm.cancel != nil {
		sm.cancel()
	}
}

// CheckRace waits briefly to see if a context cancellation follows an error.
// On Windows/PowerShell Ctrl+C can surface as an input EOF slightly before
// the signal context is cancelled.
func (sm *SignalManager) CheckRace() {
	if sm.ctx.Err() == nil {
		select {
		case <-sm.ctx.Done():
		case <-time.After(100 * time.Millisecond):
		}
	}
}
