// Package cancel provides the engine's single process-global
// cancellation flag. It is set by the interrupt signal handler and
// polled by the stage executor between page loads and between
// completions. The catalog store installs no long-query hook, so a
// single running SQL statement is not interrupted by the flag.
package cancel

import (
	"os"
	"os/signal"
	"sync/atomic"
)

// Flag is an atomic cancellation flag safe for concurrent polling from
// many worker goroutines and setting from a signal handler.
type Flag struct {
	set atomic.Bool
}

// New returns an unset Flag.
func New() *Flag {
	return &Flag{}
}

// Set marks the flag as triggered. Idempotent.
func (f *Flag) Set() {
	f.set.Store(true)
}

// IsSet reports whether cancellation has been requested.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}

// WatchInterrupt installs a SIGINT (os.Interrupt) handler that sets f and
// returns a stop function that removes the handler. Call stop when the
// operation the flag guards has finished, successfully or not.
func WatchInterrupt(f *Flag) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	done := make(chan struct{})

	go func() {
		select {
		case <-ch:
			f.Set()
		case <-done:
		}
	}()

	return func() {
		close(done)
		signal.Stop(ch)
	}
}
