// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"os"
	"os/signal"
)

// IgnoreInterrupts makes the current process survive interrupt signals,
// such as the one sent by a terminal on Ctrl-C, so that an interactive
// shell only loses the pipeline that was running. It should be called once,
// before running any pipeline.
//
// The signals are caught and dropped rather than ignored: an ignored signal
// stays ignored in the programs started by the runner, whereas a caught one
// reverts to its default disposition. The returned func restores the
// default behavior.
func IgnoreInterrupts() (stop func()) {
	c := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(c, interruptSignals...)
	go func() {
		for {
			select {
			case <-c:
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(c)
		close(done)
	}
}
