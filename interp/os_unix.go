// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build unix

package interp

import (
	"os"

	"golang.org/x/sys/unix"
)

// interruptSignals are the signals which a terminal sends to its whole
// foreground process group when the user interrupts it.
var interruptSignals = []os.Signal{unix.SIGINT}
