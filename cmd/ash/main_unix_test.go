// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build unix

package main

import (
	"bufio"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/go-quicktest/qt"
	"golang.org/x/sys/unix"
)

// Like a terminal does on Ctrl-C, interrupt the shell and the pipeline it
// is running at once, with input that is not a terminal.
func TestInterruptNonInteractive(t *testing.T) {
	t.Parallel()
	ash, err := exec.LookPath("ash")
	qt.Assert(t, qt.IsNil(err))

	tests := []struct {
		name string
		args []string
	}{
		{"Stdin", nil},
		{"Command", []string{"-c", "hang | hang\nupper after\n"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cmd := exec.Command(ash, tc.args...)
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
			stdin, err := cmd.StdinPipe()
			qt.Assert(t, qt.IsNil(err))
			stdout, err := cmd.StdoutPipe()
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.IsNil(cmd.Start()))
			timer := time.AfterFunc(20*time.Second, func() {
				cmd.Process.Kill()
			})
			defer timer.Stop()

			if tc.args == nil {
				_, err := stdin.Write([]byte("hang | hang\n"))
				qt.Assert(t, qt.IsNil(err))
			}
			out := bufio.NewReader(stdout)
			readUntil(t, out, "ready\n")

			// The stages share the shell's process group.
			qt.Assert(t, qt.IsNil(unix.Kill(-cmd.Process.Pid, unix.SIGINT)))

			if tc.args == nil {
				_, err := stdin.Write([]byte("upper after\n"))
				qt.Assert(t, qt.IsNil(err))
			}
			qt.Assert(t, qt.IsNil(stdin.Close()))
			readUntil(t, out, "AFTER\n")
			qt.Assert(t, qt.IsNil(cmd.Wait()))
		})
	}
}
