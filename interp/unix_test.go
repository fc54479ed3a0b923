// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build unix

package interp_test

import (
	"bufio"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/go-quicktest/qt"
	"golang.org/x/sys/unix"

	"mvdan.cc/ash/internal"
	"mvdan.cc/ash/interp"
)

// These tests are not parallel, as they look at every child process
// and at the signal handling of the test binary itself.

func TestNoLeftoverChildren(t *testing.T) {
	lines := []string{
		"echo foo | cat | cat",
		"cat < missing.txt | $PROG status 3",
		"$PROG gen 1000000 | ash-nonexistent-prog | $PROG status 0",
		"$PROG gen 1000000 | true",
		"ash-nonexistent-prog | ash-nonexistent-prog",
	}
	for _, line := range lines {
		run(t, line)

		// Every process that was started has been waited for,
		// so there are no children left, not even zombies.
		_, err := unix.Wait4(-1, nil, unix.WNOHANG, nil)
		qt.Assert(t, qt.ErrorIs(err, unix.ECHILD), qt.Commentf("%q", line))
	}
}

func TestCancel(t *testing.T) {
	tests := []struct {
		killTimeout time.Duration
		want        []uint8
	}{
		// The helpers do not handle interrupts, so they die from them.
		{time.Minute, []uint8{128 + 2, 128 + 2}},
		{-1, []uint8{128 + 9, 128 + 9}},
	}
	for _, tc := range tests {
		pr, pw := io.Pipe()
		r, err := interp.New(interp.StdIO(nil, pw, nil), interp.KillTimeout(tc.killTimeout))
		qt.Assert(t, qt.IsNil(err))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- r.Run(ctx, parse(t, "$PROG hang | $PROG hang"))
			pw.Close()
		}()

		// Only the last stage writes to our stdout; the first stage
		// writes into the pipe and is blocked in its sleep all the same.
		line, err := bufio.NewReader(pr).ReadString('\n')
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(line, "ready\n"))
		go io.Copy(io.Discard, pr)
		cancel()

		select {
		case err := <-done:
			qt.Check(t, qt.Equals(err, error(interp.ExitStatus(tc.want[1]))))
		case <-time.After(10 * time.Second):
			t.Fatalf("pipeline did not stop after cancelling")
		}
		qt.Check(t, qt.DeepEquals(r.PipeStatus(), tc.want))
	}
}

func TestIgnoreInterrupts(t *testing.T) {
	stop := interp.IgnoreInterrupts()
	defer stop()

	// The shell itself survives an interrupt.
	qt.Assert(t, qt.IsNil(unix.Kill(os.Getpid(), unix.SIGINT)))
	time.Sleep(50 * time.Millisecond)

	// The stages it starts get the default behavior back.
	var stderr internal.ConcBuffer
	r, err := interp.New(interp.StdIO(nil, nil, &stderr))
	qt.Assert(t, qt.IsNil(err))
	err = r.Run(context.Background(), parse(t, "$PROG interrupt | $PROG interrupt"))
	qt.Check(t, qt.Equals(err, error(interp.ExitStatus(128+2))))
	qt.Check(t, qt.DeepEquals(r.PipeStatus(), []uint8{128 + 2, 128 + 2}))
	qt.Check(t, qt.Equals(stderr.String(), ""))
}

func TestKillTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("sleeps and timeouts are slow")
	}
	tests := []struct {
		line        string
		killTimeout time.Duration
		want        string
		status      uint8
	}{
		// killed immediately
		{"$PROG trap", -1, "", 128 + 9},
		// interrupted first, and stops itself in time
		{"$PROG trap", time.Minute, "trapped\n", 0},
		// interrupted first, but does not stop itself in time
		{"$PROG trap stay", 50 * time.Millisecond, "trapped\n", 128 + 9},
	}
	for _, tc := range tests {
		pr, pw := io.Pipe()
		r, err := interp.New(interp.StdIO(nil, pw, nil), interp.KillTimeout(tc.killTimeout))
		qt.Assert(t, qt.IsNil(err))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- r.Run(ctx, parse(t, tc.line))
			pw.Close()
		}()
		br := bufio.NewReader(pr)
		line, err := br.ReadString('\n')
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(line, "ready\n"))
		cancel()

		rest, err := io.ReadAll(br)
		qt.Assert(t, qt.IsNil(err))
		qt.Check(t, qt.Equals(string(rest), tc.want), qt.Commentf("%q", tc.line))
		<-done
		qt.Check(t, qt.DeepEquals(r.PipeStatus(), []uint8{tc.status}), qt.Commentf("%q", tc.line))
	}
}
