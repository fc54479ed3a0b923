// Copyright (c) 2019, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build unix

package interp_test

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/creack/pty"

	"mvdan.cc/ash/interp"
)

func TestRunnerTerminalStdIO(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files func(*testing.T) (secondary io.Writer, primary io.Reader)
		want  map[string]string
	}{
		{"Nil", func(t *testing.T) (io.Writer, io.Reader) {
			return nil, strings.NewReader("\n")
		}, nil},
		{"Pipe", func(t *testing.T) (io.Writer, io.Reader) {
			pr, pw := io.Pipe()
			return pw, pr
		}, map[string]string{
			"$PROG tty":                   "end\n",
			"$PROG tty 2>&1 | cat":        "end\n",
			"$PROG tty < /dev/null":       "end\n",
			"cat < /dev/null | $PROG tty": "end\n",
		}},
		{"Pseudo", func(t *testing.T) (io.Writer, io.Reader) {
			ptmx, tty, err := pty.Open()
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() {
				tty.Close()
				ptmx.Close()
			})
			return tty, ptmx
		}, map[string]string{
			"$PROG tty":                   "012end\r\n",
			"$PROG tty 2>&1 | cat":        "0end\r\n",
			"$PROG tty < /dev/null":       "12end\r\n",
			"cat < /dev/null | $PROG tty": "12end\r\n",
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if test.want == nil {
				// Without any standard streams, nothing is a terminal
				// and there is nothing to read back.
				r, err := interp.New(interp.StdIO(nil, nil, nil))
				if err != nil {
					t.Fatal(err)
				}
				if err := r.Run(context.Background(), parse(t, "$PROG tty")); err != nil {
					t.Fatal(err)
				}
				return
			}

			secondary, primary := test.files(t)
			// some secondaries can be used as stdin too, like a tty
			secondaryReader, _ := secondary.(io.Reader)
			br := bufio.NewReader(primary)

			for line, want := range test.want {
				r, err := interp.New(interp.StdIO(secondaryReader, secondary, secondary))
				if err != nil {
					t.Fatal(err)
				}
				done := make(chan error, 1)
				go func() {
					// To mimic os/exec.Cmd.Start, use a goroutine.
					done <- r.Run(context.Background(), parse(t, line))
				}()

				got, err := br.ReadString('\n')
				if err != nil {
					t.Fatal(err)
				}
				if got != want {
					t.Fatalf("%q:\nwant: %q\ngot:  %q", line, want, got)
				}
				if err := <-done; err != nil {
					t.Fatal(err)
				}
			}
		})
	}
}
