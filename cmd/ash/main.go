// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// ash is a small interactive shell which runs pipelines of programs.
//
// Each input line is split on blanks into stages separated by "|", and
// every stage may redirect its standard streams with "<", ">", ">>",
// "2>", "2>>" and "2>&1". There is no quoting, globbing or variables.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mvdan.cc/ash/interp"
	"mvdan.cc/ash/syntax"
)

const prompt = "(ash) $ "

type flags struct {
	command   string
	trace     bool
	maxStages int
}

func main() {
	os.Exit(main1())
}

func main1() int {
	var fl flags
	status := 0
	cmd := &cobra.Command{
		Use:   "ash [flags] [file...]",
		Short: "Run pipelines of programs, one line at a time",
		Long: `ash reads lines from its standard input, or from the given files, and runs
each line as a pipeline. Without arguments and with a terminal as standard
input, it prompts for lines interactively until "exit" or end of input.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			status, err = runAll(fl, args)
			return err
		},
	}
	cmd.Flags().StringVarP(&fl.command, "command", "c", "", "command to be executed")
	cmd.Flags().BoolVarP(&fl.trace, "xtrace", "x", false, "print each stage to standard error before running it")
	cmd.Flags().IntVar(&fl.maxStages, "max-stages", syntax.DefaultMaxStages, "maximum number of stages in a pipeline")

	if err := cmd.Execute(); err != nil {
		errorf("%v", err)
		return 1
	}
	return status
}

var errPrefix = color.New(color.FgRed, color.Bold)

// errorf reports an interpreter-level error on standard error.
func errorf(format string, a ...any) {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		errPrefix.DisableColor()
	}
	errPrefix.Fprint(os.Stderr, "ash:")
	fmt.Fprintf(os.Stderr, " "+format+"\n", a...)
}

// shell ties together the parser and the runner used for every line.
type shell struct {
	parser *syntax.Parser
	runner *interp.Runner
}

func runAll(fl flags, args []string) (int, error) {
	// Only the running pipeline is interrupted, whatever the input is.
	stop := interp.IgnoreInterrupts()
	defer stop()

	runner, err := interp.New(
		interp.StdIO(os.Stdin, os.Stdout, os.Stderr),
		interp.Trace(fl.trace),
	)
	if err != nil {
		return 1, err
	}
	sh := &shell{
		parser: syntax.NewParser(syntax.MaxStages(fl.maxStages)),
		runner: runner,
	}
	ctx := context.Background()

	if fl.command != "" {
		return sh.runReader(ctx, strings.NewReader(fl.command))
	}
	if len(args) == 0 {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return sh.interactive(ctx)
		}
		// Programs in a pipeline share our standard input,
		// so we must not read past the end of each line.
		return sh.runReader(ctx, unbufferedReader{os.Stdin})
	}
	for _, path := range args {
		status, exited, err := sh.runPath(ctx, path)
		if err != nil || exited {
			return status, err
		}
	}
	return 0, nil
}

func (sh *shell) runPath(ctx context.Context, path string) (status int, exited bool, _ error) {
	f, err := os.Open(path)
	if err != nil {
		return 1, false, err
	}
	defer f.Close()
	status, err = sh.runReader(ctx, f)
	return status, sh.runner.Exited(), err
}

// runReader runs every line from r, stopping early at the exit built-in.
// The end of input is a successful exit, whatever the last line's status.
func (sh *shell) runReader(ctx context.Context, r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			status := sh.runLine(ctx, line)
			if sh.runner.Exited() {
				return status, nil
			}
		}
		if err == io.EOF {
			return 0, nil
		}
		if err != nil {
			return 1, err
		}
	}
}

// runLine parses and runs a single line, reporting any errors, and returns
// the resulting status. It never stops the shell by itself.
func (sh *shell) runLine(ctx context.Context, line string) int {
	pl, err := sh.parser.Parse(line)
	if err != nil {
		errorf("%v", err)
		return 2
	}
	err = sh.runner.Run(ctx, pl)
	if status, ok := interp.IsExitStatus(err); ok {
		return int(status)
	}
	if err != nil {
		errorf("%v", err)
		return 1
	}
	return 0
}

func (sh *shell) interactive(ctx context.Context) (int, error) {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	for {
		line, err := ln.Prompt(prompt)
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			continue
		case errors.Is(err, io.EOF):
			fmt.Println()
			return 0, nil
		case err != nil:
			return 1, err
		}
		status := sh.runLine(ctx, line)
		if sh.runner.Exited() {
			return status, nil
		}
	}
}

// unbufferedReader reads one byte at a time, so that wrapping it in a
// [bufio.Reader] never consumes more than the line being read.
type unbufferedReader struct {
	r io.Reader
}

func (u unbufferedReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return u.r.Read(p[:1])
}
