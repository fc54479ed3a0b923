// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package interp implements a runner that executes parsed pipelines, with
// one operating system process per stage.
//
// Stages are connected with anonymous pipes, and each stage's redirections
// are resolved onto its own standard streams before its program starts.
// A call to [Runner.Run] only returns once every process it started has
// been waited for.
package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"mvdan.cc/ash/syntax"
)

// A Runner executes pipelines. It can be reused, but it is not safe for
// concurrent use. Use [New] to build a new Runner.
//
// Note that writes to Stdout and Stderr may be concurrent, as every stage
// of a pipeline runs at the same time. If you plan on using an [io.Writer]
// implementation that isn't safe for concurrent use, consider a workaround
// like hiding writes behind a mutex. Writers which are not an [*os.File]
// also need a goroutine per stage to copy the output.
//
// Runner's exported fields are meant to be configured via [RunnerOption];
// once a Runner has been created, the fields should be treated as read-only.
type Runner struct {
	// Env specifies the environment of the executed programs, as a list of
	// "key=value" strings. It also provides the PATH used to find them.
	// It can only be set via [Env].
	Env []string

	// Dir specifies the working directory of the executed programs, which
	// must be an absolute path. Relative redirection files are opened from
	// it as well. It can only be set via [Dir].
	Dir string

	stdin  *os.File
	stdout io.Writer
	stderr io.Writer

	killTimeout time.Duration
	trace       bool

	exit       exitStatus
	pipeStatus []uint8
}

// exitStatus holds the state of the shell after running one pipeline.
type exitStatus struct {
	code    uint8
	exiting bool // whether the "exit" built-in was run
}

func (e *exitStatus) ok() bool { return e.code == 0 }

// New creates a new Runner, applying a number of options. If applying any of
// the options results in an error, it is returned.
//
// Any unset options fall back to their defaults. For example, not supplying the
// environment falls back to the process's environment, and not supplying the
// standard output writer means that the output will be discarded.
func New(opts ...RunnerOption) (*Runner, error) {
	r := &Runner{killTimeout: 2 * time.Second}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	// Set the default fallbacks, if necessary.
	if r.Env == nil {
		Env(nil)(r)
	}
	if r.Dir == "" {
		if err := Dir("")(r); err != nil {
			return nil, err
		}
	}
	if r.stdout == nil || r.stderr == nil {
		StdIO(r.stdin, r.stdout, r.stderr)(r)
	}
	return r, nil
}

// RunnerOption can be passed to [New] to alter a [Runner]'s behaviour.
// It can also be applied directly on an existing Runner,
// such as interp.Trace(true)(runner).
type RunnerOption func(*Runner) error

// Env sets the environment of the executed programs. If nil, a copy of the
// current process's environment is used.
func Env(env []string) RunnerOption {
	return func(r *Runner) error {
		if env == nil {
			env = os.Environ()
		}
		r.Env = env
		return nil
	}
}

// Dir sets the interpreter's working directory. If empty, the process's current
// directory is used.
func Dir(path string) RunnerOption {
	return func(r *Runner) error {
		if path == "" {
			path, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("could not get current dir: %w", err)
			}
			r.Dir = path
			return nil
		}
		path, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("could not get absolute dir: %w", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("could not stat: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", path)
		}
		r.Dir = path
		return nil
	}
}

// Trace makes the runner print every stage to standard error, prefixed
// by "+ ", before the pipeline starts.
func Trace(enabled bool) RunnerOption {
	return func(r *Runner) error {
		r.trace = enabled
		return nil
	}
}

// KillTimeout sets how long to wait after interrupting the running stages,
// once the context passed to [Runner.Run] is cancelled, before killing
// them. A negative value means that a kill signal will be sent immediately.
// The default is two seconds.
func KillTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) error {
		r.killTimeout = d
		return nil
	}
}

func stdinFile(r io.Reader) (*os.File, error) {
	switch r := r.(type) {
	case *os.File:
		return r, nil
	case nil:
		return nil, nil
	default:
		pr, pw, err := os.Pipe()
		if err != nil {
			return nil, err
		}
		go func() {
			io.Copy(pw, r)
			pw.Close()
		}()
		return pr, nil
	}
}

// StdIO configures the standard input, standard output, and standard error
// inherited by the first and last stages of each pipeline. If out or err are
// nil, they default to a writer that discards the output. A nil in means
// that the first stage reads from the null device.
//
// Note that providing a non-nil standard input other than [*os.File] will require
// an [os.Pipe] and spawning a goroutine to copy into it,
// as an [os.File] is the only way to share a reader with subprocesses.
// This may cause the interpreter to consume the entire reader.
// See [os/exec.Cmd.Stdin].
func StdIO(in io.Reader, out, err io.Writer) RunnerOption {
	return func(r *Runner) error {
		stdin, _err := stdinFile(in)
		if _err != nil {
			return _err
		}
		r.stdin = stdin
		if out == nil {
			out = io.Discard
		}
		r.stdout = out
		if err == nil {
			err = io.Discard
		}
		r.stderr = err
		return nil
	}
}

// ExitStatus is a non-zero status code resulting from running a pipeline.
// The status of a pipeline is the status of its last stage.
type ExitStatus uint8

func (s ExitStatus) Error() string { return fmt.Sprintf("exit status %d", s) }

// IsExitStatus checks whether error contains an exit status and returns it.
func IsExitStatus(err error) (status uint8, ok bool) {
	var es ExitStatus
	if errors.As(err, &es) {
		return uint8(es), true
	}
	return 0, false
}

// Run executes a pipeline and waits for all of its stages to finish.
//
// A nil pipeline is a no-op. If the last stage finished with a non-zero
// status, the returned error is an [ExitStatus]. Other errors, such as a
// failure to create the pipes, mean that the pipeline never started.
// Failures of individual stages never stop the other stages, and are
// reported on the failing stage's standard error.
func (r *Runner) Run(ctx context.Context, pl *syntax.Pipeline) error {
	r.exit = exitStatus{}
	r.pipeStatus = r.pipeStatus[:0]
	if pl == nil || len(pl.Stages) == 0 {
		return nil
	}
	switch pl.Kind {
	case syntax.BuiltinExit:
		r.exitBuiltin(pl.Stages[0].Args[1:])
	case syntax.External:
		if err := r.pipeline(ctx, pl); err != nil {
			r.exit.code = 1
			return err
		}
	default:
		return fmt.Errorf("unsupported pipeline kind: %v", pl.Kind)
	}
	if !r.exit.ok() {
		return ExitStatus(r.exit.code)
	}
	return nil
}

// Exited reports whether the last Run call should exit an entire shell. This
// is triggered by the "exit" built-in command.
//
// Note that this state is overwritten at every Run call, so it should be
// checked immediately after each Run call.
func (r *Runner) Exited() bool {
	return r.exit.exiting
}

// PipeStatus returns the exit status of every stage of the last pipeline
// run, in pipeline order. A stage which could not be started has a status
// of 1 if one of its redirections failed, 126 if its program could not be
// started, and 127 if its program could not be found.
func (r *Runner) PipeStatus() []uint8 {
	return append([]uint8(nil), r.pipeStatus...)
}

func (r *Runner) exitBuiltin(args []string) {
	r.exit.exiting = true
	switch len(args) {
	case 0:
	case 1:
		n, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			r.errf("exit: %s: numeric argument required\n", args[0])
			r.exit.code = 2
			return
		}
		r.exit.code = uint8(n)
	default:
		r.errf("exit: too many arguments\n")
		r.exit.code = 2
	}
}

func (r *Runner) errf(format string, a ...any) {
	fmt.Fprintf(r.stderr, format, a...)
}
