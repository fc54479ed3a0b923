// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"mvdan.cc/ash/syntax"
)

// channel is an anonymous pipe connecting stage i to stage i+1.
type channel struct {
	r, w *os.File
}

// stageProc tracks one stage from the moment its streams are wired until it
// has been reaped.
type stageProc struct {
	st *syntax.Stage

	stdin          io.Reader
	stdout, stderr io.Writer

	// closers holds the files opened by the stage's redirections.
	// The interpreter's copies are closed once the stage has started.
	closers []io.Closer

	cmd    *exec.Cmd // nil if the stage never started
	status uint8
}

// pipeline runs every stage of pl and waits for all of them.
// The only errors it returns are those which stop the pipeline from
// starting at all.
func (r *Runner) pipeline(ctx context.Context, pl *syntax.Pipeline) error {
	n := len(pl.Stages)
	chans := make([]channel, n-1)
	for i := range chans {
		pr, pw, err := os.Pipe()
		if err != nil {
			closeChannels(chans[:i])
			return fmt.Errorf("pipe error: %w", err)
		}
		chans[i] = channel{r: pr, w: pw}
	}
	if r.trace {
		var sb strings.Builder
		for _, st := range pl.Stages {
			sb.WriteString("+ ")
			syntax.Fprint(&sb, st)
			sb.WriteByte('\n')
		}
		io.WriteString(r.stderr, sb.String())
	}

	procs := make([]stageProc, n)
	for i, st := range pl.Stages {
		sp := &procs[i]
		sp.st = st
		sp.stdin, sp.stdout, sp.stderr = r.stdinReader(), r.stdout, r.stderr
		if i > 0 {
			sp.stdin = chans[i-1].r
		}
		if i < n-1 {
			sp.stdout = chans[i].w
		}
		r.startStage(sp)

		// The interpreter must not keep any of the stage's pipe ends
		// open, or the adjacent stages would never see the end of
		// their input.
		if i > 0 {
			chans[i-1].r.Close()
		}
		if i < n-1 {
			chans[i].w.Close()
		}
		for _, cl := range sp.closers {
			cl.Close()
		}
	}

	err := r.reap(ctx, procs)
	r.pipeStatus = r.pipeStatus[:0]
	for _, sp := range procs {
		r.pipeStatus = append(r.pipeStatus, sp.status)
	}
	r.exit.code = procs[n-1].status
	return err
}

func closeChannels(chans []channel) {
	for _, c := range chans {
		c.r.Close()
		c.w.Close()
	}
}

// stdinReader avoids handing exec.Cmd a typed nil, which it would try to
// copy from.
func (r *Runner) stdinReader() io.Reader {
	if r.stdin == nil {
		return nil
	}
	return r.stdin
}

// startStage resolves the stage's redirections and starts its program.
// On failure, it reports the problem on the stage's standard error and sets
// the stage's status; sibling stages are not affected.
func (r *Runner) startStage(sp *stageProc) {
	for _, rd := range sp.st.Redirs {
		if err := r.redir(sp, rd); err != nil {
			fmt.Fprintf(sp.stderr, "%v\n", err)
			sp.status = 1
			return
		}
	}
	name := sp.st.Name()
	path, err := LookPathDir(r.Dir, r.Env, name)
	if err != nil {
		fmt.Fprintf(sp.stderr, "%s: command not found\n", name)
		sp.status = 127
		return
	}
	cmd := &exec.Cmd{
		Path:   path,
		Args:   sp.st.Args,
		Env:    r.Env,
		Dir:    r.Dir,
		Stdin:  sp.stdin,
		Stdout: sp.stdout,
		Stderr: sp.stderr,
	}
	if err := cmd.Start(); err != nil {
		var perr *os.PathError
		if errors.As(err, &perr) {
			err = perr.Err
		}
		fmt.Fprintf(sp.stderr, "%s: %v\n", name, err)
		sp.status = 126
		return
	}
	sp.cmd = cmd
}

// redir applies one redirection to the stage's own streams. Redirections
// are applied in order, so a duplication copies the binding its source
// stream has at this point.
func (r *Runner) redir(sp *stageProc, rd *syntax.Redirect) error {
	orig := &sp.stdout
	if rd.N == 2 {
		orig = &sp.stderr
	}
	switch rd.Op {
	case syntax.DplOut:
		switch rd.Dup {
		case 1:
			*orig = sp.stdout
		case 2:
			*orig = sp.stderr
		default:
			panic(fmt.Sprintf("unhandled %v source stream: %d", rd.Op, rd.Dup))
		}
		return nil
	case syntax.RdrIn, syntax.RdrOut, syntax.AppOut:
		// done further below
	default:
		panic(fmt.Sprintf("unhandled redirect op: %v", rd.Op))
	}
	mode := os.O_RDONLY
	switch rd.Op {
	case syntax.AppOut:
		mode = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case syntax.RdrOut:
		mode = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := r.open(rd.Word, mode, 0o644)
	if err != nil {
		var perr *os.PathError
		if errors.As(err, &perr) {
			return fmt.Errorf("%s: %w", rd.Word, perr.Err)
		}
		return err
	}
	sp.closers = append(sp.closers, f)
	if rd.Op == syntax.RdrIn {
		sp.stdin = f
	} else {
		*orig = f
	}
	return nil
}

func (r *Runner) open(path string, flag int, perm os.FileMode) (*os.File, error) {
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.Dir, path)
	}
	return os.OpenFile(path, flag, perm)
}

// reap waits for every started stage, recording their statuses.
// Once ctx is cancelled, the running stages are interrupted,
// and killed if they do not stop within the kill timeout.
func (r *Runner) reap(ctx context.Context, procs []stageProc) error {
	var g errgroup.Group
	for i := range procs {
		sp := &procs[i]
		if sp.cmd == nil {
			continue
		}
		g.Go(func() error {
			stop := context.AfterFunc(ctx, func() {
				stopCommand(sp.cmd, r.killTimeout)
			})
			defer stop()

			status, err := waitStatusOf(sp.cmd.Wait())
			sp.status = status
			return err
		})
	}
	return g.Wait()
}
