// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// waitStatus is implemented by [syscall.WaitStatus] on the platforms which
// report the signal that terminated a process.
type waitStatus interface {
	Signaled() bool
	Signal() syscall.Signal
}

// waitStatusOf turns the result of [exec.Cmd.Wait] into an exit status.
// A process killed by a signal gets 128 plus the signal number, like in
// other shells. Errors which are not about the process's exit, such as
// failing to copy its output, are returned as well.
func waitStatusOf(err error) (uint8, error) {
	switch err := err.(type) {
	case nil:
		return 0, nil
	case *exec.ExitError:
		if status, ok := err.Sys().(waitStatus); ok && status.Signaled() {
			return uint8(128 + status.Signal()), nil
		}
		return uint8(err.ExitCode()), nil
	default:
		return 1, err
	}
}

// stopCommand interrupts a running stage, and kills it if it is still
// running after killTimeout.
// A non-positive killTimeout means that the kill signal is sent immediately.
//
// On Windows, the kill signal is always sent immediately,
// because Go doesn't currently support sending Interrupt on Windows.
func stopCommand(cmd *exec.Cmd, killTimeout time.Duration) {
	if killTimeout <= 0 || runtime.GOOS == "windows" {
		_ = cmd.Process.Signal(os.Kill)
		return
	}
	_ = cmd.Process.Signal(os.Interrupt)
	// Once the stage has been waited for, this is a no-op returning
	// os.ErrProcessDone.
	time.AfterFunc(killTimeout, func() {
		_ = cmd.Process.Signal(os.Kill)
	})
}

func checkStat(dir, file string) (string, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}
	info, err := os.Stat(file)
	if err != nil {
		return "", err
	}
	m := info.Mode()
	if m.IsDir() {
		return "", fmt.Errorf("is a directory")
	}
	if runtime.GOOS != "windows" && m&0o111 == 0 {
		return "", fmt.Errorf("permission denied")
	}
	return file, nil
}

// getEnv returns the last value of name in env, like [os.Getenv] does for
// the process's own environment.
func getEnv(env []string, name string) string {
	prefix := name + "="
	for i := len(env) - 1; i >= 0; i-- {
		if s, ok := strings.CutPrefix(env[i], prefix); ok {
			return s
		}
	}
	return ""
}

// LookPathDir is similar to [os/exec.LookPath], with the difference that it
// uses the provided environment and directory. env is used to fetch the PATH
// variable, and relative paths are resolved from cwd.
//
// Names containing a slash are not searched for in PATH.
// If no error is returned, the returned path must be valid.
func LookPathDir(cwd string, env []string, file string) (string, error) {
	pathList := filepath.SplitList(getEnv(env, "PATH"))
	if len(pathList) == 0 {
		pathList = []string{""}
	}
	if strings.ContainsRune(file, '/') {
		return checkStat(cwd, file)
	}
	for _, elem := range pathList {
		var path string
		switch elem {
		case "", ".":
			// otherwise "foo" won't be "./foo"
			path = "." + string(filepath.Separator) + file
		default:
			path = filepath.Join(elem, file)
		}
		if f, err := checkStat(cwd, path); err == nil {
			return f, nil
		}
	}
	return "", fmt.Errorf("%q: executable file not found in $PATH", file)
}
