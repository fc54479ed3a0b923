// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package internal holds helpers shared by the tests of several packages.
package internal

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// TestMainSetup is used by the tests which run real programs,
// to ensure a reasonably clean and consistent environment.
func TestMainSetup() {
	// Set the locale to computer-friendly English and UTF-8.
	// Some systems like macOS miss C.UTF8, so fall back to the US English locale.
	if out, _ := exec.Command("locale", "-a").Output(); strings.Contains(
		strings.ToLower(string(out)), "c.utf",
	) {
		os.Setenv("LANGUAGE", "C.UTF-8")
		os.Setenv("LC_ALL", "C.UTF-8")
	} else {
		os.Setenv("LANGUAGE", "en_US.UTF-8")
		os.Setenv("LC_ALL", "en_US.UTF-8")
	}
}

// ConcBuffer is a bytes.Buffer which may be written to by many stages at
// once, such as when several of them share a standard error.
type ConcBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *ConcBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *ConcBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Helpers lists the small programs that test binaries can pretend to be,
// so that tests do not depend on the exact behavior of system tools.
var Helpers = map[string]func(args []string) int{
	// hang prints "ready" and sleeps until it is killed.
	"hang": func(args []string) int {
		fmt.Println("ready")
		time.Sleep(time.Hour)
		return 0
	},
	// upper prints its arguments in upper case.
	"upper": func(args []string) int {
		fmt.Println(strings.ToUpper(strings.Join(args, " ")))
		return 0
	},
	// both prints "out" to standard output, then "err" to standard error.
	"both": func(args []string) int {
		fmt.Fprintln(os.Stdout, "out")
		fmt.Fprintln(os.Stderr, "err")
		return 0
	},
	// gen writes the given number of bytes, cycling through all byte values.
	"gen": func(args []string) int {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		w := bufio.NewWriter(os.Stdout)
		for i := 0; i < n; i++ {
			w.WriteByte(byte(i))
		}
		if err := w.Flush(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	},
	// sum reads all of standard input and prints its length and SHA-256.
	"sum": func(args []string) int {
		h := sha256.New()
		n, err := io.Copy(h, os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("%d %x\n", n, h.Sum(nil))
		return 0
	},
	// interrupt sends an interrupt signal to itself, and waits to be killed
	// by it. It exits with status 0 if the signal is ignored.
	"interrupt": func(args []string) int {
		p, err := os.FindProcess(os.Getpid())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := p.Signal(os.Interrupt); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		time.Sleep(2 * time.Second)
		return 0
	},
	// trap prints "ready" and waits for an interrupt. Once it gets one, it
	// prints "trapped" and exits with status 0, unless its first argument
	// is "stay", in which case it keeps waiting to be killed.
	"trap": func(args []string) int {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt)
		fmt.Println("ready")
		<-sigc
		fmt.Println("trapped")
		if len(args) > 0 && args[0] == "stay" {
			time.Sleep(time.Hour)
		}
		return 0
	},
	// tty prints which of the standard streams are terminals, such as
	// "02end" when only standard input and standard error are.
	"tty": func(args []string) int {
		var sb strings.Builder
		for fd := range 3 {
			if term.IsTerminal(fd) {
				sb.WriteString(strconv.Itoa(fd))
			}
		}
		sb.WriteString("end")
		fmt.Println(sb.String())
		return 0
	},
	// status exits with the given status code.
	"status": func(args []string) int {
		n, _ := strconv.Atoi(args[0])
		return n
	},
}

// GenSum returns what the sum helper prints for the output of "gen n".
func GenSum(n int) string {
	h := sha256.New()
	for i := 0; i < n; i++ {
		h.Write([]byte{byte(i)})
	}
	return fmt.Sprintf("%d %x\n", n, h.Sum(nil))
}
