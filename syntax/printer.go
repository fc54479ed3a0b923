// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"io"
	"strconv"
	"strings"
)

// Fprint prints a node in its canonical form: one space between tokens,
// redirections after the arguments, and " | " between stages.
func Fprint(w io.Writer, node Node) error {
	_, err := io.WriteString(w, node.String())
	return err
}

func (pl *Pipeline) String() string {
	var sb strings.Builder
	for i, st := range pl.Stages {
		if i > 0 {
			sb.WriteString(" | ")
		}
		st.print(&sb)
	}
	return sb.String()
}

func (s *Stage) String() string {
	var sb strings.Builder
	s.print(&sb)
	return sb.String()
}

func (s *Stage) print(sb *strings.Builder) {
	sb.WriteString(strings.Join(s.Args, " "))
	for _, rd := range s.Redirs {
		sb.WriteByte(' ')
		sb.WriteString(rd.String())
	}
}

func (r *Redirect) String() string {
	switch r.Op {
	case RdrIn:
		return r.Op.String() + " " + r.Word
	case RdrOut, AppOut:
		prefix := ""
		if r.N != 1 {
			prefix = strconv.Itoa(r.N)
		}
		return prefix + r.Op.String() + " " + r.Word
	case DplOut:
		return strconv.Itoa(r.N) + r.Op.String() + strconv.Itoa(r.Dup)
	}
	return r.Op.String()
}
