// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

// Node represents a part of a parsed line: a *Pipeline, a *Stage or a
// *Redirect.
type Node interface {
	String() string
	node()
}

func (*Pipeline) node() {}
func (*Stage) node() {}
func (*Redirect) node() {}

// Pipeline is a parsed input line: an ordered chain of stages, where each
// stage's standard output feeds the next stage's standard input.
type Pipeline struct {
	Stages []*Stage

	// Kind is decided once by the parser from the program name of the
	// first stage.
	Kind CmdKind
}

// Stage is a single program invocation within a pipeline.
type Stage struct {
	// Words holds the stage's tokens as they were written, including
	// redirection operators and their operands. It never holds the pipe
	// delimiter.
	Words []string

	// Args is the argument vector left once redirections are removed.
	// The first element is the program name, and it is never empty.
	Args []string

	// Redirs lists the stage's redirections in the order they appeared,
	// which is the order in which they must be applied.
	Redirs []*Redirect
}

// Name returns the stage's program name.
func (s *Stage) Name() string { return s.Args[0] }

// Redirect represents an input/output redirection.
//
// N is the stream being rebound: 0 for RdrIn, and 1 or 2 otherwise.
// Word is the file operand of RdrIn, RdrOut and AppOut.
// Dup is the source stream of DplOut, such as 1 in "2>&1".
type Redirect struct {
	Op   RedirOperator
	N    int
	Word string
	Dup  int
}

// CmdKind tells the runner how to handle a pipeline.
type CmdKind uint8

const (
	// External pipelines spawn one process per stage.
	External CmdKind = iota

	// BuiltinExit terminates the interpreter without spawning anything.
	BuiltinExit
)

func (k CmdKind) String() string {
	switch k {
	case External:
		return "external"
	case BuiltinExit:
		return "exit"
	}
	return "unknown"
}
