// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package syntax implements parsing of input lines into pipelines of
// stages, each with its arguments and redirections.
package syntax

import (
	"fmt"
	"strings"
)

// DefaultMaxStages is the number of stages a pipeline may have unless
// [MaxStages] says otherwise.
const DefaultMaxStages = 16

// ParserOption is a function which can be passed to NewParser
// to alter its behavior. To apply option to existing Parser
// call it directly, for example syntax.MaxStages(4)(parser).
type ParserOption func(*Parser)

// MaxStages limits the number of stages a single pipeline may have.
// Values below one reset the limit to [DefaultMaxStages].
func MaxStages(n int) ParserOption {
	return func(p *Parser) {
		if n < 1 {
			n = DefaultMaxStages
		}
		p.maxStages = n
	}
}

// NewParser allocates a new Parser and applies any number of options.
func NewParser(options ...ParserOption) *Parser {
	p := &Parser{maxStages: DefaultMaxStages}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Parser holds the configuration for parsing input lines.
// It is safe for concurrent use.
type Parser struct {
	maxStages int
}

// ParseError represents an error found when parsing a line.
// Stage is the zero-based index of the offending stage.
type ParseError struct {
	Stage int
	Text  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed pipeline: stage %d: %s", e.Stage+1, e.Text)
}

// Parse turns one input line into a pipeline.
//
// A line without any tokens results in a nil pipeline and a nil error,
// meaning that there is nothing to run.
func (p *Parser) Parse(line string) (*Pipeline, error) {
	groups, err := Split(Fields(line))
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}
	if len(groups) > p.maxStages {
		return nil, &ParseError{
			Stage: p.maxStages,
			Text:  fmt.Sprintf("too many stages; the limit is %d", p.maxStages),
		}
	}
	pl := &Pipeline{Stages: make([]*Stage, len(groups))}
	for i, words := range groups {
		st, err := ParseStage(words)
		if err != nil {
			if perr, ok := err.(*ParseError); ok {
				perr.Stage = i
			}
			return nil, err
		}
		pl.Stages[i] = st
	}
	if pl.Stages[0].Name() == exitWord {
		pl.Kind = BuiltinExit
	}
	return pl, nil
}

// Fields splits a line into tokens separated by runs of spaces and tabs.
// A trailing newline is dropped. Empty and blank lines result in no tokens.
func Fields(line string) []string {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t'
	})
}

// Split groups tokens into stages, using "|" as the boundary.
// For example,
//
//	Split([]string{"ls", "-l", "|", "wc", "-l"})
//	// [][]string{
//	// 	{"ls", "-l"},
//	// 	{"wc", "-l"},
//	// }
//
// No tokens result in no stages. Any empty stage, such as one caused by a
// leading or trailing "|" or by "a | | b", is a [*ParseError].
func Split(tokens []string) ([][]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	stages := [][]string{{}}
	for _, tok := range tokens {
		i := len(stages) - 1
		if tok != pipeTok {
			stages[i] = append(stages[i], tok)
			continue
		}
		if len(stages[i]) == 0 {
			return nil, &ParseError{Stage: i, Text: "empty stage before |"}
		}
		stages = append(stages, []string{})
	}
	if i := len(stages) - 1; len(stages[i]) == 0 {
		return nil, &ParseError{Stage: i, Text: "empty stage after |"}
	}
	return stages, nil
}

// ParseStage extracts the redirections from one stage's tokens.
// The remaining tokens, in their original order, become the stage's
// arguments. Stage in a returned [*ParseError] is always zero.
func ParseStage(words []string) (*Stage, error) {
	st := &Stage{Words: words}
	for i := 0; i < len(words); i++ {
		tok := words[i]
		rd, errText := redirToken(tok)
		if errText != "" {
			return nil, &ParseError{Text: errText}
		}
		if rd == nil {
			st.Args = append(st.Args, tok)
			continue
		}
		if rd.Op != DplOut {
			if i+1 >= len(words) {
				return nil, &ParseError{Text: fmt.Sprintf("%s must be followed by a file", tok)}
			}
			i++
			word := words[i]
			if r, _ := redirToken(word); r != nil || word == pipeTok {
				return nil, &ParseError{Text: fmt.Sprintf("%s must be followed by a file, found %s", tok, word)}
			}
			rd.Word = word
		}
		st.Redirs = append(st.Redirs, rd)
	}
	if len(st.Args) == 0 {
		return nil, &ParseError{Text: "no command to run"}
	}
	return st, nil
}
