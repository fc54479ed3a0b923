// Copyright (c) 2026, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

// The reserved tokens of the language.
const (
	pipeTok   = "|"
	rdrInTok  = "<"
	rdrOutTok = ">"
	appOutTok = ">>"
	dplOutTok = ">&"

	exitWord = "exit"
)

type RedirOperator int

const (
	RdrIn  RedirOperator = iota // <
	RdrOut                      // >
	AppOut                      // >>
	DplOut                      // >&
)

func (o RedirOperator) String() string {
	switch o {
	case RdrIn:
		return rdrInTok
	case RdrOut:
		return rdrOutTok
	case AppOut:
		return appOutTok
	case DplOut:
		return dplOutTok
	}
	return "illegal"
}

// validStream reports whether n is an output stream which can be the
// target or the source of a numbered redirection.
func validStream(n int) bool { return n == 1 || n == 2 }

// redirToken reports whether tok is a redirection operator, and returns
// the redirection it describes. Operand-taking redirections are returned
// without their Word.
//
// A token which looks like a numbered redirection but names an unsupported
// stream, such as "3>", returns a non-empty error text.
func redirToken(tok string) (rd *Redirect, errText string) {
	switch tok {
	case rdrInTok:
		return &Redirect{Op: RdrIn, N: 0}, ""
	case rdrOutTok:
		return &Redirect{Op: RdrOut, N: 1}, ""
	case appOutTok:
		return &Redirect{Op: AppOut, N: 1}, ""
	}
	if len(tok) < 2 || !isDigit(tok[0]) {
		return nil, ""
	}
	n := int(tok[0] - '0')
	var op RedirOperator
	dup := 0
	switch rest := tok[1:]; {
	case rest == rdrOutTok:
		op = RdrOut
	case rest == appOutTok:
		op = AppOut
	case len(rest) == 3 && rest[:2] == dplOutTok && isDigit(rest[2]):
		op = DplOut
		dup = int(rest[2] - '0')
		if !validStream(dup) {
			return nil, "unsupported stream in " + tok
		}
		if dup == n {
			return nil, "cannot duplicate a stream onto itself: " + tok
		}
	default:
		// Something like "2x" or "10>" is a regular word.
		return nil, ""
	}
	if !validStream(n) {
		return nil, "unsupported stream in " + tok
	}
	return &Redirect{Op: op, N: n, Dup: dup}, ""
}

func isDigit(b byte) bool { return '0' <= b && b <= '9' }
