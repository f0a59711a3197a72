package segment

import "strings"

// JoinState is the minimal trailing-character summary of everything already
// emitted to the client. It is all the Join Normalizer needs; the boundary
// matcher never reads it.
type JoinState struct {
	HasEmittedAny       bool
	EndedWithWhitespace bool // space or tab; newlines are tracked separately
	EndedWithNewline    bool
}

// Normalize removes leading whitespace from fragment that would duplicate
// whitespace already sent across a chunk seam. It never inserts a separator:
// if the model generated no space between two fragments, none is invented,
// so generated text is never corrupted with guesses.
func (s JoinState) Normalize(fragment string) string {
	switch {
	case s.EndedWithNewline:
		return strings.TrimLeft(fragment, "\r\n")
	case s.EndedWithWhitespace:
		// A leading newline is a stronger separator than the space already
		// sent, so only spaces and tabs are dropped.
		return strings.TrimLeft(fragment, " \t")
	default:
		return fragment
	}
}

// Advance updates the state from an emitted fragment. Callers must pass the
// normalized fragment, not the raw slice it came from.
func (s *JoinState) Advance(fragment string) {
	if fragment == "" {
		return
	}
	s.HasEmittedAny = true
	last := fragment[len(fragment)-1]
	s.EndedWithNewline = last == '\n' || last == '\r'
	s.EndedWithWhitespace = !s.EndedWithNewline && (last == ' ' || last == '\t')
}
