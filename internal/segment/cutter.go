package segment

import (
	"strings"

	"github.com/gabrifc/storycut/internal/lengthmode"
)

// Cutter owns the stream state for one generation request: the accumulated
// upstream text, the emit cursor, and the join state. It lives exactly as
// long as its request and is driven by a single consumption loop, so it
// needs no locking.
type Cutter struct {
	mode     lengthmode.Mode
	patterns []delimiterPattern

	accumulated string
	sentIndex   int
	join        JoinState

	// emittedInk flips once an emitted fragment carried a non-whitespace
	// character; until then whitespace-only output stays buffered so the
	// response never opens with blank content.
	emittedInk bool

	// wordBuf holds raw upstream text in word mode until a token with
	// non-whitespace arrives, then is flushed whole (leading whitespace is
	// the word separator).
	wordBuf string

	done bool
}

func NewCutter(mode lengthmode.Mode) *Cutter {
	return &Cutter{mode: mode, patterns: patternsByMode[mode]}
}

// Done reports whether a boundary has been reached (or Finalize was called);
// further input is ignored after that.
func (c *Cutter) Done() bool { return c.done }

// Consume folds one upstream delta into the stream state and returns the
// fragments to emit, plus whether the boundary has been reached. Fragments
// come out in accumulation order and the emit cursor only moves forward, so
// nothing is ever re-sent.
func (c *Cutter) Consume(delta string) (fragments []string, done bool) {
	if c.done || delta == "" {
		return nil, c.done
	}
	c.accumulated += delta
	if c.mode.TokenBased() {
		return c.consumeWord(delta)
	}
	return c.consumePattern()
}

func (c *Cutter) consumeWord(delta string) ([]string, bool) {
	c.wordBuf += delta
	if strings.TrimSpace(delta) == "" {
		return nil, false
	}
	// First token with non-whitespace: one word is all this request needs.
	c.done = true
	frag := c.join.Normalize(c.wordBuf)
	c.sentIndex = len(c.accumulated)
	if frag == "" {
		return nil, true
	}
	c.join.Advance(frag)
	c.markInk(frag)
	return []string{frag}, true
}

func (c *Cutter) consumePattern() ([]string, bool) {
	if end := findBoundary(c.accumulated, c.sentIndex, c.patterns); end >= 0 {
		frag := c.join.Normalize(c.accumulated[c.sentIndex:end])
		c.sentIndex = end
		c.done = true
		// Whitespace-only suppression applies here too: a stream that opens
		// with a bare blank line closes without emitting anything.
		if frag == "" || (!c.emittedInk && strings.TrimSpace(frag) == "") {
			return nil, true
		}
		c.join.Advance(frag)
		c.markInk(frag)
		return []string{frag}, true
	}

	tail := c.accumulated[c.sentIndex:]
	if !c.emittedInk && strings.TrimSpace(tail) == "" {
		// Nothing real has gone out yet; keep buffering instead of opening
		// the response with blanks.
		return nil, false
	}
	frag := c.join.Normalize(tail)
	c.sentIndex = len(c.accumulated)
	if frag == "" {
		return nil, false
	}
	c.join.Advance(frag)
	c.markInk(frag)
	return []string{frag}, false
}

// Finalize flushes whatever remains when the upstream stops generating
// before any delimiter appeared. It returns the normalized tail fragment,
// which may be empty.
func (c *Cutter) Finalize() string {
	if c.done {
		return ""
	}
	c.done = true

	tail := c.accumulated[c.sentIndex:]
	c.sentIndex = len(c.accumulated)
	if !c.emittedInk && strings.TrimSpace(tail) == "" {
		return ""
	}
	frag := c.join.Normalize(tail)
	if frag != "" {
		c.join.Advance(frag)
		c.markInk(frag)
	}
	return frag
}

func (c *Cutter) markInk(fragment string) {
	if strings.TrimSpace(fragment) != "" {
		c.emittedInk = true
	}
}
