package segment

import (
	"strings"
	"testing"

	"github.com/gabrifc/storycut/internal/lengthmode"
)

func collect(t *testing.T, mode lengthmode.Mode, deltas ...string) (fragments []string, done bool) {
	t.Helper()
	c := NewCutter(mode)
	for _, d := range deltas {
		frags, isDone := c.Consume(d)
		fragments = append(fragments, frags...)
		if isDone {
			return fragments, true
		}
	}
	if tail := c.Finalize(); tail != "" {
		fragments = append(fragments, tail)
	}
	return fragments, false
}

func TestCutterSentenceStopsAtFirstBoundary(t *testing.T) {
	frags, done := collect(t, lengthmode.ModeSentence, "Hello worl", "d", ". More text")
	if !done {
		t.Fatalf("expected boundary, got none (fragments %#v)", frags)
	}
	if got := strings.Join(frags, ""); got != "Hello world." {
		t.Fatalf("joined fragments = %q, want %q", got, "Hello world.")
	}
}

func TestCutterSplitSeamMatchesSingleChunk(t *testing.T) {
	// A delimiter split across a seam cuts at the same place as one chunk.
	single, _ := collect(t, lengthmode.ModeSentence, "Hello world. More.")
	seam, _ := collect(t, lengthmode.ModeSentence, "Hello world", ". More.")
	if strings.Join(single, "") != strings.Join(seam, "") {
		t.Fatalf("seam output %q != single-chunk output %q", strings.Join(seam, ""), strings.Join(single, ""))
	}
}

func TestCutterRechunkingIsLossless(t *testing.T) {
	// Splitting the input at any offset must not change the final output.
	text := "Hello there. More text follows."
	want, _ := collect(t, lengthmode.ModeSentence, text)
	wantJoined := strings.Join(want, "")
	for i := 1; i < len(text); i++ {
		frags, _ := collect(t, lengthmode.ModeSentence, text[:i], text[i:])
		if got := strings.Join(frags, ""); got != wantJoined {
			t.Fatalf("split at %d: output %q, want %q", i, got, wantJoined)
		}
	}
}

func TestCutterRechunkingWithoutBoundaryIsLossless(t *testing.T) {
	// No delimiter at all: everything streams through and the tail flush
	// reproduces the text exactly for every split point.
	text := "alpha beta gamma delta"
	for i := 1; i < len(text); i++ {
		frags, done := collect(t, lengthmode.ModeParagraph, text[:i], text[i:])
		if done {
			t.Fatalf("split at %d: unexpected boundary", i)
		}
		if got := strings.Join(frags, ""); got != text {
			t.Fatalf("split at %d: output %q, want %q", i, got, text)
		}
	}
}

func TestCutterNoInventedSeparators(t *testing.T) {
	frags, _ := collect(t, lengthmode.ModeParagraph, "abc", "def")
	if got := strings.Join(frags, ""); got != "abcdef" {
		t.Fatalf("joined fragments = %q, want %q", got, "abcdef")
	}
}

func TestCutterSuppressesLeadingWhitespaceOnlyOutput(t *testing.T) {
	c := NewCutter(lengthmode.ModeSentence)
	frags, done := c.Consume("\n\n  ")
	if len(frags) != 0 || done {
		t.Fatalf("whitespace-only prefix: fragments %#v done %v, want none", frags, done)
	}
	// Once real content lands, the buffered prefix rides along with it.
	frags, done = c.Consume("Hi.")
	if !done {
		t.Fatalf("expected boundary after %q", "Hi.")
	}
	if got := strings.Join(frags, ""); got != "\n\n  Hi." {
		t.Fatalf("joined fragments = %q, want %q", got, "\n\n  Hi.")
	}
}

func TestCutterSuppressesWhitespaceOnlyBoundaryCut(t *testing.T) {
	// A stream opening with a bare blank line is a boundary in paragraph and
	// page modes, but the cut carries no content and nothing goes out.
	cases := []struct {
		mode  lengthmode.Mode
		delta string
	}{
		{lengthmode.ModeParagraph, "\n\n"},
		{lengthmode.ModePage, "\n\n\n"},
	}
	for _, tc := range cases {
		c := NewCutter(tc.mode)
		frags, done := c.Consume(tc.delta)
		if !done {
			t.Errorf("%s: Consume(%q) done = false, want boundary", tc.mode, tc.delta)
		}
		if len(frags) != 0 {
			t.Errorf("%s: fragments = %#v, want none for a whitespace-only cut", tc.mode, frags)
		}
		if tail := c.Finalize(); tail != "" {
			t.Errorf("%s: Finalize = %q, want empty", tc.mode, tail)
		}
	}
}

func TestCutterParagraphCRLF(t *testing.T) {
	frags, done := collect(t, lengthmode.ModeParagraph, "one\r\ntwo\r\n\r\nthree")
	if !done {
		t.Fatalf("expected CRLF blank-line boundary, fragments %#v", frags)
	}
	if got := strings.Join(frags, ""); got != "one\r\ntwo\r\n\r\n" {
		t.Fatalf("joined fragments = %q, want %q", got, "one\r\ntwo\r\n\r\n")
	}
}

func TestCutterWhitespaceOnlyStreamEmitsNothing(t *testing.T) {
	frags, done := collect(t, lengthmode.ModeParagraph, " ", "\t", " ")
	if done || len(frags) != 0 {
		t.Fatalf("whitespace-only stream: fragments %#v done %v, want none", frags, done)
	}
}

func TestCutterWordModeFlushesOnce(t *testing.T) {
	c := NewCutter(lengthmode.ModeWord)
	if frags, done := c.Consume("  "); len(frags) != 0 || done {
		t.Fatalf("whitespace token: fragments %#v done %v, want buffering", frags, done)
	}
	frags, done := c.Consume(" Bravo")
	if !done || len(frags) != 1 {
		t.Fatalf("word flush: fragments %#v done %v, want exactly one fragment", frags, done)
	}
	// Leading whitespace is the word separator and is preserved.
	if frags[0] != "   Bravo" {
		t.Fatalf("word fragment = %q, want %q", frags[0], "   Bravo")
	}
	// Anything after the flush is ignored.
	if extra, _ := c.Consume(" more"); len(extra) != 0 {
		t.Fatalf("post-flush fragments = %#v, want none", extra)
	}
}

func TestCutterIgnoresInputAfterBoundary(t *testing.T) {
	c := NewCutter(lengthmode.ModeSentence)
	if _, done := c.Consume("Done. "); !done {
		t.Fatalf("expected boundary")
	}
	frags, done := c.Consume("More.")
	if len(frags) != 0 || !done {
		t.Fatalf("after boundary: fragments %#v done %v, want none/true", frags, done)
	}
	if c.Finalize() != "" {
		t.Fatalf("Finalize after boundary must be empty")
	}
}

func TestCutterParagraphCutsAtRule(t *testing.T) {
	frags, done := collect(t, lengthmode.ModeParagraph, "intro text\n--", "-\nnext paragraph")
	if !done {
		t.Fatalf("expected rule boundary, fragments %#v", frags)
	}
	if got := strings.Join(frags, ""); got != "intro text\n---" {
		t.Fatalf("joined fragments = %q, want %q", got, "intro text\n---")
	}
}

func TestCutterPageNeedsTripleBreak(t *testing.T) {
	frags, done := collect(t, lengthmode.ModePage, "one\n\ntwo\n\n\nthree")
	if !done {
		t.Fatalf("expected page boundary, fragments %#v", frags)
	}
	if got := strings.Join(frags, ""); got != "one\n\ntwo\n\n\n" {
		t.Fatalf("joined fragments = %q, want %q", got, "one\n\ntwo\n\n\n")
	}
}
