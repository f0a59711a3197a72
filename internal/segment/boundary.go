package segment

import (
	"regexp"

	"github.com/gabrifc/storycut/internal/lengthmode"
)

// overlapWindow is how many already-sent characters are re-scanned on each
// new chunk. A delimiter split across a chunk seam (e.g. `".` arriving in two
// writes) is at most a few characters long, so a fixed window is enough to
// always see it whole. Re-scanning is redundant work bounded by the window,
// which is cheap next to per-chunk network latency.
const overlapWindow = 32

// delimiterPattern locates one kind of boundary. The regexp's first capture
// group is the delimiter span itself: the cut lands at the group's end, so
// the delimiter characters are kept in the emitted text while anything the
// regexp consumes after the group (such as the whitespace that must follow a
// sentence ender) stays out of the cut.
//
// start is used when the scan window begins at the start of the accumulated
// text; interior when it begins mid-text, where a `^` anchor would otherwise
// falsely treat the window edge as a line start.
type delimiterPattern struct {
	start    *regexp.Regexp
	interior *regexp.Regexp
}

func newPattern(expr string) delimiterPattern {
	re := regexp.MustCompile(expr)
	return delimiterPattern{start: re, interior: re}
}

func newLinePattern(startExpr, interiorExpr string) delimiterPattern {
	return delimiterPattern{
		start:    regexp.MustCompile(startExpr),
		interior: regexp.MustCompile(interiorExpr),
	}
}

// The four modes are fixed, so the compiled patterns are a package-level
// table built once at init rather than a cache.
var (
	// A sentence ends at . ? or !, optionally followed by closing quotes or
	// brackets, and only counts when whitespace or end-of-text follows.
	sentenceEnd = newPattern(`([.?!]["'”’)\]]*)(?:\s|\z)`)

	// A paragraph ends at a blank line; trailing spaces or tabs on the blank
	// line don't disqualify it. Line breaks may be LF or CRLF.
	blankLine = newPattern(`(\r?\n[ \t]*\r?\n)`)

	// A page ends at three or more consecutive line breaks.
	tripleBreak = newPattern(`(\r?\n[ \t]*\r?\n[ \t]*\r?\n)`)

	// A horizontal rule (three or more -, * or _ alone on a line) ends both
	// paragraphs and pages, blank line or not.
	horizontalRule = newLinePattern(
		`(?:^|\r?\n)[ \t]*(-{3,}|\*{3,}|_{3,})[ \t]*(?:\r?\n|\z)`,
		`\r?\n[ \t]*(-{3,}|\*{3,}|_{3,})[ \t]*(?:\r?\n|\z)`,
	)
)

var patternsByMode = map[lengthmode.Mode][]delimiterPattern{
	lengthmode.ModeSentence:  {sentenceEnd},
	lengthmode.ModeParagraph: {blankLine, horizontalRule},
	lengthmode.ModePage:      {tripleBreak, horizontalRule},
}

// findBoundary scans the accumulated text for the first delimiter whose span
// ends strictly past sentIndex and returns that end offset in accumulated
// coordinates, or -1 when the caller should keep streaming. The scan starts
// overlapWindow characters before sentIndex so a delimiter straddling a chunk
// seam is matched as a whole; the strict `end > sentIndex` guard keeps a
// previously-cut boundary inside the window from ever matching again.
func findBoundary(accumulated string, sentIndex int, patterns []delimiterPattern) int {
	scanStart := sentIndex - overlapWindow
	if scanStart < 0 {
		scanStart = 0
	}
	window := accumulated[scanStart:]

	best := -1
	for _, p := range patterns {
		re := p.interior
		if scanStart == 0 {
			re = p.start
		}
		for _, m := range re.FindAllStringSubmatchIndex(window, -1) {
			end := scanStart + m[3]
			if end <= sentIndex {
				continue
			}
			if best < 0 || end < best {
				best = end
			}
			break
		}
	}
	return best
}
