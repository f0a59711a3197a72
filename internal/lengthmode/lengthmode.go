// Package lengthmode maps a requested stopping granularity to a token budget
// and a boundary policy. Resolution is pure: unrecognized modes fall back to
// sentence instead of failing the request.
package lengthmode

import "strings"

// Mode is the stopping granularity requested by the caller.
type Mode string

const (
	ModeWord      Mode = "word"
	ModeSentence  Mode = "sentence"
	ModeParagraph Mode = "paragraph"
	ModePage      Mode = "page"
)

// DefaultMode is used when the request omits or misspells the mode.
const DefaultMode = ModeSentence

// Preset token caps per mode. A word needs a handful of tokens; a page can
// run long before three consecutive line breaks show up.
var presetCaps = map[Mode]int{
	ModeWord:      16,
	ModeSentence:  100,
	ModeParagraph: 400,
	ModePage:      1000,
}

// Parse normalizes a caller-supplied mode string. Unknown values resolve to
// DefaultMode rather than erroring, matching the hard validation applied to
// prompt/model but not to the mode.
func Parse(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeWord:
		return ModeWord
	case ModeSentence:
		return ModeSentence
	case ModeParagraph:
		return ModeParagraph
	case ModePage:
		return ModePage
	default:
		return DefaultMode
	}
}

// TokenBased reports whether the mode stops after the first token carrying a
// non-whitespace character instead of scanning for a delimiter pattern.
func (m Mode) TokenBased() bool {
	return m == ModeWord
}

// PresetCap returns the mode's token ceiling before the model ceiling and any
// caller-requested cap are applied.
func (m Mode) PresetCap() int {
	if cap, ok := presetCaps[m]; ok {
		return cap
	}
	return presetCaps[DefaultMode]
}

// Budget computes the effective token budget for one generation:
// min(mode preset, model ceiling, caller cap). Non-positive ceilings and caps
// are treated as absent.
func Budget(mode Mode, modelCeiling, requestedCap int) int {
	budget := mode.PresetCap()
	if modelCeiling > 0 && modelCeiling < budget {
		budget = modelCeiling
	}
	if requestedCap > 0 && requestedCap < budget {
		budget = requestedCap
	}
	return budget
}
