// Package text provides text cleanup for the synthesis engine.
package text

import "strings"

// Code points the synthesis engine cannot render. Feeding them through
// historically produced garbled audio, so they are dropped before synthesis.
const (
	zeroWidthJoiner   = '\u200d'
	variationSelector = '\ufe0f'
)

// emojiRanges covers the emoji blocks stripped from synthesis input.
var emojiRanges = [][2]rune{
	{0x1F1E6, 0x1F1FF}, // regional indicators
	{0x1F300, 0x1F5FF}, // symbols and pictographs
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F680, 0x1F6FF}, // transport and map symbols
	{0x1F900, 0x1F9FF}, // supplemental symbols and pictographs
	{0x1FA70, 0x1FAFF}, // extended pictographs
	{0x2600, 0x26FF},   // miscellaneous symbols
	{0x2700, 0x27BF},   // dingbats
}

// StripUnspeakable removes emoji, zero-width joiners, and emoji variation
// selectors from s. Surrounding text, including whitespace, is preserved
// unchanged.
func StripUnspeakable(s string) string {
	return strings.Map(func(r rune) rune {
		if isUnspeakable(r) {
			return -1
		}

		return r
	}, s)
}

func isUnspeakable(r rune) bool {
	if r == zeroWidthJoiner || r == variationSelector {
		return true
	}

	for _, block := range emojiRanges {
		if r >= block[0] && r <= block[1] {
			return true
		}
	}

	return false
}
