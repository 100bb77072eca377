package chunk

import (
	"strings"
	"unicode/utf8"
)

// Split breaks text into ordered chunks of at most limit bytes.
// Packing is greedy: each chunk takes as much text as fits, breaking
// at the last paragraph boundary within the limit when one exists,
// then at the last line boundary, and only hard-cutting when a single
// paragraph exceeds the limit. Hard cuts back up to a rune start so a
// chunk never ends with a torn UTF-8 sequence.
//
// Concatenating the chunks in order reproduces text exactly. Empty
// input yields no chunks.
func Split(text string, limit int) []string {
	if text == "" || limit <= 0 {
		return nil
	}

	var chunks []string
	for len(text) > limit {
		cut := boundary(text, limit)
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

// boundary returns the cut position for the next chunk, in (0, limit].
func boundary(text string, limit int) int {
	window := text[:limit]

	// A paragraph break splits cleanest; keep the break with the
	// leading chunk so concatenation stays lossless.
	if i := strings.LastIndex(window, "\n\n"); i >= 0 {
		return i + 2
	}
	if i := strings.LastIndexByte(window, '\n'); i >= 0 {
		return i + 1
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		// Degenerate limit smaller than one rune: tear the rune
		// rather than loop forever.
		cut = limit
	}
	return cut
}
