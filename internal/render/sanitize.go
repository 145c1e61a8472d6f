package render

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks decomposes accented characters and drops the combining marks,
// leaving the base ASCII letter ("ç" -> "c", "ã" -> "a").
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// typographic characters the printer cannot render, normalized to ASCII.
var smartReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'",
	"“", `"`, "”", `"`, "„", `"`,
	"–", "-", "—", "-", "−", "-",
	"…", "...",
	" ", " ",
)

// Sanitize prepares assembled receipt text for a plain-text thermal printer:
// diacritics are folded to base ASCII, smart quotes/dashes/ellipses become
// ASCII equivalents, control bytes other than newline are stripped, and any
// ESC/POS escape sequences embedded in literal text are removed so they
// cannot corrupt the output stream.
func Sanitize(text string) string {
	folded, _, err := transform.String(foldMarks, text)
	if err == nil {
		text = folded
	}
	text = smartReplacer.Replace(text)
	text = stripEscapeSequences(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7F:
			// control byte
		case r > 0x7F:
			// anything still non-ASCII after folding is unprintable on
			// the target protocol
			b.WriteRune('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripEscapeSequences removes ESC- and GS-prefixed printer commands that
// leaked into literal text (ESC @, ESC a n, GS V n ...). The command byte and
// its single parameter, when one is expected, are dropped together.
func stripEscapeSequences(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	data := []byte(text)
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != 0x1B && c != 0x1D {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(data) {
			break
		}
		cmd := data[i+1]
		i++ // consume the command byte
		if escTakesParameter(c, cmd) && i+1 < len(data) {
			i++ // consume the parameter byte
		}
	}
	return b.String()
}

func escTakesParameter(prefix, cmd byte) bool {
	if prefix == 0x1B {
		switch cmd {
		case 'a', 'E', 'd', 't', '!':
			return true
		}
		return false
	}
	switch cmd { // GS
	case 'V', '!', 'B':
		return true
	}
	return false
}
