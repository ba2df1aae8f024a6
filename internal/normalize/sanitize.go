package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// zeroWidth is the set of invisible characters deleted outright: zero-width
// space, zero-width non-joiner, zero-width joiner, and the byte-order mark
// (zero-width no-break space). These are invisibly injected by copy-paste
// and survive naive trimming.
var zeroWidth = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200b, Hi: 0x200d, Stride: 1},
		{Lo: 0xfeff, Hi: 0xfeff, Stride: 1},
	},
}

// nbsp is U+00A0 NO-BREAK SPACE, replaced (not deleted) with an ordinary
// space so that trimming still applies at the edges.
const nbsp = '\u00a0'

// sanitizer owns a transform chain: NBSP to ordinary space, then zero-width
// removal. Chains carry internal state, so a sanitizer must not be shared
// across goroutines.
type sanitizer struct {
	t transform.Transformer
}

func newSanitizer() *sanitizer {
	return &sanitizer{
		t: transform.Chain(
			runes.Map(func(r rune) rune {
				if r == nbsp {
					return ' '
				}
				return r
			}),
			runes.Remove(runes.In(zeroWidth)),
		),
	}
}

// sanitize applies the chain and trims surrounding whitespace. NBSP is
// converted to space before the trim; a cell consisting only of NBSP must
// collapse to the empty string.
func (sn *sanitizer) sanitize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(sn.t, s)
	if err != nil {
		// The chain only maps and deletes runes and cannot fail on valid
		// UTF-8; on malformed input fall back to the plain replacer.
		out = scrubReplacer.Replace(s)
	}
	return strings.TrimSpace(out)
}

// Sanitize strips invisible and non-breaking characters from s and trims
// surrounding whitespace. Total: any input resolves to a string.
//
// Steps, in order: empty input returns immediately; U+00A0 becomes U+0020;
// zero-width characters are deleted; the result is trimmed.
func (n *Normalizer) Sanitize(s string) string {
	return n.san.sanitize(s)
}

var scrubReplacer = strings.NewReplacer(
	"\u00a0", " ",
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "",
)
