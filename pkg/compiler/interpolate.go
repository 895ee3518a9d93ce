package compiler

import "strings"

// Span is one interpolation found in a text fragment. Begin/End are the
// byte positions of the first and last delimiter bytes, Length spans the
// whole delimiter pair, Escape is true for {{ }} and false for {!! !!}.
type Span struct {
	Begin   int
	End     int
	Content string
	Length  int
	Escape  bool
}

// ScanInterpolations extracts {{ }} and {!! !!} spans from text in a
// single forward pass. A partially open bracket without a close produces
// no span. Quote state is intentionally not tracked: delimiters are
// recognized even inside quoted regions.
//
// The close style does not have to match the open style - whichever of
// }} or !!} appears first closes the span, and the escape flag comes
// from the opener. This mirrors the original engine's scanner.
func ScanInterpolations(text string) []Span {
	var spans []Span

	openAt := -1  // position of the opening '{'
	innerAt := -1 // first content byte
	escape := false

	i := 0
	for i < len(text) {
		if openAt == -1 {
			if strings.HasPrefix(text[i:], "{!!") {
				openAt = i
				innerAt = i + 3
				escape = false
				i += 3
				continue
			}
			if strings.HasPrefix(text[i:], "{{") {
				openAt = i
				innerAt = i + 2
				escape = true
				i += 2
				continue
			}
			i++
			continue
		}

		var closeLen int
		if strings.HasPrefix(text[i:], "!!}") {
			closeLen = 3
		} else if strings.HasPrefix(text[i:], "}}") {
			closeLen = 2
		} else {
			i++
			continue
		}

		end := i + closeLen - 1
		spans = append(spans, Span{
			Begin:   openAt,
			End:     end,
			Content: text[innerAt:i],
			Length:  end - openAt + 1,
			Escape:  escape,
		})
		i += closeLen
		openAt = -1
	}

	return spans
}

// substituteInterpolations replaces every span in text with its emission
// form, contents first run through the call rewriter. Substitutions are
// applied right-to-left so earlier offsets stay valid.
func substituteInterpolations(text string) string {
	spans := ScanInterpolations(text)
	out := text
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		expr := RewriteCalls(strings.TrimSpace(s.Content))
		var repl string
		if s.Escape {
			repl = "<?php echo htmlentities((string) " + expr + "); ?>"
		} else {
			repl = "<?php echo " + expr + "; ?>"
		}
		out = out[:s.Begin] + repl + out[s.End+1:]
	}
	return out
}
