package compiler

import "strings"

// escapeEnclosure backslash-escapes every unescaped occurrence of quote
// in s. Occurrences already preceded by an odd number of backslashes are
// left as they are.
func escapeEnclosure(s string, quote byte) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == quote {
			backslashes := 0
			for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				sb.WriteByte('\\')
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
