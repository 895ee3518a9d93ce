package compiler

import "strings"

// DispatchPrefix marks an identifier for resolution against the host's
// registered function table instead of as a free name.
const DispatchPrefix = "$this->"

// hostBuiltins are callables the host runtime provides itself; the
// rewriter must leave them alone. is_* predicates are matched by prefix.
var hostBuiltins = map[string]bool{
	"boolval": true, "intval": true, "floatval": true, "strval": true,
	"get_defined_vars": true, "get_resource_type": true, "gettype": true,
	"var_dump": true, "var_export": true, "print_r": true, "debug_zval_dump": true,
	"isset": true, "empty": true, "unset": true, "settype": true,
	"serialize": true, "unserialize": true,
}

// Operators that may precede a qualifying call, multi-character ones
// first so e.g. "<=>" wins over "<=". "-->" is allowed even though "->"
// alone is not.
var allowedOperators = []string{
	"-->", "<=>", "===", "!==",
	"**", "+=", "-=", "*=", "/=", "%=", "==", "!=", "<>", ">=", "<=", "&&", "||", ".=",
	"+", "-", "*", "/", "%", "=", "!", ".", "(", ":", "?", ">", "<",
}

// Word operators need an identifier boundary on their left.
var allowedWordOperators = []string{"and", "or", "xor", "in"}

type callSite struct {
	nameBegin int
}

// RewriteCalls scans an expression for bare function invocations and
// prefixes each qualifying one with the dispatch token. Non-qualifying
// calls, string contents and unrecognizable input pass through
// untouched; the function never fails and is idempotent.
func RewriteCalls(expr string) string {
	var sites []callSite

	inString := false
	var quote byte

	for i := 0; i < len(expr); i++ {
		c := expr[i]

		if inString {
			if c == quote {
				inString = false
			}
			continue
		}
		if c == '\'' || c == '"' {
			inString = true
			quote = c
			continue
		}
		if c != '(' {
			continue
		}

		// A call needs a matching close; unbalanced parens disqualify.
		if matchParen(expr, i) == -1 {
			continue
		}

		nameBegin, name := callName(expr, i)
		if name == "" {
			continue
		}
		if hostBuiltins[name] || strings.HasPrefix(name, "is_") {
			continue
		}
		if !qualifies(expr, nameBegin) {
			continue
		}
		sites = append(sites, callSite{nameBegin: nameBegin})
	}

	// Right-to-left so earlier offsets stay valid.
	out := expr
	for i := len(sites) - 1; i >= 0; i-- {
		p := sites[i].nameBegin
		out = out[:p] + DispatchPrefix + out[p:]
	}
	return out
}

// matchParen returns the index of the ')' matching the '(' at open, or
// -1. Quote state is tracked inside the span too.
func matchParen(s string, open int) int {
	depth := 0
	inString := false
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == quote {
				inString = false
			}
			continue
		}
		switch c {
		case '\'', '"':
			inString = true
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// callName walks left from the '(' through the longest identifier run
// and validates it against the identifier shape.
func callName(s string, paren int) (int, string) {
	b := paren - 1
	for b >= 0 && isWordByte(s[b]) {
		b--
	}
	name := s[b+1 : paren]
	if name == "" {
		return 0, ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		return 0, ""
	}
	return b + 1, name
}

// qualifies decides whether the token immediately before nameBegin
// (whitespace skipped) allows a host-dispatch rewrite.
func qualifies(s string, nameBegin int) bool {
	j := nameBegin - 1
	for j >= 0 && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
		j--
	}
	if j < 0 {
		return true // start of string
	}

	head := s[:j+1]

	// Disallowed tokens win first: a method call or namespaced symbol is
	// already host-qualified. "-->" is the one arrow that stays allowed.
	if strings.HasSuffix(head, "->") && !strings.HasSuffix(head, "-->") {
		return false
	}
	if head[len(head)-1] == '\\' {
		return false
	}

	for _, op := range allowedOperators {
		if strings.HasSuffix(head, op) {
			return true
		}
	}
	for _, w := range allowedWordOperators {
		if strings.HasSuffix(head, w) {
			boundary := len(head) - len(w) - 1
			if boundary < 0 || !isWordByte(head[boundary]) {
				return true
			}
		}
	}
	return false
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
