package host

import (
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"slate/pkg/utils/coerce"
)

// OrderedMap is the evaluated form of a PHP-style associative array
// literal. Plain Go maps lose author order, which the class/style merge
// depends on, so the normalizer lowers ['k' => v] into an __arr(...)
// call that builds one of these.
type OrderedMap struct {
	Keys   []string
	Values map[string]interface{}
}

func (m *OrderedMap) Len() int {
	return len(m.Keys)
}

// evalExpr evaluates one PHP-flavored expression from the artifact:
// normalize the surface syntax, compile once, run against the scope
// plus the function environment.
func (e *Evaluator) evalExpr(src string, scope *Scope, fns map[string]interface{}) (interface{}, error) {
	norm := normalizeExpr(src)

	var prog *vm.Program
	if cached, ok := e.programs.Load(norm); ok {
		prog = cached.(*vm.Program)
	} else {
		compiled, err := expr.Compile(norm, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, err
		}
		e.programs.Store(norm, compiled)
		prog = compiled
	}

	env := scope.ToMap()
	for k, v := range fns {
		env[k] = v
	}
	return expr.Run(prog, env)
}

// normalizeExpr lowers the PHP-flavored expression surface emitted by
// the compiler into expr syntax:
//
//	['k' => v]   -> __arr('k', v)
//	$this->f(x)  -> f(x)
//	$name        -> name
//	(string) x   -> x
//	a . b        -> a + b   (spaced concat only)
//
// String contents are never touched.
func normalizeExpr(src string) string {
	s := transformArrays(src)
	s = replaceOutsideStrings(s, "$this->", "")
	s = replaceOutsideStrings(s, "(string) ", "")
	s = replaceOutsideStrings(s, "(string)", "")
	s = stripVarSigils(s)
	s = replaceOutsideStrings(s, " . ", " + ")
	s = replaceOutsideStrings(s, " .= ", " += ")
	return s
}

// transformArrays rewrites bracketed associative literals (containing a
// top-level =>) into __arr(k, v, ...) calls, recursively. Plain indexed
// literals and index accesses are left alone.
func transformArrays(s string) string {
	var sb strings.Builder
	inStr := false
	var quote byte
	lastSignificant := byte(0)

	for i := 0; i < len(s); {
		c := s[i]
		if inStr {
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				sb.WriteByte(s[i+1])
				i += 2
				continue
			}
			if c == quote {
				inStr = false
			}
			i++
			continue
		}
		switch {
		case c == '\'' || c == '"':
			inStr = true
			quote = c
			sb.WriteByte(c)
			i++
		case c == '[' && !isIndexAccess(lastSignificant):
			end := matchBracket(s, i)
			if end == -1 {
				sb.WriteByte(c)
				i++
				break
			}
			inner := s[i+1 : end]
			if hasTopLevelArrow(inner) {
				sb.WriteString(arrowListToCall(inner))
			} else {
				sb.WriteByte('[')
				sb.WriteString(transformArrays(inner))
				sb.WriteByte(']')
			}
			lastSignificant = ']'
			i = end + 1
		default:
			if c != ' ' && c != '\t' {
				lastSignificant = c
			}
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}

// isIndexAccess: a '[' directly after an identifier, ')' or ']' is a
// subscript, not an array literal.
func isIndexAccess(prev byte) bool {
	return prev == ')' || prev == ']' ||
		prev == '_' || prev == '$' ||
		(prev >= 'a' && prev <= 'z') || (prev >= 'A' && prev <= 'Z') ||
		(prev >= '0' && prev <= '9')
}

func matchBracket(s string, open int) int {
	depth := 0
	inStr := false
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if inStr {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				inStr = false
			}
			continue
		}
		switch c {
		case '\'', '"':
			inStr = true
			quote = c
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func hasTopLevelArrow(inner string) bool {
	depth := 0
	inStr := false
	var quote byte
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if inStr {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				inStr = false
			}
			continue
		}
		switch c {
		case '\'', '"':
			inStr = true
			quote = c
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case '=':
			if depth == 0 && i+1 < len(inner) && inner[i+1] == '>' {
				return true
			}
		}
	}
	return false
}

func arrowListToCall(inner string) string {
	var parts []string
	for _, item := range splitTopLevel(inner, ',') {
		kv := splitArrow(item)
		if len(kv) == 2 {
			parts = append(parts, transformArrays(strings.TrimSpace(kv[0])))
			parts = append(parts, transformArrays(strings.TrimSpace(kv[1])))
		} else {
			parts = append(parts, transformArrays(strings.TrimSpace(item)))
			parts = append(parts, "true")
		}
	}
	return "__arr(" + strings.Join(parts, ", ") + ")"
}

func splitArrow(item string) []string {
	depth := 0
	inStr := false
	var quote byte
	for i := 0; i < len(item)-1; i++ {
		c := item[i]
		if inStr {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				inStr = false
			}
			continue
		}
		switch c {
		case '\'', '"':
			inStr = true
			quote = c
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case '=':
			if depth == 0 && item[i+1] == '>' {
				return []string{item[:i], item[i+2:]}
			}
		}
	}
	return []string{item}
}

func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	inStr := false
	var quote byte
	last := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				inStr = false
			}
			continue
		}
		switch c {
		case '\'', '"':
			inStr = true
			quote = c
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		default:
			if c == sep && depth == 0 {
				out = append(out, s[last:i])
				last = i + 1
			}
		}
	}
	out = append(out, s[last:])
	return out
}

func replaceOutsideStrings(s, old, new string) string {
	var sb strings.Builder
	inStr := false
	var quote byte
	for i := 0; i < len(s); {
		c := s[i]
		if inStr {
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				sb.WriteByte(s[i+1])
				i += 2
				continue
			}
			if c == quote {
				inStr = false
			}
			i++
			continue
		}
		if c == '\'' || c == '"' {
			inStr = true
			quote = c
			sb.WriteByte(c)
			i++
			continue
		}
		if strings.HasPrefix(s[i:], old) {
			sb.WriteString(new)
			i += len(old)
			continue
		}
		sb.WriteByte(c)
		i++
	}
	return sb.String()
}

func stripVarSigils(s string) string {
	var sb strings.Builder
	inStr := false
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				sb.WriteByte(s[i])
				continue
			}
			if c == quote {
				inStr = false
			}
			continue
		}
		if c == '\'' || c == '"' {
			inStr = true
			quote = c
			sb.WriteByte(c)
			continue
		}
		if c == '$' && i+1 < len(s) && (s[i+1] == '_' || isAlpha(s[i+1])) {
			continue // drop the sigil, keep the identifier
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// truthy applies loose boolean semantics to an evaluated value: nil,
// false, zero, empty string, "0" and empty collections are false.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	case *OrderedMap:
		return t.Len() > 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	}
	if f, err := coerce.ToFloat64(v); err == nil {
		return f != 0
	}
	return true
}
