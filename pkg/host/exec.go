package host

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"slate/pkg/utils/coerce"
)

// Statement forms the artifact interpreter understands. The compiler
// only ever emits these shapes.
type stmt interface{}

type litStmt string

type echoStmt struct {
	expr    string
	escaped bool // expression is wrapped in htmlentities(...)
}

type ifBranch struct {
	cond string // empty for else
	body []stmt
}

type ifStmt struct {
	branches []ifBranch
}

type foreachStmt struct {
	items string
	key   string // empty for value-only iteration
	val   string
	body  []stmt
}

type forStmt struct {
	v     string
	limit string
	body  []stmt
}

// renderArtifact parses and executes a compiled artifact against scope.
func (e *Evaluator) renderArtifact(artifact string, scope *Scope) (string, error) {
	prog, err := parseArtifact(artifact)
	if err != nil {
		return "", err
	}
	fns := e.buildEnv(scope)
	var sb strings.Builder
	if err := e.exec(prog, scope, fns, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ==========================================
// ARTIFACT PARSING
// ==========================================

type blockFrame struct {
	body []stmt
	ifN  *ifStmt
	feN  *foreachStmt
	frN  *forStmt
}

func parseArtifact(artifact string) ([]stmt, error) {
	stack := []*blockFrame{{}}
	top := func() *blockFrame { return stack[len(stack)-1] }
	emit := func(s stmt) {
		f := top()
		if f.ifN != nil {
			b := &f.ifN.branches[len(f.ifN.branches)-1]
			b.body = append(b.body, s)
			return
		}
		f.body = append(f.body, s)
	}

	pos := 0
	for pos < len(artifact) {
		open := strings.Index(artifact[pos:], "<?php")
		if open == -1 {
			if pos < len(artifact) {
				emit(litStmt(artifact[pos:]))
			}
			break
		}
		if open > 0 {
			emit(litStmt(artifact[pos : pos+open]))
		}
		codeStart := pos + open + 5
		codeEnd := findCodeEnd(artifact, codeStart)
		if codeEnd == -1 {
			emit(litStmt(artifact[pos+open:]))
			break
		}
		code := strings.TrimSpace(artifact[codeStart:codeEnd])
		pos = codeEnd + 2

		switch {
		case strings.HasPrefix(code, "echo "):
			expr := strings.TrimSuffix(code[5:], ";")
			emit(echoStmt{expr: strings.TrimSpace(expr), escaped: strings.HasPrefix(strings.TrimSpace(expr), "htmlentities(")})

		case strings.HasPrefix(code, "if("):
			close := matchParenAt(code, 2)
			if close == -1 {
				return nil, fmt.Errorf("malformed if in artifact: %s", code)
			}
			cond := code[3:close]
			rest := strings.TrimSpace(code[close+1:])
			if rest == ":" {
				n := &ifStmt{branches: []ifBranch{{cond: cond}}}
				stack = append(stack, &blockFrame{ifN: n})
				continue
			}
			if strings.HasPrefix(rest, "echo ") {
				expr := strings.TrimSpace(strings.TrimSuffix(rest[5:], ";"))
				emit(ifStmt{branches: []ifBranch{{cond: cond, body: []stmt{echoStmt{expr: expr}}}}})
				continue
			}
			return nil, fmt.Errorf("unsupported if form: %s", code)

		case strings.HasPrefix(code, "elseif("):
			close := matchParenAt(code, 6)
			if close == -1 || top().ifN == nil {
				return nil, fmt.Errorf("malformed elseif in artifact: %s", code)
			}
			top().ifN.branches = append(top().ifN.branches, ifBranch{cond: code[7:close]})

		case code == "else:":
			if top().ifN == nil {
				return nil, fmt.Errorf("else without if in artifact")
			}
			top().ifN.branches = append(top().ifN.branches, ifBranch{})

		case code == "endif;":
			if len(stack) < 2 || top().ifN == nil {
				return nil, fmt.Errorf("endif without if in artifact")
			}
			n := top().ifN
			stack = stack[:len(stack)-1]
			emit(*n)

		case strings.HasPrefix(code, "foreach("):
			close := matchParenAt(code, 7)
			if close == -1 {
				return nil, fmt.Errorf("malformed foreach in artifact: %s", code)
			}
			n, err := parseForeach(code[8:close])
			if err != nil {
				return nil, err
			}
			stack = append(stack, &blockFrame{feN: n})

		case code == "endforeach;":
			if len(stack) < 2 || top().feN == nil {
				return nil, fmt.Errorf("endforeach without foreach in artifact")
			}
			n := top().feN
			n.body = top().body
			stack = stack[:len(stack)-1]
			emit(*n)

		case strings.HasPrefix(code, "for("):
			close := matchParenAt(code, 3)
			if close == -1 {
				return nil, fmt.Errorf("malformed for in artifact: %s", code)
			}
			n, err := parseCountedFor(code[4:close])
			if err != nil {
				return nil, err
			}
			stack = append(stack, &blockFrame{frN: n})

		case code == "endfor;":
			if len(stack) < 2 || top().frN == nil {
				return nil, fmt.Errorf("endfor without for in artifact")
			}
			n := top().frN
			n.body = top().body
			stack = stack[:len(stack)-1]
			emit(*n)

		default:
			return nil, fmt.Errorf("unsupported statement in artifact: %s", code)
		}
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("unbalanced blocks in artifact")
	}
	return stack[0].body, nil
}

// findCodeEnd locates the ?> closing a code block, skipping string
// contents: a translation blueprint literal may itself contain ?>.
func findCodeEnd(s string, from int) int {
	inStr := false
	var quote byte
	for i := from; i < len(s)-1; i++ {
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
		case '?':
			if s[i+1] == '>' {
				return i
			}
		}
	}
	return -1
}

func matchParenAt(s string, open int) int {
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

func parseForeach(clause string) (*foreachStmt, error) {
	at := strings.LastIndex(clause, " as ")
	if at == -1 {
		return nil, fmt.Errorf("malformed foreach clause: %s", clause)
	}
	items := strings.TrimSpace(clause[:at])
	binding := strings.TrimSpace(clause[at+4:])

	n := &foreachStmt{items: items}
	if arrow := strings.Index(binding, "=>"); arrow != -1 {
		n.key = varName(binding[:arrow])
		n.val = varName(binding[arrow+2:])
	} else {
		n.val = varName(binding)
	}
	return n, nil
}

func parseCountedFor(clause string) (*forStmt, error) {
	parts := strings.Split(clause, ";")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed for clause: %s", clause)
	}
	init := strings.TrimSpace(parts[0])
	cond := strings.TrimSpace(parts[1])

	eq := strings.Index(init, "=")
	if eq == -1 {
		return nil, fmt.Errorf("malformed for init: %s", init)
	}
	v := varName(init[:eq])

	lt := strings.Index(cond, "<")
	if lt == -1 {
		return nil, fmt.Errorf("malformed for condition: %s", cond)
	}
	return &forStmt{v: v, limit: strings.TrimSpace(cond[lt+1:])}, nil
}

func varName(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "$")
}

// ==========================================
// EXECUTION
// ==========================================

func (e *Evaluator) exec(stmts []stmt, scope *Scope, fns map[string]interface{}, sb *strings.Builder) error {
	for _, s := range stmts {
		switch t := s.(type) {
		case litStmt:
			sb.WriteString(string(t))

		case echoStmt:
			v, err := e.evalExpr(t.expr, scope, fns)
			if err != nil {
				return err
			}
			out := coerce.ToString(v)
			if !t.escaped && e.sanitizer != nil {
				out = e.sanitizer.Sanitize(out)
			}
			sb.WriteString(out)

		case ifStmt:
			for _, br := range t.branches {
				take := br.cond == ""
				if !take {
					v, err := e.evalExpr(br.cond, scope, fns)
					if err != nil {
						return err
					}
					take = truthy(v)
				}
				if take {
					if err := e.exec(br.body, scope, fns, sb); err != nil {
						return err
					}
					break
				}
			}

		case foreachStmt:
			items, err := e.evalExpr(t.items, scope, fns)
			if err != nil {
				return err
			}
			if err := e.iterate(items, t, scope, fns, sb); err != nil {
				return err
			}

		case forStmt:
			limitV, err := e.evalExpr(t.limit, scope, fns)
			if err != nil {
				return err
			}
			limit, err := coerce.ToInt(limitV)
			if err != nil {
				return err
			}
			for i := 0; i < limit; i++ {
				scope.Set(t.v, i)
				if err := e.exec(t.body, scope, fns, sb); err != nil {
					return err
				}
			}

		default:
			return fmt.Errorf("unknown statement %T", s)
		}
	}
	return nil
}

func (e *Evaluator) iterate(items interface{}, t foreachStmt, scope *Scope, fns map[string]interface{}, sb *strings.Builder) error {
	step := func(k, v interface{}) error {
		if t.key != "" {
			scope.Set(t.key, k)
		}
		scope.Set(t.val, v)
		return e.exec(t.body, scope, fns, sb)
	}

	switch coll := items.(type) {
	case nil:
		return nil
	case []interface{}:
		for i, v := range coll {
			if err := step(i, v); err != nil {
				return err
			}
		}
	case []string:
		for i, v := range coll {
			if err := step(i, v); err != nil {
				return err
			}
		}
	case *OrderedMap:
		for _, k := range coll.Keys {
			if err := step(k, coll.Values[k]); err != nil {
				return err
			}
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(coll))
		for k := range coll {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := step(k, coll[k]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("cannot iterate over %T", items)
	}
	return nil
}

// buildEnv assembles the function environment for one render: the
// host intrinsics, the host builtins the rewriter leaves alone, and a
// dispatch closure per registered function. Closures capture the scope
// so translate can re-render embedded fragments.
func (e *Evaluator) buildEnv(scope *Scope) map[string]interface{} {
	fns := map[string]interface{}{
		"__arr": func(args ...interface{}) (interface{}, error) {
			if len(args)%2 != 0 {
				return nil, fmt.Errorf("__arr requires key/value pairs")
			}
			m := &OrderedMap{Values: make(map[string]interface{}, len(args)/2)}
			for i := 0; i < len(args); i += 2 {
				k := coerce.ToString(args[i])
				m.Keys = append(m.Keys, k)
				m.Values[k] = args[i+1]
			}
			return m, nil
		},
		"htmlentities": func(v interface{}) string {
			return html.EscapeString(coerce.ToString(v))
		},
		"attrMerge": func(plain string, bound interface{}, delim string) string {
			return mergeTokens(plain, bound, delim)
		},
		"translate": func(args ...interface{}) (interface{}, error) {
			return e.translateCall(scope, args)
		},
		"partial": func(path interface{}, render bool) (interface{}, error) {
			return e.partialCall(scope, coerce.ToString(path), render)
		},

		// Host builtins.
		"empty": func(v interface{}) bool { return !truthy(v) },
		"isset": func(v interface{}) bool { return v != nil },
		"gettype": func(v interface{}) string {
			if v == nil {
				return "NULL"
			}
			return fmt.Sprintf("%T", v)
		},
		"strval":    func(v interface{}) string { return coerce.ToString(v) },
		"boolval":   func(v interface{}) bool { return truthy(v) },
		"is_null":   func(v interface{}) bool { return v == nil },
		"is_string": func(v interface{}) bool { _, ok := v.(string); return ok },
		"is_bool":   func(v interface{}) bool { _, ok := v.(bool); return ok },
		"intval": func(v interface{}) (int, error) {
			return coerce.ToInt(v)
		},
		"floatval": func(v interface{}) (float64, error) {
			return coerce.ToFloat64(v)
		},
	}

	for _, name := range e.table.names() {
		name := name
		fns[name] = func(args ...interface{}) (interface{}, error) {
			return e.table.invoke(name, args)
		}
	}
	return fns
}

// mergeTokens implements the class/style merge: plain tokens first,
// then bound truthy entries, empties dropped, duplicates removed.
func mergeTokens(plain string, bound interface{}, delim string) string {
	sep := strings.TrimSpace(delim)
	if sep == "" {
		sep = delim
	}

	var tokens []string
	seen := map[string]bool{}
	add := func(tok string) {
		tok = strings.TrimSpace(tok)
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}

	for _, tok := range strings.Split(plain, sep) {
		add(tok)
	}

	switch b := bound.(type) {
	case nil:
	case *OrderedMap:
		for _, k := range b.Keys {
			if truthy(b.Values[k]) {
				add(k)
			}
		}
	case []interface{}:
		for _, v := range b {
			add(coerce.ToString(v))
		}
	case string:
		for _, tok := range strings.Split(b, sep) {
			add(tok)
		}
	default:
		add(coerce.ToString(b))
	}

	return strings.Join(tokens, delim)
}
