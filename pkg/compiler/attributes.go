package compiler

import (
	"strings"

	"slate/pkg/ast"
)

// CompiledAttr is the per-attribute emission result: the final attribute
// name (or pseudo-name), the quote style the source used, and the parsed
// fragment mixing literal markup with host-directive escapes.
type CompiledAttr struct {
	Name      string
	Enclosure byte
	Parsed    string
}

// booleanAttrs are attributes with a single canonical presence form.
var booleanAttrs = map[string]bool{
	"async": true, "autofocus": true, "autoplay": true, "checked": true,
	"compact": true, "controls": true, "default": true, "defer": true,
	"disabled": true, "hidden": true, "indeterminate": true, "ismap": true,
	"loop": true, "multiple": true, "muted": true, "nohref": true,
	"noshade": true, "novalidate": true, "nowrap": true, "open": true,
	"readonly": true, "required": true, "reversed": true, "scoped": true,
	"seamless": true, "selected": true, "sortable": true,
	"formnovalidate": true, "noresize": true,
}

// twoFormAttrs map an attribute to its enabled/disabled value pair.
var twoFormAttrs = map[string][2]string{
	"autocomplete":    {"on", "off"},
	"contenteditable": {"true", "false"},
	"spellcheck":      {"true", "false"},
	"translate":       {"yes", "no"},
	"frameborder":     {"1", "0"},
	"border":          {"1", "0"},
}

type controlOpen struct {
	kind string // "if", "elseif", "else", "for", "foreach"
	open string
}

// nodeDirectives collects everything on a node that controls the
// surrounding emission instead of becoming an attribute.
type nodeDirectives struct {
	opens          []controlOpen
	translate      bool
	translateKey   string
	translateParam string
	skip           bool
	partialPath    string // plain s-partial value
	partialExpr    string // rewritten s-bind:s-partial expression
}

// directiveRank orders control-flow directives ahead of everything else
// so conditional wrappers land outside loop wrappers in the emitted
// stream.
func directiveRank(a ast.RawAttr) int {
	switch a.Name {
	case "s-if":
		return 0
	case "s-elseif":
		return 1
	case "s-else":
		return 2
	case "s-for":
		return 3
	}
	return 4
}

// compileAttributes classifies every raw attribute on the element and
// produces the staged directives plus the per-attribute fragments, in
// the enforced order.
func compileAttributes(cc *Context, n *ast.Node) (*nodeDirectives, []CompiledAttr, error) {
	d := &nodeDirectives{}

	attrs := make([]ast.RawAttr, len(n.Attrs))
	copy(attrs, n.Attrs)

	// Stable reorder: s-if < s-elseif < s-else < s-for < rest.
	for i := 1; i < len(attrs); i++ {
		for j := i; j > 0 && directiveRank(attrs[j]) < directiveRank(attrs[j-1]); j-- {
			attrs[j], attrs[j-1] = attrs[j-1], attrs[j]
		}
	}

	// Plain attributes suppressed by an s-bind of the same name. class
	// and style instead merge with their bound counterpart.
	suppressed := map[string]bool{}
	var bindClass, bindStyle *ast.RawAttr
	for i := range attrs {
		a := &attrs[i]
		if a.Key != "s-bind" || a.Type == "" {
			continue
		}
		switch a.Type {
		case "class":
			bindClass = a
		case "style":
			bindStyle = a
		default:
			suppressed[a.Type] = true
		}
	}

	var out []CompiledAttr
	mergedClass := false
	mergedStyle := false

	for i := range attrs {
		a := attrs[i]

		switch {
		case a.Name == "s-translate":
			d.translate = true
			d.translateParam = a.Value

		case a.Key == "s-translate" && a.Type != "":
			// A bracketed value is a parameters expression: this is the
			// scope form with the type as translation key. Anything else
			// translates a single attribute in place.
			if strings.HasPrefix(strings.TrimSpace(a.Value), "[") {
				d.translate = true
				d.translateKey = a.Type
				d.translateParam = a.Value
				continue
			}
			out = append(out, CompiledAttr{
				Name:      a.Type,
				Enclosure: a.Enclosure,
				Parsed: " " + a.Type + "=" + string(a.Enclosure) +
					"<?php echo $this->translate(" + phpQuote(a.Value) + ", []); ?>" +
					string(a.Enclosure),
			})

		case a.Name == "s-partial-var":
			// Reserved pseudo-attribute, never emitted.

		case a.Name == "s-skip":
			d.skip = true

		case a.Name == "s-partial" && a.Key == "s-partial":
			d.partialPath = a.Value

		case a.Name == "s-for":
			kind, open := parseForClause(a.Value)
			d.opens = append(d.opens, controlOpen{kind: kind, open: open})

		case a.Name == "s-if":
			d.opens = append(d.opens, controlOpen{kind: "if", open: "<?php if(" + RewriteCalls(a.Value) + "): ?>"})

		case a.Name == "s-elseif":
			d.opens = append(d.opens, controlOpen{kind: "elseif", open: "<?php elseif(" + RewriteCalls(a.Value) + "): ?>"})

		case a.Name == "s-else":
			d.opens = append(d.opens, controlOpen{kind: "else", open: "<?php else: ?>"})

		case a.Key == "s-bind":
			if a.Type == "" {
				return nil, nil, Diagnostic{
					Kind:     ErrMissingBindType,
					Message:  "s-bind requires a :<type> suffix",
					Template: cc.template,
					Tags:     []string{n.Tag.Name},
				}
			}
			switch {
			case a.Type == "class":
				if !mergedClass {
					out = append(out, mergeAttr("class", " ", plainAttr(attrs, "class"), a))
					mergedClass = true
				}
			case a.Type == "style":
				if !mergedStyle {
					out = append(out, mergeAttr("style", "; ", plainAttr(attrs, "style"), a))
					mergedStyle = true
				}
			case a.Type == "s-partial":
				d.partialExpr = RewriteCalls(a.Value)
			case booleanAttrs[a.Type]:
				out = append(out, CompiledAttr{
					Name:      a.Type,
					Enclosure: a.Enclosure,
					Parsed:    `<?php if(` + RewriteCalls(a.Value) + `) echo " ` + a.Type + `"; ?>`,
				})
			default:
				if forms, ok := twoFormAttrs[a.Type]; ok {
					on := phpQuote(" " + a.Type + "=" + string(a.Enclosure) + forms[0] + string(a.Enclosure))
					off := phpQuote(" " + a.Type + "=" + string(a.Enclosure) + forms[1] + string(a.Enclosure))
					out = append(out, CompiledAttr{
						Name:      a.Type,
						Enclosure: a.Enclosure,
						Parsed:    "<?php echo (" + RewriteCalls(a.Value) + ") ? " + on + " : " + off + "; ?>",
					})
					break
				}
				expr := escapeEnclosure(RewriteCalls(a.Value), a.Enclosure)
				out = append(out, CompiledAttr{
					Name:      a.Type,
					Enclosure: a.Enclosure,
					Parsed: " " + a.Type + "=" + string(a.Enclosure) +
						"<?php echo htmlentities((string) " + expr + "); ?>" +
						string(a.Enclosure),
				})
			}

		default:
			if suppressed[a.Name] {
				continue
			}
			if (a.Name == "class" && bindClass != nil) || (a.Name == "style" && bindStyle != nil) {
				continue // folded into the merged emission
			}
			if !a.HasValue {
				out = append(out, CompiledAttr{Name: a.Name, Enclosure: a.Enclosure, Parsed: " " + a.Name})
				continue
			}
			out = append(out, CompiledAttr{
				Name:      a.Name,
				Enclosure: a.Enclosure,
				Parsed:    " " + a.Name + "=" + string(a.Enclosure) + a.Value + string(a.Enclosure),
			})
		}
	}

	return d, out, nil
}

// mergeAttr folds a plain class/style attribute and its s-bind
// counterpart into one emitted attribute. The render-time helper joins
// entries, drops empties and de-duplicates, plain tokens first.
func mergeAttr(name, delim string, plain *ast.RawAttr, bound ast.RawAttr) CompiledAttr {
	plainVal := ""
	enc := bound.Enclosure
	if plain != nil {
		plainVal = plain.Value
		enc = plain.Enclosure
	}
	expr := escapeEnclosure(RewriteCalls(bound.Value), enc)
	return CompiledAttr{
		Name:      name,
		Enclosure: enc,
		Parsed: " " + name + "=" + string(enc) +
			"<?php echo $this->attrMerge(" + phpQuote(plainVal) + ", " + expr + ", " + phpQuote(delim) + "); ?>" +
			string(enc),
	}
}

func plainAttr(attrs []ast.RawAttr, name string) *ast.RawAttr {
	for i := range attrs {
		if attrs[i].Name == name {
			return &attrs[i]
		}
	}
	return nil
}

// parseForClause compiles the s-for value grammar:
//
//	( ITEM (, INDEX) )? "in" ITEMS
//
// A numeric ITEMS becomes a counted loop, an INDEX a key-value
// iteration, otherwise a value-only iteration.
func parseForClause(value string) (string, string) {
	value = strings.TrimSpace(value)

	lhs := ""
	items := value
	if at := strings.Index(value, " in "); at != -1 {
		lhs = strings.TrimSpace(value[:at])
		items = strings.TrimSpace(value[at+4:])
	}

	item := "$item"
	index := ""
	if lhs != "" {
		lhs = strings.TrimPrefix(lhs, "(")
		lhs = strings.TrimSuffix(lhs, ")")
		parts := strings.SplitN(lhs, ",", 2)
		item = normalizeLoopVar(parts[0])
		if len(parts) == 2 {
			index = normalizeLoopVar(parts[1])
		}
	}

	if isNumeric(items) {
		return "for", "<?php for(" + item + " = 0; " + item + " < " + items + "; " + item + "++): ?>"
	}

	itemsExpr := RewriteCalls(items)
	if index != "" {
		return "foreach", "<?php foreach(" + itemsExpr + " as " + index + " => " + item + "): ?>"
	}
	return "foreach", "<?php foreach(" + itemsExpr + " as " + item + "): ?>"
}

func normalizeLoopVar(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$")
	return "$" + s
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// phpQuote renders s as a single-quoted PHP string literal.
func phpQuote(s string) string {
	return "'" + escapeEnclosure(s, '\'') + "'"
}
