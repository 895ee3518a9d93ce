package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"slate/pkg/utils/coerce"
)

// TranslationTable holds one map of translation strings per language.
// Nested JSON objects are flattened into dotted keys, so "auth.login"
// addresses {"auth": {"login": "..."}}.
type TranslationTable struct {
	langs map[string]map[string]string
}

// LoadTranslations reads every <lang>.json in dir into the table.
func LoadTranslations(dir string) (*TranslationTable, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("translation dir: %w", err)
	}

	t := &TranslationTable{langs: make(map[string]map[string]string)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("translation file %s: %w", e.Name(), err)
		}
		lang := strings.TrimSuffix(e.Name(), ".json")
		flat := make(map[string]string)
		flatten("", raw, flat)
		t.langs[lang] = flat
	}
	return t, nil
}

func flatten(prefix string, raw map[string]interface{}, out map[string]string) {
	for k, v := range raw {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]interface{}:
			flatten(key, t, out)
		default:
			out[key] = coerce.ToString(t)
		}
	}
}

func (t *TranslationTable) Lookup(lang, key string) (string, bool) {
	if t == nil {
		return "", false
	}
	m, ok := t.langs[lang]
	if !ok {
		return "", false
	}
	s, ok := m[key]
	return s, ok
}

// translateCall backs the $this->translate(blueprint, params[, key])
// emission. The blueprint is the compiled child snapshot; a matching
// translation replaces its text while the embedded fragments keep
// rendering against the live scope.
func (e *Evaluator) translateCall(scope *Scope, args []interface{}) (interface{}, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("translate requires a blueprint")
	}
	blueprint := coerce.ToString(args[0])

	params := map[string]interface{}{}
	if len(args) > 1 {
		switch p := args[1].(type) {
		case *OrderedMap:
			params = p.Values
		case map[string]interface{}:
			params = p
		}
	}

	lookupKey := blueprint
	if len(args) > 2 {
		lookupKey = coerce.ToString(args[2])
	}

	translated, ok := e.translations.Lookup(e.lang, lookupKey)
	if !ok {
		return e.renderArtifact(blueprint, scope)
	}

	if strings.Contains(translated, "|") {
		if count, has := params["count"]; has {
			n, err := coerce.ToInt(count)
			if err == nil {
				translated = chooseVariant(translated, n)
			}
		}
	}

	// Every element tag the translation mentions must exist in the
	// blueprint; anything else is a blueprint mismatch.
	for _, tag := range elementTags(translated) {
		if !strings.Contains(blueprint, "<"+tag) {
			return nil, fmt.Errorf("translation blueprint mismatch: tag <%s> not present in blueprint", tag)
		}
	}

	for k, v := range params {
		translated = strings.ReplaceAll(translated, ":"+k, coerce.ToString(v))
	}

	return e.renderArtifact(translated, scope)
}

// chooseVariant picks one |-separated plural segment. Selectors: {n} is
// an exact match, [from,to] an inclusive range where a missing or *
// bound leaves that side open; a bracketed selector without a comma is
// exact. Segments without a selector fall back to singular/plural by
// position.
func chooseVariant(s string, count int) string {
	segments := strings.Split(s, "|")

	var plain []string
	for _, seg := range segments {
		sel, text := splitSelector(seg)
		if sel == "" {
			plain = append(plain, text)
			continue
		}
		if selectorMatches(sel, count) {
			return text
		}
	}

	if len(plain) == 0 {
		return s
	}
	if count == 1 || len(plain) == 1 {
		return plain[0]
	}
	return plain[1]
}

func splitSelector(seg string) (string, string) {
	seg = strings.TrimSpace(seg)
	if strings.HasPrefix(seg, "{") {
		if end := strings.Index(seg, "}"); end != -1 {
			return seg[:end+1], strings.TrimSpace(seg[end+1:])
		}
	}
	if strings.HasPrefix(seg, "[") {
		if end := strings.Index(seg, "]"); end != -1 {
			return seg[:end+1], strings.TrimSpace(seg[end+1:])
		}
	}
	return "", seg
}

func selectorMatches(sel string, count int) bool {
	inner := strings.TrimSpace(sel[1 : len(sel)-1])

	if strings.HasPrefix(sel, "{") {
		if inner == "*" {
			return true
		}
		n, err := coerce.ToInt(inner)
		return err == nil && n == count
	}

	comma := strings.Index(inner, ",")
	if comma == -1 {
		n, err := coerce.ToInt(inner)
		return err == nil && n == count
	}

	from := strings.TrimSpace(inner[:comma])
	to := strings.TrimSpace(inner[comma+1:])

	if from != "" && from != "*" {
		n, err := coerce.ToInt(from)
		if err != nil || count < n {
			return false
		}
	}
	if to != "" && to != "*" {
		n, err := coerce.ToInt(to)
		if err != nil || count > n {
			return false
		}
	}
	return true
}

// elementTags lists the element names opened in a translation string.
func elementTags(s string) []string {
	var tags []string
	for i := 0; i < len(s)-1; i++ {
		if s[i] != '<' {
			continue
		}
		j := i + 1
		if j < len(s) && (s[j] == '/' || s[j] == '?' || s[j] == '!') {
			continue
		}
		start := j
		for j < len(s) && (isAlpha(s[j]) || (s[j] >= '0' && s[j] <= '9') || s[j] == '-') {
			j++
		}
		if j > start {
			tags = append(tags, s[start:j])
		}
	}
	return tags
}

// partialCall backs $this->partial(path, render): either the compiled
// source of the partial or its rendered result.
func (e *Evaluator) partialCall(scope *Scope, path string, render bool) (interface{}, error) {
	if e.Compiler == nil {
		return nil, fmt.Errorf("no compiler attached for partial %q", path)
	}
	artifact, err := e.Compiler.CompileFile(path)
	if err != nil {
		return nil, err
	}
	if !render {
		return artifact, nil
	}
	return e.renderArtifact(artifact, scope)
}
