package compiler

import (
	"strings"
	"testing"
)

func TestBooleanAttrSingleForm(t *testing.T) {
	out := mustCompile(t, `<input s-bind:disabled="$locked">`)
	if !strings.Contains(out, `<?php if($locked) echo " disabled"; ?>`) {
		t.Errorf("boolean emission missing: %s", out)
	}
	if strings.Contains(out, `disabled="`) {
		t.Errorf("boolean attr emitted with a value: %s", out)
	}
}

func TestBooleanAttrTwoForms(t *testing.T) {
	out := mustCompile(t, `<input s-bind:autocomplete="$auto">`)
	if !strings.Contains(out, `autocomplete="on"`) || !strings.Contains(out, `autocomplete="off"`) {
		t.Errorf("two-form ternary missing: %s", out)
	}
	if !strings.Contains(out, "($auto) ?") {
		t.Errorf("ternary condition missing: %s", out)
	}
}

func TestClassMergeSingleAttribute(t *testing.T) {
	out := mustCompile(t, `<div class="static" s-bind:class="['active' => true]"></div>`)
	if got := strings.Count(out, "class="); got != 1 {
		t.Fatalf("expected exactly one class attribute, got %d: %s", got, out)
	}
	if !strings.Contains(out, `$this->attrMerge('static', ['active' => true], ' ')`) {
		t.Errorf("merge call missing: %s", out)
	}
}

func TestStyleMergeDelimiter(t *testing.T) {
	out := mustCompile(t, `<div style="color: red" s-bind:style="$extra"></div>`)
	if got := strings.Count(out, "style="); got != 1 {
		t.Fatalf("expected exactly one style attribute, got %d: %s", got, out)
	}
	if !strings.Contains(out, `'; '`) {
		t.Errorf("style delimiter missing: %s", out)
	}
}

func TestBindSuppressesPlainCounterpart(t *testing.T) {
	out := mustCompile(t, `<a href="/static" s-bind:href="$url">x</a>`)
	if strings.Contains(out, `href="/static"`) {
		t.Errorf("plain attr not suppressed: %s", out)
	}
	if !strings.Contains(out, "htmlentities((string) $url)") {
		t.Errorf("bound emission missing: %s", out)
	}
	if got := strings.Count(out, "href="); got != 1 {
		t.Errorf("expected one href, got %d: %s", got, out)
	}
}

func TestBindDefaultEscaped(t *testing.T) {
	out := mustCompile(t, `<a s-bind:title="$t">x</a>`)
	if !strings.Contains(out, `title="<?php echo htmlentities((string) $t); ?>"`) {
		t.Errorf("default bind emission wrong: %s", out)
	}
}

func TestEnclosurePreserved(t *testing.T) {
	out := mustCompile(t, `<a s-bind:title='$t'>x</a>`)
	if !strings.Contains(out, "title='<?php") {
		t.Errorf("single-quote enclosure not preserved: %s", out)
	}
}

func TestPassThroughVerbatim(t *testing.T) {
	out := mustCompile(t, `<div data-x="a  b" hidden>x</div>`)
	if !strings.Contains(out, ` data-x="a  b"`) {
		t.Errorf("pass-through mangled: %s", out)
	}
	if !strings.Contains(out, " hidden>") {
		t.Errorf("bare attribute mangled: %s", out)
	}
}

func TestTranslateAttribute(t *testing.T) {
	out := mustCompile(t, `<input s-translate:placeholder="search.hint">`)
	if !strings.Contains(out, `placeholder="<?php echo $this->translate('search.hint', []); ?>"`) {
		t.Errorf("attribute translation missing: %s", out)
	}
	if strings.Contains(out, "s-translate") {
		t.Errorf("directive leaked: %s", out)
	}
}

func TestBindCallRewritten(t *testing.T) {
	out := mustCompile(t, `<a s-bind:href="route('home')">x</a>`)
	if !strings.Contains(out, "$this->route('home')") {
		t.Errorf("bound expression call not rewritten: %s", out)
	}
}

func TestForClauseForms(t *testing.T) {
	kind, open := parseForClause("$i in 10")
	if kind != "for" || !strings.Contains(open, "$i < 10") {
		t.Errorf("numeric clause: %s %s", kind, open)
	}

	kind, open = parseForClause("($item, $index) in $items")
	if kind != "foreach" || !strings.Contains(open, "$index => $item") {
		t.Errorf("key-value clause: %s %s", kind, open)
	}

	kind, open = parseForClause("$v in $vals")
	if kind != "foreach" || !strings.Contains(open, "foreach($vals as $v)") {
		t.Errorf("value clause: %s %s", kind, open)
	}
}
