package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustCompile(t *testing.T, source string) string {
	t.Helper()
	c, err := New("", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.CompileString(source)
	if err != nil {
		t.Fatalf("CompileString failed: %v", err)
	}
	return out
}

// requireOrder asserts every needle occurs, each after the previous one.
func requireOrder(t *testing.T, haystack string, needles ...string) {
	t.Helper()
	pos := 0
	for _, n := range needles {
		at := strings.Index(haystack[pos:], n)
		if at == -1 {
			t.Fatalf("missing or out of order: %q\nin: %s", n, haystack)
		}
		pos += at + len(n)
	}
}

func TestPlainInterpolation(t *testing.T) {
	out := mustCompile(t, `<p>Hello {{ $name }}</p>`)
	requireOrder(t, out,
		"<p>Hello ",
		"<?php echo htmlentities((string) $name); ?>",
		"</p>",
	)
}

func TestIfElseifElseChain(t *testing.T) {
	out := mustCompile(t, `<i s-if="$x==1">A</i>
<i s-elseif="$x==2">B</i>
<i s-else>C</i>`)

	requireOrder(t, out,
		"<?php if($x==1): ?>", "<i>A</i>",
		"<?php elseif($x==2): ?>", "<i>B</i>",
		"<?php else: ?>", "<i>C</i>",
		"<?php endif; ?>",
	)
	if strings.Count(out, "endif") != 1 {
		t.Errorf("expected exactly one endif: %s", out)
	}
}

func TestForeachWithIndex(t *testing.T) {
	out := mustCompile(t, `<li s-for="($item, $index) in $items">{{ $index }}:{{ $item }}</li>`)
	requireOrder(t, out,
		"<?php foreach($items as $index => $item): ?>",
		"<li>",
		"<?php echo htmlentities((string) $index); ?>",
		":",
		"<?php echo htmlentities((string) $item); ?>",
		"</li>",
		"<?php endforeach; ?>",
	)
	if strings.Count(out, "endforeach") != 1 {
		t.Errorf("expected exactly one terminator: %s", out)
	}
}

func TestNumericForLoop(t *testing.T) {
	out := mustCompile(t, `<li s-for="$i in 10">x</li>`)
	requireOrder(t, out,
		"<?php for($i = 0; $i < 10; $i++): ?>",
		"<li>x</li>",
		"<?php endfor; ?>",
	)
}

func TestValueOnlyForeach(t *testing.T) {
	out := mustCompile(t, `<li s-for="$u in $users">{{ $u }}</li>`)
	if !strings.Contains(out, "<?php foreach($users as $u): ?>") {
		t.Errorf("value-only iteration missing: %s", out)
	}
}

func TestConditionOutsideLoop(t *testing.T) {
	// An s-if and s-for on the same element: the if wrapper must sit
	// outside the loop wrapper regardless of source attribute order.
	out := mustCompile(t, `<li s-for="$u in $users" s-if="$show">{{ $u }}</li>`)
	requireOrder(t, out,
		"<?php if($show): ?>",
		"<?php foreach($users as $u): ?>",
		"<li>",
		"<?php endforeach; ?>",
		"<?php endif; ?>",
	)
}

func TestSTagTransparent(t *testing.T) {
	out := mustCompile(t, `<s-tag s-if="$ok"><b>x</b></s-tag>`)
	if strings.Contains(out, "<s-tag") || strings.Contains(out, "</s-tag>") {
		t.Errorf("s-tag leaked into output: %s", out)
	}
	requireOrder(t, out, "<?php if($ok): ?>", "<b>x</b>", "<?php endif; ?>")
}

func TestSkipScope(t *testing.T) {
	out := mustCompile(t, `<pre s-skip><span s-if="$x">{{ $y }}</span></pre>`)
	if strings.Contains(out, "<?php") {
		t.Errorf("directives were interpreted inside skip scope: %s", out)
	}
	requireOrder(t, out,
		"<pre>",
		`<span s-if="$x">{{ $y }}</span>`,
		"</pre>",
	)
}

func TestNestedTranslationRejected(t *testing.T) {
	c, err := New("", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.CompileString(`<div s-translate="['a' => 1]"><span s-translate="['b' => 2]">x</span></div>`)
	if err == nil {
		t.Fatal("expected nested translation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "div") || !strings.Contains(msg, "span") {
		t.Errorf("error should mention both tag names: %s", msg)
	}
	if !strings.Contains(msg, ErrNestedTranslation) {
		t.Errorf("wrong error kind: %s", msg)
	}
}

func TestNoDirectivesRoundTrip(t *testing.T) {
	src := "<div>\n  <p>plain text</p>\n</div>"
	out := mustCompile(t, src)
	if out != src {
		t.Errorf("round trip changed output:\n in: %q\nout: %q", src, out)
	}
}

func TestCommentsDroppedWhenConfigured(t *testing.T) {
	c, _ := New("", "")
	c.SkipComments = true
	out, err := c.CompileString("<div><!-- note -->x</div>")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if strings.Contains(out, "note") {
		t.Errorf("comment survived: %s", out)
	}

	c2, _ := New("", "")
	out2, err := c2.CompileString("<div><!-- note -->x</div>")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(out2, "<!-- note -->") {
		t.Errorf("comment dropped without config: %s", out2)
	}
}

func TestSelfClosingAndVoid(t *testing.T) {
	out := mustCompile(t, `<img src="a.png"><br>`)
	requireOrder(t, out, `<img src="a.png">`, "<br>")
	if strings.Contains(out, "</img>") || strings.Contains(out, "</br>") {
		t.Errorf("void element got a closing tag: %s", out)
	}
}

func TestPartialInclude(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "header.html"), []byte(`<h1>{{ $title }}</h1>`), 0644)

	c, err := New(dir, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.CompileString(`<div s-partial="header.html"></div>`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	requireOrder(t, out,
		"<div>",
		"<h1>",
		"<?php echo htmlentities((string) $title); ?>",
		"</h1>",
		"</div>",
	)
}

func TestPartialInsideSkip(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "raw.html"), []byte(`<b s-if="$x">y</b>`), 0644)

	c, _ := New(dir, "")
	out, err := c.CompileString(`<pre s-skip s-partial="raw.html"></pre>`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if strings.Contains(out, "<?php") {
		t.Errorf("partial inside skip was compiled: %s", out)
	}
	if !strings.Contains(out, `<b s-if="$x">y</b>`) {
		t.Errorf("partial not included verbatim: %s", out)
	}
}

func TestDynamicPartial(t *testing.T) {
	out := mustCompile(t, `<div s-bind:s-partial="$widget"></div>`)
	if !strings.Contains(out, "<?php echo $this->partial($widget, true); ?>") {
		t.Errorf("dynamic partial call missing: %s", out)
	}
}

func TestTemplateNotFound(t *testing.T) {
	c, _ := New(t.TempDir(), "")
	_, err := c.CompileFile("missing.html")
	if err == nil {
		t.Fatal("expected template-not-found")
	}
	if !strings.Contains(err.Error(), ErrTemplateNotFound) {
		t.Errorf("wrong error: %v", err)
	}
}

func TestMissingBindType(t *testing.T) {
	c, _ := New("", "")
	_, err := c.CompileString(`<div s-bind="$x"></div>`)
	if err == nil {
		t.Fatal("expected missing-bind-type error")
	}
	if !strings.Contains(err.Error(), ErrMissingBindType) {
		t.Errorf("wrong error: %v", err)
	}
}
