package ast

import (
	"testing"
)

func parseOne(t *testing.T, src string) (*Arena, []int) {
	t.Helper()
	arena, roots, err := Parse(src, ContentHTML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return arena, roots
}

func TestParseSimpleTree(t *testing.T) {
	arena, roots := parseOne(t, `<div><p>hello</p></div>`)
	if len(roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(roots))
	}

	div := arena.Node(roots[0])
	if div.Kind != KindElement || div.Tag.Name != "div" {
		t.Fatalf("unexpected root: %+v", div)
	}
	if len(div.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(div.Children))
	}

	p := arena.Node(div.Children[0])
	if p.Tag.Name != "p" || p.Parent != roots[0] {
		t.Errorf("child wiring wrong: %+v", p)
	}

	text := arena.Node(p.Children[0])
	if text.Kind != KindText || text.Text != "hello" {
		t.Errorf("text node wrong: %+v", text)
	}
}

func TestParseSiblingBackEdges(t *testing.T) {
	arena, roots := parseOne(t, `<i>a</i><i>b</i><i>c</i>`)
	if len(roots) != 3 {
		t.Fatalf("expected 3 roots, got %d", len(roots))
	}
	if arena.Node(roots[0]).NextSibling != roots[1] {
		t.Error("first sibling edge missing")
	}
	if arena.Node(roots[1]).NextSibling != roots[2] {
		t.Error("second sibling edge missing")
	}
	if arena.Node(roots[2]).NextSibling != -1 {
		t.Error("last sibling should have no next")
	}
	if arena.Next(roots[0]).Tag.Name != "i" {
		t.Error("Next helper broken")
	}
}

func TestParseAttributes(t *testing.T) {
	arena, roots := parseOne(t, `<div class="a" s-bind:title='$t' disabled>x</div>`)
	attrs := arena.Node(roots[0]).Attrs
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attrs, got %d: %+v", len(attrs), attrs)
	}

	if attrs[0].Name != "class" || attrs[0].Value != "a" || attrs[0].Enclosure != '"' || !attrs[0].HasValue {
		t.Errorf("class attr wrong: %+v", attrs[0])
	}
	if attrs[1].Key != "s-bind" || attrs[1].Type != "title" || attrs[1].Enclosure != '\'' {
		t.Errorf("typed attr wrong: %+v", attrs[1])
	}
	if attrs[2].Name != "disabled" || attrs[2].HasValue {
		t.Errorf("bare attr wrong: %+v", attrs[2])
	}
}

func TestParseVoidElement(t *testing.T) {
	arena, roots := parseOne(t, `<img src="a.png"><p>x</p>`)
	img := arena.Node(roots[0])
	if !img.Tag.SelfClosing || img.Tag.NeedsClosing {
		t.Errorf("void element flags wrong: %+v", img.Tag)
	}
	if len(roots) != 2 {
		t.Fatalf("void element swallowed its sibling: %d roots", len(roots))
	}
}

func TestParseSelfClosing(t *testing.T) {
	arena, roots, err := Parse(`<item id="1"/>`, ContentXML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	n := arena.Node(roots[0])
	if !n.Tag.SelfClosing || n.Tag.NeedsClosing {
		t.Errorf("self-closing flags wrong: %+v", n.Tag)
	}
}

func TestParseComment(t *testing.T) {
	arena, roots := parseOne(t, `<!-- note -->`)
	n := arena.Node(roots[0])
	if n.Kind != KindComment || n.Text != " note " {
		t.Errorf("comment wrong: %+v", n)
	}
	if n.Raw != "<!-- note -->" {
		t.Errorf("comment raw wrong: %q", n.Raw)
	}
}

func TestParseProcessingInstruction(t *testing.T) {
	arena, roots, err := Parse(`<?xml version="1.0"?><root>x</root>`, ContentXML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	pi := arena.Node(roots[0])
	if pi.Kind != KindElement || !pi.Tag.ProcessingInstruction {
		t.Fatalf("expected processing instruction, got %+v", pi)
	}
	if pi.Tag.Name != "xml" {
		t.Errorf("pi name = %q", pi.Tag.Name)
	}
}

func TestParseTextRawPreserved(t *testing.T) {
	arena, roots := parseOne(t, `<p>a &amp; {{ $b }}</p>`)
	text := arena.Node(arena.Node(roots[0]).Children[0])
	if text.Raw != "a &amp; {{ $b }}" {
		t.Errorf("raw text not preserved: %q", text.Raw)
	}
}

func TestParseStrayCloseDropped(t *testing.T) {
	_, roots := parseOne(t, `</b><p>x</p>`)
	if len(roots) != 1 {
		t.Fatalf("stray close produced nodes: %d roots", len(roots))
	}
}
