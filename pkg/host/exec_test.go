package host

import (
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slate/pkg/compiler"
)

func render(t *testing.T, source string, vars map[string]interface{}) string {
	t.Helper()
	c, err := compiler.New("", "")
	require.NoError(t, err)
	artifact, err := c.CompileString(source)
	require.NoError(t, err)

	e := NewEvaluator(c)
	out, err := e.Render(artifact, vars)
	require.NoError(t, err)
	return out
}

func TestRenderInterpolationEscapes(t *testing.T) {
	out := render(t, `<p>Hello {{ $name }}</p>`, map[string]interface{}{"name": "<Ana>"})
	assert.Equal(t, "<p>Hello &lt;Ana&gt;</p>", out)
}

func TestRenderRawInterpolation(t *testing.T) {
	out := render(t, `<p>{!! $html !!}</p>`, map[string]interface{}{"html": "<b>x</b>"})
	assert.Equal(t, "<p><b>x</b></p>", out)
}

func TestRenderEscapedAndRawDifferOnlyByEscaping(t *testing.T) {
	vars := map[string]interface{}{"x": "a&b"}
	escaped := render(t, `{{ $x }}`, vars)
	raw := render(t, `{!! $x !!}`, vars)
	assert.Equal(t, "a&amp;b", escaped)
	assert.Equal(t, "a&b", raw)
}

func TestRenderIfChain(t *testing.T) {
	src := `<i s-if="$x==1">A</i><i s-elseif="$x==2">B</i><i s-else>C</i>`

	assert.Contains(t, render(t, src, map[string]interface{}{"x": 1}), ">A<")
	out2 := render(t, src, map[string]interface{}{"x": 2})
	assert.Contains(t, out2, ">B<")
	assert.NotContains(t, out2, ">A<")
	assert.Contains(t, render(t, src, map[string]interface{}{"x": 3}), ">C<")
}

func TestRenderForeachWithIndex(t *testing.T) {
	out := render(t,
		`<li s-for="($item, $index) in $items">{{ $index }}:{{ $item }}</li>`,
		map[string]interface{}{"items": []interface{}{"a", "b"}})
	assert.Equal(t, "<li>0:a</li><li>1:b</li>", out)
}

func TestRenderCountedLoop(t *testing.T) {
	out := render(t, `<b s-for="$i in 3">{{ $i }}</b>`, nil)
	assert.Equal(t, "<b>0</b><b>1</b><b>2</b>", out)
}

func TestRenderClassMerge(t *testing.T) {
	out := render(t,
		`<div class="static" s-bind:class="['active' => true, 'hidden' => false, 'static' => true]"></div>`,
		nil)
	assert.Equal(t, `<div class="static active"></div>`, out)
}

func TestRenderBooleanAttr(t *testing.T) {
	src := `<input type="checkbox" s-bind:checked="$done">`
	assert.Equal(t, `<input type="checkbox" checked>`,
		render(t, src, map[string]interface{}{"done": true}))
	assert.Equal(t, `<input type="checkbox">`,
		render(t, src, map[string]interface{}{"done": false}))
}

func TestRenderTwoFormAttr(t *testing.T) {
	src := `<div s-bind:spellcheck="$sc">x</div>`
	assert.Equal(t, `<div spellcheck="true">x</div>`,
		render(t, src, map[string]interface{}{"sc": true}))
	assert.Equal(t, `<div spellcheck="false">x</div>`,
		render(t, src, map[string]interface{}{"sc": false}))
}

func TestRenderRegisteredFunction(t *testing.T) {
	c, err := compiler.New("", "")
	require.NoError(t, err)
	artifact, err := c.CompileString(`<p>{{ add(5, 2) + 1 }}</p>`)
	require.NoError(t, err)

	e := NewEvaluator(c)
	require.NoError(t, e.Register("add", func(args ...interface{}) (interface{}, error) {
		a := args[0].(int)
		b := args[1].(int)
		return a + b, nil
	}, DefaultCacheBound))

	out, err := e.Render(artifact, nil)
	require.NoError(t, err)
	assert.Equal(t, "<p>8</p>", out)
}

func TestRenderUnknownFunctionFails(t *testing.T) {
	c, err := compiler.New("", "")
	require.NoError(t, err)
	artifact, err := c.CompileString(`{{ nope(1) }}`)
	require.NoError(t, err)

	e := NewEvaluator(c)
	_, err = e.Render(artifact, nil)
	require.Error(t, err)
}

func TestRenderSanitizerOnRawOutput(t *testing.T) {
	c, err := compiler.New("", "")
	require.NoError(t, err)
	artifact, err := c.CompileString(`{!! $html !!}`)
	require.NoError(t, err)

	e := NewEvaluator(c).WithSanitizer(bluemonday.UGCPolicy())
	out, err := e.Render(artifact, map[string]interface{}{
		"html": `<b>ok</b><script>alert(1)</script>`,
	})
	require.NoError(t, err)
	assert.Equal(t, "<b>ok</b>", out)
}

func TestRenderNestedLoopsAndConditions(t *testing.T) {
	src := `<ul s-if="$show"><li s-for="$n in $nums"><b s-if="$n==2">{{ $n }}!</b><i s-else>{{ $n }}</i></li></ul>`
	out := render(t, src, map[string]interface{}{
		"show": true,
		"nums": []interface{}{1, 2},
	})
	assert.Equal(t, "<ul><li><i>1</i></li><li><b>2!</b></li></ul>", out)
}

func TestNormalizeExpr(t *testing.T) {
	cases := map[string]string{
		"$x==1":                     "x==1",
		"$this->foo($a)":            "foo(a)",
		"['a' => 1, 'b' => $v]":     "__arr('a', 1, 'b', v)",
		"htmlentities((string) $n)": "htmlentities(n)",
		"'lit $x' . $y":             "'lit $x' + y",
		"$items[0]":                 "items[0]",
		"[1, 2, 3]":                 "[1, 2, 3]",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeExpr(in), "input %q", in)
	}
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.False(t, truthy(0))
	assert.False(t, truthy(""))
	assert.False(t, truthy("0"))
	assert.False(t, truthy([]interface{}{}))
	assert.True(t, truthy(1))
	assert.True(t, truthy("x"))
	assert.True(t, truthy([]interface{}{1}))
}
