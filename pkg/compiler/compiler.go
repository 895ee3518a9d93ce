package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"slate/pkg/ast"
)

// Compiler turns s-* annotated markup into the PHP-flavored artifact the
// host evaluator renders. One Compiler may be reused across templates;
// all per-compilation state lives in a Context, so separate compiles are
// independent. A single compile is not safe to share across goroutines.
type Compiler struct {
	TemplateDir  string
	CacheDir     string
	ContentType  ast.ContentType
	SkipComments bool
	CacheEnabled bool

	cache *Cache
}

// New builds a compiler over the given template directory. Passing an
// empty cacheDir disables the compile cache.
func New(templateDir, cacheDir string) (*Compiler, error) {
	c := &Compiler{
		TemplateDir: templateDir,
		CacheDir:    cacheDir,
		ContentType: ast.ContentHTML,
	}
	if cacheDir != "" {
		cache, err := NewCache(cacheDir)
		if err != nil {
			return nil, err
		}
		c.cache = cache
		c.CacheEnabled = true
	}
	return c, nil
}

func (c *Compiler) resolve(path string) string {
	if filepath.IsAbs(path) || c.TemplateDir == "" {
		return path
	}
	return filepath.Join(c.TemplateDir, path)
}

// CompileFile compiles one template, consulting the compile cache. The
// cached artifact is used only while the source mtime stays strictly
// older than the stored one.
func (c *Compiler) CompileFile(path string) (string, error) {
	full := c.resolve(path)

	st, err := os.Stat(full)
	if err != nil {
		return "", Diagnostic{Kind: ErrTemplateNotFound, Message: "no such template", Template: full}
	}

	if c.CacheEnabled {
		if artifact, storedMtime, ok := c.cache.Get(full); ok && st.ModTime().Before(storedMtime) {
			metricCacheHits.Inc()
			return artifact, nil
		}
		metricCacheMisses.Inc()
	}

	src, err := os.ReadFile(full)
	if err != nil {
		return "", Diagnostic{Kind: ErrTemplateNotFound, Message: err.Error(), Template: full}
	}

	started := time.Now()
	artifact, err := c.compileSource(string(src), full, false)
	if err != nil {
		return "", err
	}
	metricCompiles.Inc()
	metricCompileDuration.Observe(time.Since(started).Seconds())

	if c.CacheEnabled {
		// Stored mtime is bumped one tick past the source so an
		// unchanged file hits the cache on the next compile.
		if err := c.cache.Put(full, artifact, st.ModTime().Add(time.Nanosecond)); err != nil {
			return "", err
		}
	}
	return artifact, nil
}

// Invalidate drops the compile-cache entry for a template, forcing the
// next CompileFile to recompile. No-op when the cache is disabled.
func (c *Compiler) Invalidate(path string) {
	if c.CacheEnabled {
		c.cache.Invalidate(c.resolve(path))
	}
}

// CompileString compiles template source directly, bypassing cache and
// filesystem.
func (c *Compiler) CompileString(source string) (string, error) {
	return c.compileSource(source, "(inline)", false)
}

func (c *Compiler) compileSource(source, path string, inheritSkip bool) (string, error) {
	arena, roots, err := ast.Parse(source, c.ContentType)
	if err != nil {
		return "", Diagnostic{Kind: "parse-error", Message: err.Error(), Template: path}
	}

	cc := newContext(path)
	cc.skipForced = inheritSkip

	for _, idx := range roots {
		if err := c.compileNode(cc, arena, idx); err != nil {
			return "", err
		}
	}
	return cc.result(), nil
}

// compilePartial spawns a child compile for an s-partial include. The
// child shares the configured directories but starts with fresh scopes;
// only the skip state is inherited, so a partial inside s-skip comes out
// as literal text too.
func (c *Compiler) compilePartial(path string, parent *Context) (string, error) {
	full := c.resolve(path)
	src, err := os.ReadFile(full)
	if err != nil {
		return "", Diagnostic{Kind: ErrTemplateNotFound, Message: "no such partial", Template: full}
	}
	return c.compileSource(string(src), full, parent.inSkip())
}

func (c *Compiler) compileNode(cc *Context, a *ast.Arena, idx int) error {
	n := a.Node(idx)

	switch n.Kind {
	case ast.KindText:
		c.compileText(cc, n.Raw)
		return nil
	case ast.KindComment:
		if c.SkipComments {
			return nil
		}
		c.compileText(cc, n.Raw)
		return nil
	}

	return c.compileElement(cc, a, idx)
}

func (c *Compiler) compileText(cc *Context, raw string) {
	if cc.inSkip() {
		cc.append(raw)
		return
	}
	cc.append(substituteInterpolations(raw))
}

func (c *Compiler) compileElement(cc *Context, a *ast.Arena, idx int) error {
	n := a.Node(idx)

	// Inside a skip scope everything passes through verbatim,
	// directive-uninterpreted.
	if cc.inSkip() {
		cc.append(n.Raw)
		for _, ch := range n.Children {
			if err := c.compileNode(cc, a, ch); err != nil {
				return err
			}
		}
		if n.Tag.NeedsClosing {
			cc.append("</" + n.Tag.Name + ">")
		}
		return nil
	}

	if n.Tag.ProcessingInstruction {
		cc.append(n.Raw)
		return nil
	}

	d, attrs, err := compileAttributes(cc, n)
	if err != nil {
		return err
	}

	if d.translate {
		if err := cc.openTranslation(idx, n.Tag.Name, d.translateKey, d.translateParam); err != nil {
			return err
		}
	}
	if d.skip {
		cc.skipRoot = idx
	}

	// Control-flow wrappers fire before anything the element emits.
	for _, op := range d.opens {
		cc.append(op.open)
	}

	// Open tag. s-tag is a transparent container: neither its open nor
	// its close is emitted. The translation root's own open tag goes to
	// the normal output; buffer routing flips on right after it.
	isSTag := n.Tag.Name == "s-tag"
	if !isSTag {
		var sb strings.Builder
		sb.WriteString("<")
		sb.WriteString(n.Tag.Name)
		for _, ca := range attrs {
			sb.WriteString(ca.Parsed)
		}
		if n.Tag.SelfClosing && strings.Contains(n.Raw, "/>") {
			sb.WriteString(" />")
		} else {
			sb.WriteString(">")
		}
		cc.append(sb.String())
	}
	if cc.trans != nil && cc.trans.node == idx {
		cc.transRouting = true
	}

	if d.partialPath != "" {
		sub, err := c.compilePartial(d.partialPath, cc)
		if err != nil {
			return err
		}
		cc.append(sub)
	}
	if d.partialExpr != "" {
		cc.append("<?php echo $this->partial(" + d.partialExpr + ", true); ?>")
	}

	for _, ch := range n.Children {
		if err := c.compileNode(cc, a, ch); err != nil {
			return err
		}
	}

	if cc.trans != nil && cc.trans.node == idx {
		cc.closeTranslation()
	}

	if n.Tag.NeedsClosing && !isSTag {
		cc.append("</" + n.Tag.Name + ">")
	}

	if cc.skipRoot == idx {
		cc.skipRoot = -1
	}

	// Close every staged block in LIFO order. Chained if/elseif/else
	// branches share a single terminator: the endif comes from the last
	// chain member, decided via the next-sibling back-edge.
	for i := len(d.opens) - 1; i >= 0; i-- {
		switch d.opens[i].kind {
		case "for":
			cc.append("<?php endfor; ?>")
		case "foreach":
			cc.append("<?php endforeach; ?>")
		default:
			if !chainContinues(a, idx) {
				cc.append("<?php endif; ?>")
			}
		}
	}

	return nil
}

// chainContinues reports whether the next sibling element carries
// s-elseif or s-else, skipping whitespace-only text and comments in
// between.
func chainContinues(a *ast.Arena, idx int) bool {
	i := a.Node(idx).NextSibling
	for i >= 0 {
		n := a.Node(i)
		switch n.Kind {
		case ast.KindText:
			if strings.TrimSpace(n.Text) != "" {
				return false
			}
		case ast.KindElement:
			for _, attr := range n.Attrs {
				if attr.Name == "s-elseif" || attr.Name == "s-else" {
					return true
				}
			}
			return false
		}
		i = n.NextSibling
	}
	return false
}
