package compiler

import "strings"

// Context holds the per-compilation state threaded through the walker:
// the emission buffer, the active translation scope and the active skip
// scope. Partials get a fresh Context that only inherits the skip root.
// Nothing here outlives a single compile.
type Context struct {
	out []string

	trans        *translationScope
	transRouting bool // children of the translation root redirect here

	skipRoot   int  // arena index of the s-skip element, -1 when inactive
	skipForced bool // inherited from the parent compile by partials

	template string // source path, for diagnostics
}

func newContext(template string) *Context {
	return &Context{skipRoot: -1, template: template}
}

// append routes one emitted fragment: into the translation buffer
// (single-quote escaped, ready for inclusion in a quoted literal) while
// a translation scope is capturing, into the output buffer otherwise.
func (cc *Context) append(s string) {
	if cc.trans != nil && cc.transRouting {
		cc.trans.buf.WriteString(escapeEnclosure(s, '\''))
		return
	}
	cc.out = append(cc.out, s)
}

// appendOut bypasses translation routing; used for the translate call
// itself. The translation root's own open and close tags go through
// append while routing is off.
func (cc *Context) appendOut(s string) {
	cc.out = append(cc.out, s)
}

func (cc *Context) result() string {
	return strings.Join(cc.out, "")
}

func (cc *Context) inSkip() bool {
	return cc.skipForced || cc.skipRoot >= 0
}
