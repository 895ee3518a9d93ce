package compiler

import "strings"

// translationScope buffers the rendered subtree of an s-translate
// element as a translation blueprint. At most one scope is active per
// compile; the buffer content is pre-escaped against ' so the close step
// can quote it directly.
type translationScope struct {
	node   int
	tag    string
	key    string
	params string
	buf    strings.Builder
}

// openTranslation starts a scope on node. Opening while another scope is
// active is a fatal compile error naming both owning tags.
func (cc *Context) openTranslation(node int, tag, key, params string) error {
	if cc.trans != nil {
		return Diagnostic{
			Kind:     ErrNestedTranslation,
			Message:  "translations may not be nested",
			Template: cc.template,
			Tags:     []string{cc.trans.tag, tag},
		}
	}
	cc.trans = &translationScope{node: node, tag: tag, key: key, params: params}
	return nil
}

// closeTranslation emits the host translate call with the buffered
// blueprint as a single-quoted literal and resets the scope to idle.
func (cc *Context) closeTranslation() {
	t := cc.trans
	cc.transRouting = false
	cc.trans = nil

	var sb strings.Builder
	sb.WriteString("<?php echo $this->translate('")
	sb.WriteString(t.buf.String())
	sb.WriteString("'")
	if t.params != "" {
		sb.WriteString(", ")
		sb.WriteString(RewriteCalls(t.params))
	} else {
		sb.WriteString(", []")
	}
	if t.key != "" {
		sb.WriteString(", '")
		sb.WriteString(t.key)
		sb.WriteString("'")
	}
	sb.WriteString("); ?>")
	cc.appendOut(sb.String())
}
