package ast

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ContentType selects the markup flavor handed to the tokenizer driver.
type ContentType string

const (
	ContentHTML ContentType = "html"
	ContentXML  ContentType = "xml"
)

// voidElements are HTML tags that never take a closing tag. Only applied
// for ContentHTML; XML relies on explicit /> self-closing.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Parse drives the x/net/html tokenizer over the source and builds the
// node arena. The tokenizer is treated as a black-box token producer;
// attribute names, values and enclosures are recovered from the raw token
// bytes so the original casing and quote style survive.
//
// Returns the arena and the indices of the root nodes in source order.
func Parse(source string, ct ContentType) (*Arena, []int, error) {
	z := html.NewTokenizer(strings.NewReader(source))

	arena := &Arena{}
	var roots []int

	// Stack of open element indices. -1 entries never appear; an empty
	// stack means we are at root level.
	var open []int

	attach := func(idx int) {
		if len(open) == 0 {
			if len(roots) > 0 {
				arena.Node(roots[len(roots)-1]).NextSibling = idx
			}
			roots = append(roots, idx)
			return
		}
		parent := open[len(open)-1]
		p := arena.Node(parent)
		if len(p.Children) > 0 {
			arena.Node(p.Children[len(p.Children)-1]).NextSibling = idx
		}
		p.Children = append(p.Children, idx)
		arena.Node(idx).Parent = parent
	}

	for {
		tt := z.Next()
		raw := string(z.Raw())

		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return arena, roots, nil
			}
			return nil, nil, z.Err()

		case html.TextToken:
			idx := arena.add(Node{
				Kind:        KindText,
				Raw:         raw,
				Text:        raw,
				Parent:      -1,
				NextSibling: -1,
			})
			attach(idx)

		case html.CommentToken:
			// The tokenizer reports processing instructions as bogus
			// comments; tell them apart by the raw bytes.
			if strings.HasPrefix(raw, "<?") {
				idx := arena.add(Node{
					Kind: KindElement,
					Tag: Tag{
						Name:                  piName(raw),
						ProcessingInstruction: true,
					},
					Raw:         raw,
					Parent:      -1,
					NextSibling: -1,
				})
				attach(idx)
				continue
			}
			idx := arena.add(Node{
				Kind:        KindComment,
				Raw:         raw,
				Text:        commentText(raw),
				Parent:      -1,
				NextSibling: -1,
			})
			attach(idx)

		case html.StartTagToken, html.SelfClosingTagToken:
			name, attrs := parseOpenTag(raw)
			selfClosing := tt == html.SelfClosingTagToken
			if ct == ContentHTML && voidElements[strings.ToLower(name)] {
				selfClosing = true
			}
			idx := arena.add(Node{
				Kind: KindElement,
				Tag: Tag{
					Name:         name,
					SelfClosing:  selfClosing,
					NeedsClosing: !selfClosing,
				},
				Attrs:       attrs,
				Raw:         raw,
				Parent:      -1,
				NextSibling: -1,
			})
			attach(idx)
			if !selfClosing {
				open = append(open, idx)
			}

		case html.EndTagToken:
			name, _ := parseOpenTag(raw)
			// Pop to the matching open element. A stray close with no
			// matching open is dropped, same as browsers do.
			for i := len(open) - 1; i >= 0; i-- {
				if strings.EqualFold(arena.Node(open[i]).Tag.Name, name) {
					open = open[:i]
					break
				}
			}

		case html.DoctypeToken:
			idx := arena.add(Node{
				Kind:        KindText,
				Raw:         raw,
				Text:        raw,
				Parent:      -1,
				NextSibling: -1,
			})
			attach(idx)
		}
	}
}

func commentText(raw string) string {
	s := strings.TrimPrefix(raw, "<!--")
	s = strings.TrimSuffix(s, "-->")
	return s
}

func piName(raw string) string {
	s := strings.TrimPrefix(raw, "<?")
	end := strings.IndexAny(s, " \t\r\n?>")
	if end == -1 {
		return s
	}
	return s[:end]
}

// parseOpenTag scans the raw bytes of an open (or end) tag and extracts
// the original tag name plus attributes with their enclosures. The
// tokenizer's own attribute API lowercases names and strips quoting, so
// we read the bytes ourselves.
func parseOpenTag(raw string) (string, []RawAttr) {
	s := raw
	s = strings.TrimPrefix(s, "</")
	s = strings.TrimPrefix(s, "<")
	s = strings.TrimSuffix(s, "/>")
	s = strings.TrimSuffix(s, ">")

	i := 0
	n := len(s)
	for i < n && !isSpace(s[i]) {
		i++
	}
	name := s[:i]

	var attrs []RawAttr
	for i < n {
		for i < n && isSpace(s[i]) {
			i++
		}
		if i >= n || s[i] == '/' {
			break
		}

		keyStart := i
		for i < n && s[i] != '=' && !isSpace(s[i]) {
			i++
		}
		fullName := s[keyStart:i]
		if fullName == "" {
			i++
			continue
		}

		val := ""
		hasValue := false
		var enclosure byte = '"'
		if i < n && s[i] == '=' {
			hasValue = true
			i++
			if i < n && (s[i] == '"' || s[i] == '\'') {
				enclosure = s[i]
				i++
				valStart := i
				for i < n && s[i] != enclosure {
					i++
				}
				val = s[valStart:i]
				if i < n {
					i++
				}
			} else {
				valStart := i
				for i < n && !isSpace(s[i]) {
					i++
				}
				val = s[valStart:i]
			}
		}

		key := fullName
		typ := ""
		if c := strings.IndexByte(fullName, ':'); c != -1 {
			key = fullName[:c]
			typ = fullName[c+1:]
		}

		attrs = append(attrs, RawAttr{
			Key:       key,
			Type:      typ,
			Name:      fullName,
			Value:     val,
			Enclosure: enclosure,
			HasValue:  hasValue,
		})
	}
	return name, attrs
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
