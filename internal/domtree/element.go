package domtree

import (
	"github.com/dgnsrekt/domsnap/internal/prune"
	"golang.org/x/net/html"
)

// Element adapts an element node to prune.Element.
type Element struct {
	doc *Document
	n   *html.Node
}

var _ prune.Element = (*Element)(nil)

func (e *Element) NodeType() prune.NodeType { return prune.ElementNode }

// TagName returns the parsed tag name. The HTML parser already lowercases
// HTML tags and restores SVG camel case.
func (e *Element) TagName() string { return e.n.Data }

func (e *Element) Attributes() []prune.Attribute {
	out := make([]prune.Attribute, 0, len(e.n.Attr))
	for _, a := range e.n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		out = append(out, prune.Attribute{Name: name, Value: a.Val})
	}
	return out
}

func (e *Element) ChildNodes() []prune.Node {
	var out []prune.Node
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			out = append(out, e.doc.element(c))
		case html.TextNode:
			out = append(out, leaf{prune.TextNode})
		case html.CommentNode:
			out = append(out, leaf{prune.CommentNode})
		default:
			out = append(out, leaf{prune.OtherNode})
		}
	}
	return out
}

func (e *Element) ComputedStyle() prune.StyleSnapshot {
	return prune.StyleFromMap(propertyOrder, e.doc.computed(e.n))
}

func (e *Element) TextContent() string { return textOf(e.n) }

// Node exposes the underlying parse node.
func (e *Element) Node() *html.Node { return e.n }

type leaf struct{ t prune.NodeType }

func (l leaf) NodeType() prune.NodeType { return l.t }
