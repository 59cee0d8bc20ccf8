// Package prune serializes a DOM subtree into a compact JSON description of
// its visually relevant markup and styling.
//
// The package is host-agnostic: it consumes elements and a document through
// the Element and Host interfaces, so the same algorithm runs against a live
// browser capture, a parsed HTML file or a synthetic test tree.
package prune

// NodeType classifies an immediate child node.
type NodeType int

const (
	OtherNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
)

func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	default:
		return "other"
	}
}

// Node is any child of an element.
type Node interface {
	NodeType() NodeType
}

// Attribute is one markup attribute in document order.
type Attribute struct {
	Name  string
	Value string
}

// Element is the capability surface the serializer needs from a host element.
type Element interface {
	Node
	TagName() string
	Attributes() []Attribute
	// ChildNodes returns every immediate child node, text and comments included.
	ChildNodes() []Node
	// ComputedStyle returns the full computed style of the element as rendered now.
	ComputedStyle() StyleSnapshot
	// TextContent returns the concatenated text of all descendants.
	TextContent() string
}

// Host creates and attaches transient elements used to measure default styles.
// Style computation requires attachment, so callers must Detach every element
// they Attach.
type Host interface {
	CreateElement(tag string) Element
	Attach(el Element)
	Detach(el Element)
}

// SerializedNode is the recursive output unit.
type SerializedNode struct {
	Tag         string            `json:"tag"`
	Attributes  map[string]string `json:"attributes"`
	Styles      map[string]string `json:"styles"`
	TextContent *string           `json:"textContent,omitempty"`
	Children    []*SerializedNode `json:"children"`
}

// Text returns the collapsed text of the node and whether it was set.
func (n *SerializedNode) Text() (string, bool) {
	if n == nil || n.TextContent == nil {
		return "", false
	}
	return *n.TextContent, true
}
