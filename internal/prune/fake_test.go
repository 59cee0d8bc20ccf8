package prune

import "strings"

type fakeText string

func (fakeText) NodeType() NodeType { return TextNode }

type fakeComment string

func (fakeComment) NodeType() NodeType { return CommentNode }

type fakeElement struct {
	tag      string
	attrs    []Attribute
	style    StyleSnapshot
	children []Node
	panics   bool
}

func el(tag string, style StyleSnapshot, children ...Node) *fakeElement {
	return &fakeElement{tag: tag, style: style, children: children}
}

func (e *fakeElement) withAttrs(kv ...string) *fakeElement {
	for i := 0; i+1 < len(kv); i += 2 {
		e.attrs = append(e.attrs, Attribute{Name: kv[i], Value: kv[i+1]})
	}
	return e
}

func (e *fakeElement) NodeType() NodeType      { return ElementNode }
func (e *fakeElement) TagName() string         { return e.tag }
func (e *fakeElement) Attributes() []Attribute { return e.attrs }
func (e *fakeElement) ChildNodes() []Node      { return e.children }
func (e *fakeElement) ComputedStyle() StyleSnapshot {
	if e.panics {
		panic("measurement failed")
	}
	return e.style
}

func (e *fakeElement) TextContent() string {
	var b strings.Builder
	for _, c := range e.children {
		switch n := c.(type) {
		case fakeText:
			b.WriteString(string(n))
		case *fakeElement:
			b.WriteString(n.TextContent())
		}
	}
	return b.String()
}

// fakeHost hands out elements whose style comes from a per-tag table and
// records attachment so tests can check for leaked measurement nodes.
type fakeHost struct {
	defaults map[string]StyleSnapshot
	created  []string
	attached map[*fakeElement]bool
	maxLive  int
	panicOn  string
}

func newFakeHost(defaults map[string]StyleSnapshot) *fakeHost {
	return &fakeHost{defaults: defaults, attached: map[*fakeElement]bool{}}
}

func (h *fakeHost) CreateElement(tag string) Element {
	h.created = append(h.created, tag)
	return &fakeElement{tag: tag, style: h.defaults[tag], panics: tag == h.panicOn}
}

func (h *fakeHost) Attach(e Element) {
	h.attached[e.(*fakeElement)] = true
	if len(h.attached) > h.maxLive {
		h.maxLive = len(h.attached)
	}
}

func (h *fakeHost) Detach(e Element) {
	delete(h.attached, e.(*fakeElement))
}

func (h *fakeHost) live() int { return len(h.attached) }

func style(kv ...string) StyleSnapshot {
	pairs := make([][2]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, [2]string{kv[i], kv[i+1]})
	}
	return NewStyleSnapshot(pairs...)
}
